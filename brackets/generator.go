package brackets

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Dosada05/tournament-ranking/models"
)

var ErrNotEnoughTeams = errors.New("not enough teams to pair (minimum 2 required)")

// Pairing is one generated match before it is persisted. Slot order follows
// the input order.
type Pairing struct {
	MatchOrder int
	Team1ID    int
	Team2ID    int
}

// PairingResult holds the pairings of a round. UnpairedTeamID is set when the
// field was odd; that team gets no match for the round.
type PairingResult struct {
	Pairings       []Pairing
	UnpairedTeamID *int
}

// BracketGenerator pairs an ordered list of teams into a round.
type BracketGenerator interface {
	Pair(teamIDs []int) (*PairingResult, error)
	GetName() string
}

// pairSequential pairs (0,1), (2,3), ... and leaves an odd last team out.
func pairSequential(teamIDs []int) *PairingResult {
	result := &PairingResult{Pairings: make([]Pairing, 0, len(teamIDs)/2)}
	for i := 0; i+1 < len(teamIDs); i += 2 {
		result.Pairings = append(result.Pairings, Pairing{
			MatchOrder: i / 2,
			Team1ID:    teamIDs[i],
			Team2ID:    teamIDs[i+1],
		})
	}
	if len(teamIDs)%2 == 1 {
		leftover := teamIDs[len(teamIDs)-1]
		result.UnpairedTeamID = &leftover
	}
	return result
}

// DetermineWinner applies the single winner rule: the strictly higher score
// wins, equal scores leave the match without a winner.
func DetermineWinner(team1ID, team2ID *int, score1, score2 int) *int {
	switch {
	case score1 > score2:
		return team1ID
	case score2 > score1:
		return team2ID
	default:
		return nil
	}
}

// AdvanceTarget locates the slot an elimination winner moves into: the match
// at half the order in the next phase, slot 1 for even orders and 2 for odd.
// ok is false for the final.
func AdvanceTarget(phase models.EliminationPhase, matchOrder int) (next models.EliminationPhase, nextOrder int, slot int, ok bool) {
	next, ok = phase.Next()
	if !ok {
		return "", 0, 0, false
	}
	slot = 1
	if matchOrder%2 == 1 {
		slot = 2
	}
	return next, matchOrder / 2, slot, true
}

// RoundWinner is a finished match's winner together with the score it posted.
type RoundWinner struct {
	TeamID     int
	Score      int
	MatchOrder int
}

// WinnersOf extracts the winners of a finished round. Drawn matches have no
// winner and contribute nobody.
func WinnersOf(matches []*models.Match) []RoundWinner {
	winners := make([]RoundWinner, 0, len(matches))
	for _, m := range matches {
		if m == nil || m.WinnerID == nil {
			continue
		}
		winners = append(winners, RoundWinner{
			TeamID:     *m.WinnerID,
			Score:      m.WinnerScore(),
			MatchOrder: m.MatchOrder,
		})
	}
	return winners
}

// NextSwissPairings sorts winners by their score descending, ties keeping
// match order, and pairs them sequentially.
func NextSwissPairings(winners []RoundWinner) *PairingResult {
	sorted := make([]RoundWinner, len(winners))
	copy(sorted, winners)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].MatchOrder < sorted[j].MatchOrder
	})

	ids := make([]int, len(sorted))
	for i, w := range sorted {
		ids[i] = w.TeamID
	}
	return pairSequential(ids)
}

// NewGenerator returns the generator for a phase type.
func NewGenerator(phaseType models.PhaseType) (BracketGenerator, error) {
	switch phaseType {
	case models.PhaseTypeSwiss:
		return NewSwissGenerator(), nil
	case models.PhaseTypeElimination:
		return NewEliminationGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported phase type %q", phaseType)
	}
}
