package brackets

type EliminationGenerator struct{}

func NewEliminationGenerator() BracketGenerator {
	return &EliminationGenerator{}
}

func (g *EliminationGenerator) GetName() string {
	return "Elimination"
}

// Pair seeds a knockout phase positionally. Match order i of this phase feeds
// order i/2 of the next one, see AdvanceTarget.
func (g *EliminationGenerator) Pair(teamIDs []int) (*PairingResult, error) {
	if len(teamIDs) < 2 {
		return nil, ErrNotEnoughTeams
	}
	return pairSequential(teamIDs), nil
}
