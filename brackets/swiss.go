package brackets

type SwissGenerator struct{}

func NewSwissGenerator() BracketGenerator {
	return &SwissGenerator{}
}

func (g *SwissGenerator) GetName() string {
	return "Swiss"
}

// Pair builds the opening swiss round from teams in seeding order.
func (g *SwissGenerator) Pair(teamIDs []int) (*PairingResult, error) {
	if len(teamIDs) < 2 {
		return nil, ErrNotEnoughTeams
	}
	return pairSequential(teamIDs), nil
}
