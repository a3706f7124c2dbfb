package flow

import "github.com/matzehuels/storyflow/pkg/story"

// Distribution summarizes an integer field over all fragments. For an empty
// collection every number is zero and Empty is set.
type Distribution struct {
	Min   int     `json:"min"`
	Max   int     `json:"max"`
	Avg   float64 `json:"avg"`
	Total int     `json:"total"`
	Empty bool    `json:"empty,omitempty"`
}

func distribution(fragments []story.Fragment, field func(story.Fragment) int) Distribution {
	if len(fragments) == 0 {
		return Distribution{Empty: true}
	}
	d := Distribution{Min: field(fragments[0]), Max: field(fragments[0])}
	for _, f := range fragments {
		v := field(f)
		d.Min = min(d.Min, v)
		d.Max = max(d.Max, v)
		d.Total += v
	}
	d.Avg = float64(d.Total) / float64(len(fragments))
	return d
}

// FlowReport is the combined analysis returned by [Analyze].
type FlowReport struct {
	TotalFragments int `json:"total_fragments"`
	// CharactersUsed lists distinct characters in order of first appearance.
	CharactersUsed          []story.Character       `json:"characters_used"`
	AvgDecisionsPerFragment float64                 `json:"avg_decisions_per_fragment"`
	TerminalFragments       int                     `json:"terminal_fragments"`
	FragmentsByLevel        map[int]int             `json:"fragments_by_level"`
	FragmentsByCharacter    map[story.Character]int `json:"fragments_by_character"`
	FragmentsByRole         map[story.Role]int      `json:"fragments_by_role"`
	RewardDistribution      Distribution            `json:"reward_distribution"`
	RequirementDistribution Distribution            `json:"requirement_distribution"`
	Reachability            ReachabilityReport      `json:"reachability"`
	Paths                   PathStats               `json:"paths"`
}

// Analyze aggregates fragment statistics with [Reachability] and
// [EnumeratePaths]. An empty collection yields a zero report, never an error.
func Analyze(fragments []story.Fragment, opts ...Option) FlowReport {
	c := newConfig(opts)
	g := newGraph(fragments, c)

	report := FlowReport{
		TotalFragments:       len(fragments),
		CharactersUsed:       []story.Character{},
		FragmentsByLevel:     make(map[int]int),
		FragmentsByCharacter: make(map[story.Character]int),
		FragmentsByRole:      make(map[story.Role]int),
		RewardDistribution: distribution(fragments, func(f story.Fragment) int {
			return f.RewardBesitos
		}),
		RequirementDistribution: distribution(fragments, func(f story.Fragment) int {
			return f.RequiredBesitos
		}),
		Reachability: reachability(g),
		Paths:        enumeratePaths(g, c),
	}

	decisions := 0
	for _, f := range fragments {
		if report.FragmentsByCharacter[f.Character] == 0 {
			report.CharactersUsed = append(report.CharactersUsed, f.Character)
		}
		report.FragmentsByCharacter[f.Character]++
		report.FragmentsByLevel[f.Level]++
		report.FragmentsByRole[f.RequiredRole]++
		decisions += len(f.Decisions)
		if f.IsTerminal() {
			report.TerminalFragments++
		}
	}
	if len(fragments) > 0 {
		report.AvgDecisionsPerFragment = float64(decisions) / float64(len(fragments))
	}
	return report
}
