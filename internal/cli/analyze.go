package cli

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/storyflow/pkg/flow"
	"github.com/matzehuels/storyflow/pkg/story"
)

// analyzeCommand creates the analyze command.
func (c *CLI) analyzeCommand() *cobra.Command {
	var opts analysisOpts
	cmd := &cobra.Command{
		Use:   "analyze <story>",
		Short: "Print fragment statistics, reachability and path summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAnalyze(cmd.Context(), args[0], opts)
		},
	}
	opts.register(cmd)
	opts.registerMaxPaths(cmd)
	return cmd
}

func (c *CLI) runAnalyze(ctx context.Context, path string, opts analysisOpts) error {
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	s, err := runner.Load(ctx, path)
	if err != nil {
		return err
	}
	report, cached, err := runner.Analyze(ctx, s, opts.pipelineOptions())
	if err != nil {
		return err
	}
	if opts.jsonOut {
		return c.writeJSON(report)
	}
	printReport(s, report, cached)
	return nil
}

func printReport(s *story.Story, r flow.FlowReport, cached bool) {
	title := s.Title
	if title == "" {
		title = "Untitled story"
	}
	fmt.Fprintln(stdout, StyleTitle.Render(title))
	printNewline()

	printKeyValue("Fragments", strconv.Itoa(r.TotalFragments))
	printKeyValue("Terminal", strconv.Itoa(r.TerminalFragments))
	printKeyValue("Decisions/frag", fmt.Sprintf("%.2f", r.AvgDecisionsPerFragment))
	printKeyValue("Entry", r.Reachability.Entry)
	printKeyValue("Reachable", fmt.Sprintf("%d of %d", len(r.Reachability.Reachable), r.TotalFragments))
	printNewline()

	charRows := make([][]string, 0, len(r.CharactersUsed))
	for _, ch := range r.CharactersUsed {
		charRows = append(charRows, []string{string(ch), strconv.Itoa(r.FragmentsByCharacter[ch])})
	}
	if len(charRows) > 0 {
		printTable([]string{"Character", "Fragments"}, charRows)
	}

	var levelRows [][]string
	for _, lvl := range slices.Sorted(maps.Keys(r.FragmentsByLevel)) {
		levelRows = append(levelRows, []string{strconv.Itoa(lvl), strconv.Itoa(r.FragmentsByLevel[lvl])})
	}
	if len(levelRows) > 0 {
		printTable([]string{"Level", "Fragments"}, levelRows)
	}

	roles := slices.SortedFunc(maps.Keys(r.FragmentsByRole), func(a, b story.Role) int {
		return cmp.Compare(a.Rank(), b.Rank())
	})
	var roleRows [][]string
	for _, role := range roles {
		roleRows = append(roleRows, []string{string(role), strconv.Itoa(r.FragmentsByRole[role])})
	}
	if len(roleRows) > 0 {
		printTable([]string{"Required role", "Fragments"}, roleRows)
	}

	printTable([]string{"Besitos", "Min", "Max", "Avg", "Total"}, [][]string{
		distributionRow("required", r.RequirementDistribution),
		distributionRow("reward", r.RewardDistribution),
	})

	printNewline()
	printPathSummary(r.Paths)
	if len(r.Reachability.Unreachable) > 0 {
		printWarning("%d unreachable: %v", len(r.Reachability.Unreachable), r.Reachability.Unreachable)
	}
	printCacheStatus(cached)
}

func distributionRow(name string, d flow.Distribution) []string {
	return []string{name, strconv.Itoa(d.Min), strconv.Itoa(d.Max), fmt.Sprintf("%.1f", d.Avg), strconv.Itoa(d.Total)}
}

func printPathSummary(p flow.PathStats) {
	printKeyValue("Paths", strconv.Itoa(p.TotalPaths))
	if p.TotalPaths == 0 {
		return
	}
	printKeyValue("Avg length", fmt.Sprintf("%.2f", p.AveragePathLength))
	printKeyValue("Shortest", formatPath(p.ShortestPath))
	printKeyValue("Longest", formatPath(p.LongestPath))
	if p.Truncated {
		printWarning("path enumeration stopped at %d paths", p.TotalPaths)
	}
}
