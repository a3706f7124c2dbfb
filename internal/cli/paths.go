package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/storyflow/pkg/flow"
	"github.com/matzehuels/storyflow/pkg/simulate"
)

// pathsCommand creates the paths command.
func (c *CLI) pathsCommand() *cobra.Command {
	var (
		opts analysisOpts
		all  bool
		sim  bool
	)
	cmd := &cobra.Command{
		Use:   "paths <story>",
		Short: "List every path from the entry to an ending",
		Long: `Paths enumerates readings from the entry fragment to fragments without
decisions. Loops are cut where they would revisit a fragment.

With --simulate every path is replayed from the configured reader state
([preview] in the config file) to show where besitos or role block it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPaths(cmd.Context(), args[0], opts, all, sim)
		},
	}
	opts.register(cmd)
	opts.registerMaxPaths(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "print every path, not only the summary")
	cmd.Flags().BoolVar(&sim, "simulate", false, "replay each path against the reader state")
	return cmd
}

func (c *CLI) runPaths(ctx context.Context, path string, opts analysisOpts, all, sim bool) error {
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	s, err := runner.Load(ctx, path)
	if err != nil {
		return err
	}
	popts := opts.pipelineOptions()
	spinner := newSpinner(ctx, fmt.Sprintf("Enumerating paths of %d fragments...", len(s.Fragments)))
	spinner.Start()
	stats, cached, err := runner.Paths(ctx, s, popts)
	spinner.Stop()
	if err != nil {
		return err
	}

	var runs []simulate.PathResult
	if sim {
		runs = make([]simulate.PathResult, len(stats.Paths))
		for i, p := range stats.Paths {
			runs[i] = simulate.SimulatePath(s.Fragments, p, c.Config.PreviewState())
		}
	}

	if opts.jsonOut {
		if sim {
			return c.writeJSON(struct {
				Paths flow.PathStats        `json:"paths"`
				Runs  []simulate.PathResult `json:"playthroughs"`
			}{stats, runs})
		}
		return c.writeJSON(stats)
	}

	printPathSummary(stats)
	if all || sim {
		printNewline()
		for i, p := range stats.Paths {
			line := fmt.Sprintf("%3d. %s", i+1, formatPath(p))
			if !sim {
				fmt.Fprintln(stdout, line)
				continue
			}
			run := runs[i]
			if run.Success {
				fmt.Fprintln(stdout, line+" "+StyleDim.Render(fmt.Sprintf("(%d besitos left)", run.Final.Besitos)))
				continue
			}
			fmt.Fprintln(stdout, line)
			for _, st := range run.Steps {
				if st.Blocked {
					printDetail("blocked at %s: %s", st.FragmentID, st.Reason)
					break
				}
			}
		}
	}
	printCacheStatus(cached)
	return nil
}
