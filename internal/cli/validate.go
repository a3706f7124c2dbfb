package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/storyflow/pkg/flow"
	"github.com/matzehuels/storyflow/pkg/pipeline"
)

// analysisOpts holds flags shared by the analysis commands.
type analysisOpts struct {
	entry     string
	maxPaths  int
	maxCycles int
	jsonOut   bool
	noCache   bool
	refresh   bool
}

func (o *analysisOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.entry, "entry", "", "entry fragment ID (default: \"start\", else the first fragment)")
	cmd.Flags().BoolVar(&o.jsonOut, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable the report cache")
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "recompute even when a cached report exists")
}

// registerMaxPaths adds --max-paths to commands that enumerate paths.
func (o *analysisOpts) registerMaxPaths(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.maxPaths, "max-paths", 0, fmt.Sprintf("stop path enumeration after N paths (default %d)", flow.DefaultMaxPaths))
}

// registerMaxCycles adds --max-cycles to commands that search for loops.
func (o *analysisOpts) registerMaxCycles(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.maxCycles, "max-cycles", 0, fmt.Sprintf("stop cycle detection after N cycles (default %d)", flow.DefaultMaxCycles))
}

func (o *analysisOpts) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		Entry:     o.entry,
		MaxPaths:  o.maxPaths,
		MaxCycles: o.maxCycles,
		Refresh:   o.refresh,
	}
}

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	var (
		opts   analysisOpts
		dedupe bool
	)
	cmd := &cobra.Command{
		Use:   "validate <story>",
		Short: "Check a story for broken links, orphans and cycles",
		Long: `Validate reports empty content, missing or duplicate fragment IDs,
decisions pointing at missing fragments and circular references as errors,
and fragments nothing links to as warnings.

The command exits with status 1 when any error is found.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd.Context(), args[0], opts, dedupe)
		},
	}
	opts.register(cmd)
	opts.registerMaxCycles(cmd)
	cmd.Flags().BoolVar(&dedupe, "dedupe-cycles", false, "report each loop once instead of once per start")
	return cmd
}

func (c *CLI) runValidate(ctx context.Context, path string, opts analysisOpts, dedupe bool) error {
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
	popts.DedupeCycles = dedupe

	prog := newProgress(loggerFromContext(ctx))
	res, cached, err := runner.Validate(ctx, s, popts)
	if err != nil {
		return err
	}
	prog.done("validation finished", "errors", len(res.Errors), "warnings", len(res.Warnings))

	if opts.jsonOut {
		if err := c.writeJSON(res); err != nil {
			return err
		}
	} else {
		printValidation(path, res, cached)
	}
	if !res.IsValid {
		return ErrInvalidStory
	}
	return nil
}

func printValidation(path string, res flow.ValidationResult, cached bool) {
	printIssues(res)
	if len(res.Errors)+len(res.Warnings) > 0 {
		printNewline()
	}
	if res.IsValid {
		printSuccess("%s is valid", path)
	} else {
		printError("%s has %d error(s)", path, len(res.Errors))
	}
	printDetail("%d fragments · %d broken · %d orphaned · %d cycles",
		res.Stats.TotalFragments, res.Stats.BrokenConnections,
		res.Stats.OrphanedFragments, res.Stats.CircularReferences)
	if res.CyclesTruncated {
		printWarning("cycle search stopped early; more loops may exist")
	}
	printCacheStatus(cached)
}
