package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/storyflow/pkg/watch"
)

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var (
		opts     analysisOpts
		dedupe   bool
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <story>",
		Short: "Re-validate a story every time it is saved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), args[0], opts, dedupe, debounce)
		},
	}
	cmd.Flags().StringVar(&opts.entry, "entry", "", "entry fragment ID")
	cmd.Flags().BoolVar(&dedupe, "dedupe-cycles", false, "report each loop once")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before re-validating")
	return cmd
}

func (c *CLI) runWatch(ctx context.Context, path string, opts analysisOpts, dedupe bool, debounce time.Duration) error {
	runner, err := c.newRunner(ctx, true)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := opts.pipelineOptions()
	popts.DedupeCycles = dedupe
	check := func(ctx context.Context, path string) {
		s, err := runner.Load(ctx, path)
		if err != nil {
			printError("%v", err)
			return
		}
		res, _, err := runner.Validate(ctx, s, popts)
		if err != nil {
			printError("%v", err)
			return
		}
		printNewline()
		printInfo("%s", StyleDim.Render(time.Now().Format("15:04:05")))
		printValidation(path, res, false)
	}

	w, err := watch.New(path, check, watch.WithDebounce(debounce), watch.WithLogger(loggerFromContext(ctx)))
	if err != nil {
		return err
	}
	defer w.Close()

	check(ctx, path)
	printNextStep("Watching for changes", "ctrl+c to stop")
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
