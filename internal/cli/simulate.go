package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/storyflow/pkg/simulate"
	"github.com/matzehuels/storyflow/pkg/story"
)

// simulateCommand creates the simulate command.
func (c *CLI) simulateCommand() *cobra.Command {
	var (
		besitos int
		role    string
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "simulate <story> <fragment-id>...",
		Short: "Replay a path of fragment IDs against a reader state",
		Long: `Simulate walks the given fragment IDs in order, checking that each
fragment links to the next and that the reader can afford and is allowed
to enter it. The first fragment is entered for free.`,
		Example: `  storyflow simulate story.json start read_letter search_more --role vip`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			state := c.Config.PreviewState()
			if cmd.Flags().Changed("besitos") {
				state.Besitos = besitos
			}
			if cmd.Flags().Changed("role") {
				state.Role = story.Role(role)
				if !state.Role.Known() {
					return fmt.Errorf("invalid role %q (must be normal, vip or premium)", role)
				}
			}
			return c.runSimulate(cmd.Context(), args[0], args[1:], state, jsonOut)
		},
	}
	cmd.Flags().IntVar(&besitos, "besitos", simulate.DefaultBesitos, "starting besitos")
	cmd.Flags().StringVar(&role, "role", string(story.RoleNormal), "reader role: normal, vip, premium")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the result as JSON")
	return cmd
}

func (c *CLI) runSimulate(ctx context.Context, path string, ids []string, state simulate.State, jsonOut bool) error {
	runner, err := c.newRunner(ctx, true)
	if err != nil {
		return err
	}
	defer runner.Close()

	s, err := runner.Load(ctx, path)
	if err != nil {
		return err
	}
	res := simulate.SimulatePath(s.Fragments, ids, state)
	if jsonOut {
		if err := c.writeJSON(res); err != nil {
			return err
		}
	} else {
		printSimulation(res, state)
	}
	if !res.Success {
		return ErrInvalidStory
	}
	return nil
}

func printSimulation(res simulate.PathResult, start simulate.State) {
	for _, e := range res.Errors {
		printError("%s", e)
	}
	for _, st := range res.Steps {
		delta := st.BesitosAfter - st.BesitosBefore
		line := fmt.Sprintf("%2d. %s", st.Index, StyleValue.Render(st.FragmentID))
		switch {
		case st.Blocked:
			printError("%s %s", line, StyleError.Render(st.Reason))
		case delta != 0:
			printSuccess("%s %s", line, StyleDim.Render(fmt.Sprintf("%+d → %d besitos", delta, st.BesitosAfter)))
		default:
			printSuccess("%s", line)
		}
	}
	if len(res.Steps) > 0 || len(res.Errors) > 0 {
		printNewline()
	}
	printKeyValue("Role", string(start.Role))
	printKeyValue("Besitos", fmt.Sprintf("%d → %d", start.Besitos, res.Final.Besitos))
	if res.Success {
		printSuccess("path can be played")
	} else {
		printError("path cannot be played")
	}
}
