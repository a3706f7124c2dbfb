package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/storyflow/pkg/errors"
	"github.com/matzehuels/storyflow/pkg/story"
)

// newFragmentCommand prints a fragment skeleton for pasting into a story.
func (c *CLI) newFragmentCommand() *cobra.Command {
	var (
		id        string
		character string
		level     int
		role      string
	)
	cmd := &cobra.Command{
		Use:   "new-fragment",
		Short: "Print a new fragment with editor defaults as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := story.NewFragment()
			if id != "" {
				if err := apperrors.ValidateFragmentID(id); err != nil {
					return err
				}
				f.ID = id
			}
			if character != "" {
				f.Character = story.Character(character)
			}
			if cmd.Flags().Changed("level") {
				f.Level = level
			}
			if role != "" {
				f.RequiredRole = story.Role(role)
				if !f.RequiredRole.Known() {
					return fmt.Errorf("invalid role %q (must be normal, vip or premium)", role)
				}
			}
			return c.writeJSON(f)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "fragment ID (default: generated)")
	cmd.Flags().StringVar(&character, "character", "", "speaker (default Lucien)")
	cmd.Flags().IntVar(&level, "level", 1, "story level")
	cmd.Flags().StringVar(&role, "role", "", "required role: normal, vip, premium")
	return cmd
}
