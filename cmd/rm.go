package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm <id> [id...]",
		Short: "Remove credentials",
		Long: `Remove credentials by id. Either all of them are removed or, if any id
is unknown, none are. Removed ids are never reused.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRm,
	}
	cmd.Flags().BoolP("force", "f", false, "Remove without confirmation")

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")

	return withVault(cmd.Context(), func(s *session) error {
		for _, id := range ids {
			if _, err := s.Show(id); err != nil {
				return err
			}
		}
		if !force && !confirm(fmt.Sprintf("Remove %d record(s)?", len(ids))) {
			fmt.Println("Cancelled")
			return nil
		}

		for _, id := range ids {
			r, err := s.Remove(id)
			if err != nil {
				return err
			}
			fmt.Printf("Removed record %d (%s / %s)\n", r.ID, r.Service, r.Username)
		}
		return nil
	})
}
