package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "diff <export-file>",
		Short: "Compare an export file with the vault",
		Long: `Show a unified diff from an earlier export file to what exporting
all records would write now. Passwords appear in the output.`,
		Args: cobra.ExactArgs(1),
		RunE: runDiff,
	}

	RootCmd.AddCommand(cmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	return withVault(cmd.Context(), func(s *session) error {
		diff, err := s.DiffExport(args[0])
		if err != nil {
			return err
		}
		if diff == "" {
			fmt.Println("No differences")
			return nil
		}
		fmt.Print(diff)
		return nil
	})
}
