package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a credential",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
	cmd.Flags().BoolP("reveal", "r", false, "Print the password")
	cmd.Flags().Bool("json", false, "Print as JSON (includes the password)")

	RootCmd.AddCommand(cmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	reveal, _ := cmd.Flags().GetBool("reveal")
	asJSON, _ := cmd.Flags().GetBool("json")

	return withVault(cmd.Context(), func(s *session) error {
		r, err := s.Show(ids[0])
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(os.Stdout, r)
		}
		printRecord(os.Stdout, r, reveal)
		return nil
	})
}

