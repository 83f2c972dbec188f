package cmd

import (
	"os"

	"github.com/illarion/lockpass/internal/record"
	"github.com/spf13/cobra"
)

func init() {
	ls := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List all credentials",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, func(s *session) ([]record.Record, error) {
				return s.List()
			})
		},
	}
	ls.Flags().Bool("json", false, "Print as JSON (passwords omitted)")

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Find credentials by service, username or URL",
		Long: `Find credentials whose service, username or URL contains the query,
ignoring case. Results are ordered by id.`,
		Example: `  lockpass search git`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, func(s *session) ([]record.Record, error) {
				return s.Search(args[0])
			})
		},
	}
	search.Flags().Bool("json", false, "Print as JSON (passwords omitted)")

	RootCmd.AddCommand(ls, search)
}

func runList(cmd *cobra.Command, query func(*session) ([]record.Record, error)) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	return withVault(cmd.Context(), func(s *session) error {
		records, err := query(s)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(os.Stdout, redact(records))
		}
		printRecords(os.Stdout, records)
		return nil
	})
}
