package cmd

import (
	"fmt"

	"github.com/illarion/lockpass/internal/record"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a credential",
		Long: `Change fields of a credential. Only the given flags are changed.

Use --password to enter a new password, or --generate to replace it with a
random one.`,
		Example: `  lockpass edit 3 --url https://example.com/login
  lockpass edit 3 --password`,
		Args: cobra.ExactArgs(1),
		RunE: runEdit,
	}
	addFieldFlags(cmd)
	cmd.Flags().BoolP("password", "p", false, "Prompt for a new password")
	cmd.Flags().IntP("generate", "g", 0, "Generate a random password of this length")
	cmd.MarkFlagsMutuallyExclusive("password", "generate")

	RootCmd.AddCommand(cmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	f := fieldsFromFlags(cmd)
	newPassword, _ := cmd.Flags().GetBool("password")
	generateLen, _ := cmd.Flags().GetInt("generate")
	if f == (record.Fields{}) && !newPassword && generateLen == 0 {
		return usageError{"nothing to change"}
	}

	return withVault(cmd.Context(), func(s *session) error {
		var generated bool
		if newPassword || generateLen != 0 {
			pw, gen, err := recordPassword(cmd)
			if err != nil {
				return err
			}
			f.Password, generated = &pw, gen
		}

		r, err := s.Update(ids[0], f)
		if err != nil {
			return err
		}
		fmt.Printf("Updated record %d (%s / %s)\n", r.ID, r.Service, r.Username)
		if generated {
			fmt.Printf("Generated password: %s\n", r.Password)
		}
		return nil
	})
}
