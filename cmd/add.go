package cmd

import (
	"fmt"

	"github.com/illarion/lockpass/internal/core"
	"github.com/illarion/lockpass/internal/generate"
	"github.com/illarion/lockpass/internal/record"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a credential",
		Long: `Add a credential to the vault.

The password is prompted without echo, read from stdin when it is not a
terminal, or generated with --generate.`,
		Example: `  lockpass add -s github -u alice --url https://github.com
  lockpass add -s mail -u bob --generate 24
  echo "$PW" | lockpass add -s bank -u carol`,
		Args: cobra.NoArgs,
		RunE: runAdd,
	}
	addFieldFlags(cmd)
	cmd.Flags().IntP("generate", "g", 0, "Generate a random password of this length")
	cmd.MarkFlagRequired("service")
	cmd.MarkFlagRequired("username")

	RootCmd.AddCommand(cmd)
}

// recordPassword returns the password for a new or edited record.
func recordPassword(cmd *cobra.Command) (string, bool, error) {
	if n, _ := cmd.Flags().GetInt("generate"); n != 0 {
		pw, err := generate.Generate(n)
		if err != nil {
			return "", false, core.E("generate", core.Validation, err)
		}
		return pw, true, nil
	}
	pw, err := readSecret("Password for record: ")
	return pw, false, err
}

func runAdd(cmd *cobra.Command, _ []string) error {
	f := fieldsFromFlags(cmd)
	if err := record.ValidateFields(f); err != nil {
		return core.E("add", core.Validation, err)
	}

	return withVault(cmd.Context(), func(s *session) error {
		pw, generated, err := recordPassword(cmd)
		if err != nil {
			return err
		}
		f.Password = &pw

		id, err := s.Add(f)
		if err != nil {
			return err
		}
		fmt.Printf("Added record %d\n", id)
		if generated {
			fmt.Printf("Generated password: %s\n", pw)
		}
		return nil
	})
}
