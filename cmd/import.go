package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/kdbx"
	"github.com/spf13/cobra"
)

// kdbxPasswordEnv supplies the KeePass database password non-interactively.
const kdbxPasswordEnv = "LOCKPASS_KDBX_PASSWORD"

func init() {
	cmd := &cobra.Command{
		Use:   "import <file.kdbx>",
		Short: "Import credentials from a KeePass database",
		Long: `Import every entry of a KeePass (KDBX) database. Titles become service
names. Entries without a title or user name are skipped. Either all remaining
entries are imported or none are.

The database password is read from ` + kdbxPasswordEnv + ` or prompted.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	password := []byte(os.Getenv(kdbxPasswordEnv))
	if len(password) == 0 {
		var err error
		password, err = readKDBXPassword()
		if err != nil {
			return err
		}
	}
	defer crypto.ClearBytes(password)

	res, err := kdbx.ReadFile(args[0], string(password))
	if err != nil {
		return err
	}
	if len(res.Fields) == 0 {
		fmt.Printf("Nothing to import (%d entries skipped)\n", res.Skipped)
		return nil
	}

	return withVault(cmd.Context(), func(s *session) error {
		ids, err := s.Import(res.Fields)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d record(s)", len(ids))
		if res.Skipped > 0 {
			fmt.Printf(", skipped %d", res.Skipped)
		}
		fmt.Println()
		return nil
	})
}

func readKDBXPassword() ([]byte, error) {
	pw, err := readSecret("KeePass password: ")
	if err != nil {
		return nil, err
	}
	return []byte(pw), nil
}
