package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/illarion/lockpass/internal/git"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export <file> [id...]",
		Short: "Write credentials to a plaintext file",
		Long: `Write credentials, all of them or the given ids, to a new JSON Lines
file readable only by you.

The file is NOT encrypted. It is never overwritten: pick a path that does not
exist. Inside a git work tree the target is checked against .gitignore.`,
		Example: `  lockpass export ~/backup.jsonl
  lockpass export shared.jsonl 3 7 --yes`,
		Args: cobra.MinimumNArgs(1),
		RunE: runExport,
	}
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	target, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	ids, err := parseIDs(args[1:])
	if err != nil {
		return err
	}

	exposure := git.CheckExposure(filepath.Dir(target), []string{filepath.Base(target)})
	if msg := git.FormatExposure(exposure); msg != "" {
		fmt.Fprint(os.Stderr, msg)
	}

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		fmt.Fprintf(os.Stderr, "Export writes passwords UNENCRYPTED to %s\n", target)
		if !confirm("Continue?") {
			fmt.Println("Cancelled")
			return nil
		}
	}

	return withVault(cmd.Context(), func(s *session) error {
		n, err := s.Export(target, ids...)
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d record(s) to %s\n", n, target)
		return nil
	})
}
