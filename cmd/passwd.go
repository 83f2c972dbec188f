package cmd

import (
	"fmt"

	"github.com/illarion/lockpass/internal/core"
	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/keyring"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the vault passphrase",
		Long: `Change the vault passphrase. The vault is re-encrypted under a key
derived with a fresh salt. A passphrase stored in the keyring is moved to the
new vault id.`,
		Args: cobra.NoArgs,
		RunE: runPasswd,
	}

	RootCmd.AddCommand(cmd)
}

func runPasswd(cmd *cobra.Command, _ []string) error {
	return withVault(cmd.Context(), func(s *session) error {
		before, err := s.Info()
		if err != nil {
			return err
		}

		newPassword, err := core.ReadPasswordConfirm("New passphrase: ")
		if err != nil {
			return err
		}
		defer crypto.ClearBytes(newPassword)

		if err := s.ChangePassphrase(cmd.Context(), newPassword); err != nil {
			return err
		}
		if err := s.Save(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Passphrase changed")

		// The vault id follows the salt, so a cached entry must move.
		if keyring.HasPassword(before.VaultID) {
			after, err := s.Info()
			if err != nil {
				return err
			}
			keyring.DeletePassword(before.VaultID)
			saveToKeyring(after.VaultID, newPassword)
		}
		return nil
	})
}
