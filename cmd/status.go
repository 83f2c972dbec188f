package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/illarion/lockpass/internal/config"
	"github.com/illarion/lockpass/internal/core"
	"github.com/illarion/lockpass/internal/journal"
	"github.com/illarion/lockpass/internal/keyring"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show vault status",
		Long: `Show the vault header, keyring state and journal integrity.

Does not require a passphrase.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}

	RootCmd.AddCommand(cmd)
}

func runStatus(*cobra.Command, []string) error {
	path, err := cfg.VaultPath()
	if err != nil {
		return err
	}

	h, err := core.Inspect(path)
	if errors.Is(err, core.ErrNotFound) {
		fmt.Printf("No vault at %s\n", path)
		fmt.Println("Run 'lockpass init' to create one")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Vault:    %s (%s)\n", path, formatSize(h.Size))
	fmt.Printf("Format:   version %d, %s cost %d\n", h.Version, h.Algorithm, h.Cost)
	fmt.Printf("Vault ID: %s\n", h.VaultID)
	if st, err := os.Stat(path); err == nil {
		fmt.Printf("Saved:    %s\n", st.ModTime().Format(time.RFC3339))
	}
	if keyring.HasPassword(h.VaultID) {
		fmt.Println("Keyring:  passphrase stored")
	} else {
		fmt.Println("Keyring:  not stored")
	}

	printJournalStatus(config.JournalPath(path))
	return nil
}

func printJournalStatus(path string) {
	if _, err := os.Stat(path); err != nil {
		fmt.Println("Journal:  none")
		return
	}
	j, err := journal.Open(path)
	if err != nil {
		fmt.Printf("Journal:  unavailable (%s)\n", err)
		return
	}
	defer j.Close()

	entries, err := j.Entries()
	if err != nil {
		fmt.Printf("Journal:  unreadable (%s)\n", err)
		return
	}
	state := "intact"
	if err := j.Verify(); err != nil {
		state = err.Error()
	}
	fmt.Printf("Journal:  %d entries, %s\n", len(entries), state)
	if n := len(entries); n > 0 {
		last := entries[n-1]
		fmt.Printf("Last op:  %s at %s (%d records)\n", last.Op, last.Time.Local().Format(time.RFC3339), last.Records)
	}
}

// formatSize formats a file size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)

	switch {
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
