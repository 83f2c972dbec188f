package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/illarion/lockpass/internal/config"
	"github.com/illarion/lockpass/internal/journal"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the vault operation journal",
		Long: `Show the operations recorded for this vault: creation, opens, saves,
exports, imports, passphrase changes and failed opens. The journal holds no
record contents. Does not require a passphrase.`,
		Args: cobra.NoArgs,
		RunE: runLog,
	}
	cmd.Flags().IntP("limit", "n", 20, "Show at most this many recent entries (0 for all)")

	RootCmd.AddCommand(cmd)
}

func runLog(cmd *cobra.Command, _ []string) error {
	path, err := cfg.VaultPath()
	if err != nil {
		return err
	}
	jpath := config.JournalPath(path)
	if _, err := os.Stat(jpath); err != nil {
		fmt.Println("No journal")
		return nil
	}

	j, err := journal.Open(jpath)
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.Entries()
	if err != nil {
		return err
	}
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tOP\tRECORDS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", e.Time.Local().Format(time.DateTime), e.Op, e.Records)
	}
	tw.Flush()

	if err := j.Verify(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s\n", err)
	}
	return nil
}
