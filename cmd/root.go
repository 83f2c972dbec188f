package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/illarion/lockpass/internal/config"
	"github.com/illarion/lockpass/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfg       *config.Config
	logCloser io.Closer
)

// RootCmd is the lockpass command tree.
var RootCmd = &cobra.Command{
	Use:   "lockpass",
	Short: "Encrypted local credential vault",
	Long: `lockpass keeps service credentials in a single encrypted file.

The vault is sealed with AES-256-GCM under a key derived from your master
passphrase. Set LOCKPASS_PASSWORD to skip the prompt, or store the passphrase
in the OS keyring with 'lockpass keyring save'.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	RootCmd.PersistentFlags().String("vault", "", "Vault file (default $"+config.EnvVault+" or <config dir>/lockpass/pass.db)")
	RootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	RootCmd.PersistentFlags().String("log-file", "", "Log file, or directory for daily files")
	RootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err.Error()}
	})
}

// setup resolves configuration with flags taking precedence over the
// environment, then installs the logger.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("vault") {
		c.Vault, _ = flags.GetString("vault")
	}
	if flags.Changed("log-level") {
		c.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-file") {
		c.LogFile, _ = flags.GetString("log-file")
	}

	closer, err := logging.Setup(c.LogLevel, c.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s, logging to stderr\n", err)
		closer, _ = logging.Setup(c.LogLevel, "")
	}
	logCloser = closer
	cfg = c
	slog.Debug("command started", "command", cmd.CommandPath())
	return nil
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	err := RootCmd.ExecuteContext(ctx)
	if logCloser != nil {
		defer logCloser.Close()
	}
	if err != nil {
		return HandleError(err)
	}
	return 0
}
