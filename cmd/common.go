package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/illarion/lockpass/internal/config"
	"github.com/illarion/lockpass/internal/core"
	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/journal"
	"github.com/illarion/lockpass/internal/keyring"
	"github.com/illarion/lockpass/internal/record"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	exitOK = iota
	exitError
	exitUsage
	exitWrongPassphrase
	exitNotFound
	exitExists
	exitLocked
	exitInvalid
)

type passwordSource int

const (
	sourceEnv passwordSource = iota
	sourceKeyring
	sourcePrompt
)

// session is an engine bound to the configured vault, plus its journal.
type session struct {
	*core.Engine
	journal *journal.Journal
}

// Close drops the decrypted vault and closes the journal.
func (s *session) Close() {
	if err := s.Engine.Close(); err != nil {
		slog.Warn("failed to close vault", "error", err)
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			slog.Warn("failed to close journal", "error", err)
		}
	}
}

// newSession creates an engine for path. A journal that cannot be opened is
// reported and skipped.
func newSession(path string) *session {
	s := &session{}
	opts := []core.Option{core.WithKDF(cfg.KDF), core.WithLogger(slog.Default())}

	j, err := journal.Open(config.JournalPath(path))
	if err != nil {
		slog.Warn("journal unavailable", "path", config.JournalPath(path), "error", err)
	} else {
		s.journal = j
		opts = append(opts, core.WithJournal(j))
	}

	s.Engine = core.New(opts...)
	return s
}

// GetPassword retrieves the vault passphrase from the environment, then the
// keyring, then the terminal. The caller clears the returned bytes.
func GetPassword(vaultPath, prompt string) ([]byte, passwordSource, error) {
	if password := core.GetPasswordFromEnv(); password != nil {
		return password, sourceEnv, nil
	}

	if id, err := core.VaultID(vaultPath); err == nil {
		if password, err := keyring.GetPassword(id); err == nil {
			return []byte(password), sourceKeyring, nil
		}
	}

	password, err := core.ReadPassword(prompt)
	if err != nil {
		return nil, sourcePrompt, err
	}
	return password, sourcePrompt, nil
}

// GetPasswordForInit reads a new passphrase from the environment or a
// confirmed prompt.
func GetPasswordForInit(prompt string) ([]byte, error) {
	if password := core.GetPasswordFromEnv(); password != nil {
		return password, nil
	}
	return core.ReadPasswordConfirm(prompt)
}

// openVault opens the configured vault. A stale keyring passphrase falls back
// to a prompt once.
func openVault(ctx context.Context) (*session, error) {
	path, err := cfg.VaultPath()
	if err != nil {
		return nil, err
	}

	s := newSession(path)
	password, source, err := GetPassword(path, "Enter passphrase: ")
	if err != nil {
		s.Close()
		return nil, err
	}
	err = s.Open(ctx, path, password)
	crypto.ClearBytes(password)

	if errors.Is(err, core.ErrWrongPassphrase) && source == sourceKeyring {
		fmt.Fprintln(os.Stderr, "Passphrase in keyring is out of date")
		password, err = core.ReadPassword("Enter passphrase: ")
		if err == nil {
			err = s.Open(ctx, path, password)
			crypto.ClearBytes(password)
		}
	}
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// withVault opens the vault, runs fn and saves if fn left changes behind.
func withVault(ctx context.Context, fn func(*session) error) error {
	s, err := openVault(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := fn(s); err != nil {
		return err
	}
	if s.Dirty() {
		return s.Save(ctx)
	}
	return nil
}

// parseIDs converts record id arguments.
func parseIDs(args []string) ([]uint64, error) {
	ids := make([]uint64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseUint(a, 10, 64)
		if err != nil || id == 0 {
			return nil, usageError{fmt.Sprintf("invalid record id %q", a)}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// fieldsFromFlags collects the record fields whose flags were set.
func fieldsFromFlags(cmd *cobra.Command) record.Fields {
	var f record.Fields
	flags := cmd.Flags()
	get := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetString(name)
		return &v
	}
	f.Service = get("service")
	f.Username = get("username")
	f.URL = get("url")
	f.Notes = get("notes")
	return f
}

func addFieldFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("service", "s", "", "Service name")
	cmd.Flags().StringP("username", "u", "", "User name")
	cmd.Flags().String("url", "", "Login URL")
	cmd.Flags().String("notes", "", "Free-form notes")
}

// readSecret prompts without echo on a terminal, otherwise reads one line
// from stdin.
func readSecret(prompt string) (string, error) {
	if core.IsTerminal() {
		b, err := core.ReadPassword(prompt)
		if err != nil {
			return "", err
		}
		defer crypto.ClearBytes(b)
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm asks a yes/no question. Anything but an explicit yes is a no.
func confirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)

	var response string
	fmt.Scanln(&response)
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

type usageError struct {
	msg string
}

func (e usageError) Error() string { return e.msg }

// HandleError prints a safe message for err and returns the exit code.
func HandleError(err error) int {
	var (
		ce    *core.Error
		usage usageError
	)
	if errors.As(err, &usage) {
		fmt.Fprintf(os.Stderr, "Error: %s\n", usage.msg)
		return exitUsage
	}
	if !errors.As(err, &ce) {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return exitError
	}

	fmt.Fprintf(os.Stderr, "Error: %s\n", ce)
	switch ce.Kind {
	case core.WrongPassphrase:
		return exitWrongPassphrase
	case core.NotFound:
		if ce.Op == "open" || ce.Op == "inspect" {
			fmt.Fprintln(os.Stderr, "Run 'lockpass init' to create a vault")
		}
		return exitNotFound
	case core.AlreadyExists:
		return exitExists
	case core.Locked:
		fmt.Fprintln(os.Stderr, "Another lockpass process is using this vault")
		return exitLocked
	case core.Validation, core.Derivation:
		return exitInvalid
	default:
		return exitError
	}
}
