package core

import (
	"errors"
	"strings"
)

// Kind classifies an engine error. The front end maps kinds to messages
// and exit codes.
type Kind int

const (
	// Other indicates an unclassified error.
	Other Kind = iota
	// NotFound indicates a missing vault file or record.
	NotFound
	// AlreadyExists indicates that a vault or export file is already present.
	AlreadyExists
	// WrongPassphrase indicates a failed decryption. A corrupted vault is
	// indistinguishable and reported the same way.
	WrongPassphrase
	// Format indicates a file that is not a vault this build can read.
	Format
	// Locked indicates that another process holds the vault.
	Locked
	// Derivation indicates unusable key derivation parameters.
	Derivation
	// Validation indicates invalid record input.
	Validation
	// IO indicates a filesystem failure.
	IO
	// NotOpen indicates an operation on an engine with no open vault.
	NotOpen

	maxKind
)

var kindStrings = [maxKind]string{
	Other:           "unknown error",
	NotFound:        "not found",
	AlreadyExists:   "already exists",
	WrongPassphrase: "wrong passphrase or corrupted vault",
	Format:          "unrecognized vault format",
	Locked:          "vault is locked by another process",
	Derivation:      "key derivation failed",
	Validation:      "invalid input",
	IO:              "I/O error",
	NotOpen:         "vault not open",
}

// String returns a human-readable explanation of the error kind.
func (k Kind) String() string {
	if k < 0 || k >= maxKind {
		return kindStrings[Other]
	}
	return kindStrings[k]
}

// Sentinels for errors.Is. An *Error matches the sentinel of its kind.
var (
	ErrNotFound        = &Error{Kind: NotFound}
	ErrAlreadyExists   = &Error{Kind: AlreadyExists}
	ErrWrongPassphrase = &Error{Kind: WrongPassphrase}
	ErrFormat          = &Error{Kind: Format}
	ErrLocked          = &Error{Kind: Locked}
	ErrDerivation      = &Error{Kind: Derivation}
	ErrValidation      = &Error{Kind: Validation}
	ErrIO              = &Error{Kind: IO}
	ErrNotOpen         = &Error{Kind: NotOpen}
)

// Error is the error type returned by the engine.
type Error struct {
	Kind Kind
	// Op is the engine operation that failed, e.g. "open".
	Op string
	// Err is the underlying error, if any. It never carries secrets.
	Err error
}

// E constructs an *Error.
func E(op string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a bare sentinel (no Op, no Err) of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or Other.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}
