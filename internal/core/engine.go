package core

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/journal"
	"github.com/illarion/lockpass/internal/record"
	"github.com/illarion/lockpass/internal/storage"
)

const (
	DirPermSecure  = 0700 // Directory: owner rwx only
	FilePermSecure = 0600 // File: owner rw only
)

type state int

const (
	stateNew state = iota
	stateOpen
	stateClosed
)

// Journal receives a line for every persisted vault operation.
type Journal interface {
	Append(op string, records int) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithKDF sets the key derivation parameters used by Create and
// ChangePassphrase. Open always uses the parameters stored in the vault.
func WithKDF(params crypto.KDFParams) Option {
	return func(e *Engine) { e.params = params }
}

// WithLocker replaces the file lock factory.
func WithLocker(newLocker func(path string) Locker) Option {
	return func(e *Engine) { e.newLocker = newLocker }
}

// WithJournal enables the operation journal.
func WithJournal(j Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithLogger sets the logger. Secrets are never logged.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine manages one encrypted vault: it opens or creates the vault file,
// holds the decrypted records in memory and seals them back on Save.
// An Engine is used by a single goroutine and is not reusable after Close.
type Engine struct {
	params    crypto.KDFParams
	newLocker func(path string) Locker
	journal   Journal
	log       *slog.Logger

	state   state
	path    string
	lock    Locker
	version uint8
	salt    []byte
	enc     *crypto.Encryptor
	store   *record.Store
	dirty   bool
}

// New creates an engine with no open vault.
func New(opts ...Option) *Engine {
	e := &Engine{
		params:    crypto.DefaultParams(crypto.PBKDF2SHA256),
		newLocker: NewFileLocker,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) begin(op string) error {
	switch e.state {
	case stateOpen:
		return E(op, Other, fmt.Errorf("engine already has %s open", e.path))
	case stateClosed:
		return E(op, NotOpen, errors.New("engine is closed"))
	}
	return nil
}

func (e *Engine) requireOpen(op string) error {
	if e.state != stateOpen {
		return E(op, NotOpen, nil)
	}
	return nil
}

func (e *Engine) acquire(op, path string) (Locker, error) {
	l := e.newLocker(path)
	if err := l.TryAcquire(); err != nil {
		if errors.Is(err, errContended) {
			return nil, E(op, Locked, nil)
		}
		return nil, E(op, IO, err)
	}
	return l, nil
}

// Create writes a new empty vault at path and leaves it open.
func (e *Engine) Create(ctx context.Context, path string, passphrase []byte) error {
	const op = "create"
	if err := e.begin(op); err != nil {
		return err
	}

	if err := exists(op, path); err != nil {
		return err
	}
	kdf, err := crypto.NewKDF(e.params)
	if err != nil {
		return E(op, Derivation, err)
	}

	lock, err := e.acquire(op, path)
	if err != nil {
		return err
	}
	// Another process may have created it while we were not holding the lock.
	if err := exists(op, path); err != nil {
		lock.Release()
		return err
	}

	key, err := deriveAsync(ctx, passphrase, kdf.Salt, kdf.Params)
	if err != nil {
		lock.Release()
		return derivationErr(op, err)
	}

	e.adopt(path, lock, uint8(kdf.Params.Algorithm), kdf.Salt, kdf.Params.Cost, key, record.NewStore())
	if err := e.seal(ctx, op); err != nil {
		e.release()
		e.state = stateNew
		return err
	}

	e.log.Info("vault created", "path", path, "kdf", kdf.Params.Algorithm.String())
	e.record(journal.OpCreate)
	return nil
}

func exists(op, path string) error {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return E(op, AlreadyExists, fmt.Errorf("%s", path))
	case !os.IsNotExist(err):
		return E(op, IO, err)
	}
	return nil
}

// Open decrypts the vault at path. A wrong passphrase and a corrupted file
// both yield WrongPassphrase.
func (e *Engine) Open(ctx context.Context, path string, passphrase []byte) error {
	const op = "open"
	if err := e.begin(op); err != nil {
		return err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return E(op, NotFound, fmt.Errorf("%s", path))
		}
		return E(op, IO, err)
	}

	lock, err := e.acquire(op, path)
	if err != nil {
		return err
	}

	store, key, c, err := e.decrypt(ctx, op, path, passphrase)
	if err != nil {
		lock.Release()
		return err
	}

	e.adopt(path, lock, c.Version, c.Salt, c.KDFCost, key, store)
	e.log.Info("vault opened", "path", path, "records", store.Len())
	e.record(journal.OpOpen)
	return nil
}

func (e *Engine) decrypt(ctx context.Context, op, path string, passphrase []byte) (*record.Store, []byte, *storage.Container, error) {
	c, err := storage.Load(path)
	if err != nil {
		return nil, nil, nil, containerErr(op, err)
	}

	params := crypto.KDFParams{Algorithm: crypto.Algorithm(c.Version), Cost: c.KDFCost}
	key, err := deriveAsync(ctx, passphrase, c.Salt, params)
	if err != nil {
		return nil, nil, nil, derivationErr(op, err)
	}

	enc := crypto.NewEncryptor(key)
	plaintext, err := enc.Open(c.Nonce, c.Ciphertext, c.Header())
	if err != nil {
		enc.Destroy()
		e.log.Debug("vault decryption failed", "path", path, "reason", err.Error())
		e.record(journal.OpFailure)
		return nil, nil, nil, E(op, WrongPassphrase, nil)
	}
	defer crypto.ClearBytes(plaintext)

	store := record.NewStore()
	if err := json.Unmarshal(plaintext, store); err != nil {
		enc.Destroy()
		e.log.Debug("vault payload unreadable", "path", path, "bytes", len(plaintext))
		return nil, nil, nil, E(op, WrongPassphrase, nil)
	}

	return store, key, c, nil
}

func (e *Engine) adopt(path string, lock Locker, version uint8, salt []byte, cost uint32, key []byte, store *record.Store) {
	e.state = stateOpen
	e.path = path
	e.lock = lock
	e.version = version
	e.salt = salt
	e.params = crypto.KDFParams{Algorithm: crypto.Algorithm(version), Cost: cost}
	e.enc = crypto.NewEncryptor(key)
	e.store = store
	e.dirty = false
}

// Save seals the records under a fresh nonce and atomically replaces the
// vault file. If the write fails the previous file is left intact.
func (e *Engine) Save(ctx context.Context) error {
	const op = "save"
	if err := e.requireOpen(op); err != nil {
		return err
	}
	if err := e.seal(ctx, op); err != nil {
		return err
	}
	e.log.Debug("vault saved", "path", e.path, "records", e.store.Len())
	e.record(journal.OpSave)
	return nil
}

func (e *Engine) seal(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return E(op, Other, err)
	}

	payload, err := json.Marshal(e.store)
	if err != nil {
		return E(op, Other, fmt.Errorf("failed to marshal records: %w", err))
	}
	defer crypto.ClearBytes(payload)

	nonce, err := crypto.NewNonce()
	if err != nil {
		return E(op, IO, err)
	}

	c := &storage.Container{
		Version: e.version,
		Salt:    e.salt,
		KDFCost: e.params.Cost,
		Nonce:   nonce,
	}
	c.Ciphertext, err = e.enc.Seal(nonce, payload, c.Header())
	if err != nil {
		return E(op, Other, err)
	}

	if err := storage.Write(e.path, c); err != nil {
		return containerErr(op, err)
	}
	e.dirty = false
	return nil
}

// Close zeroes the key, drops the records and releases the lock. Unsaved
// changes are discarded. Close is idempotent; the engine cannot be reused.
func (e *Engine) Close() error {
	if e.state == stateClosed {
		return nil
	}
	var err error
	if e.state == stateOpen {
		if e.dirty {
			e.log.Warn("closing vault with unsaved changes", "path", e.path)
		}
		err = e.release()
	}
	e.state = stateClosed
	if err != nil {
		return E("close", IO, err)
	}
	return nil
}

func (e *Engine) release() error {
	if e.enc != nil {
		e.enc.Destroy()
	}
	e.enc = nil
	e.store = nil
	e.dirty = false
	var err error
	if e.lock != nil {
		err = e.lock.Release()
		e.lock = nil
	}
	return err
}

// Dirty reports whether there are mutations not yet saved.
func (e *Engine) Dirty() bool {
	return e.state == stateOpen && e.dirty
}

// Path returns the path of the open vault.
func (e *Engine) Path() string {
	return e.path
}

// Add stores a new record and returns its id.
func (e *Engine) Add(f record.Fields) (uint64, error) {
	const op = "add"
	if err := e.requireOpen(op); err != nil {
		return 0, err
	}
	id, err := e.store.Insert(f)
	if err != nil {
		return 0, recordErr(op, err)
	}
	e.dirty = true
	return id, nil
}

// Update changes the provided fields of a record.
func (e *Engine) Update(id uint64, f record.Fields) (record.Record, error) {
	const op = "update"
	if err := e.requireOpen(op); err != nil {
		return record.Record{}, err
	}
	r, err := e.store.Update(id, f)
	if err != nil {
		return record.Record{}, recordErr(op, err)
	}
	e.dirty = true
	return r, nil
}

// Remove deletes a record. Its id is never reused.
func (e *Engine) Remove(id uint64) (record.Record, error) {
	const op = "remove"
	if err := e.requireOpen(op); err != nil {
		return record.Record{}, err
	}
	r, err := e.store.Remove(id)
	if err != nil {
		return record.Record{}, recordErr(op, err)
	}
	e.dirty = true
	return r, nil
}

// Show returns a single record.
func (e *Engine) Show(id uint64) (record.Record, error) {
	const op = "show"
	if err := e.requireOpen(op); err != nil {
		return record.Record{}, err
	}
	r, err := e.store.Get(id)
	if err != nil {
		return record.Record{}, recordErr(op, err)
	}
	return r, nil
}

// Search returns records whose service, username or url contain query,
// ignoring case, in ascending id order.
func (e *Engine) Search(query string) ([]record.Record, error) {
	if err := e.requireOpen("search"); err != nil {
		return nil, err
	}
	return slices.Collect(e.store.Search(query)), nil
}

// List returns all records in ascending id order.
func (e *Engine) List() ([]record.Record, error) {
	if err := e.requireOpen("list"); err != nil {
		return nil, err
	}
	return slices.Collect(e.store.List()), nil
}

// Import adds every entry or none: all fields are validated before the
// first insert.
func (e *Engine) Import(fields []record.Fields) ([]uint64, error) {
	const op = "import"
	if err := e.requireOpen(op); err != nil {
		return nil, err
	}
	for i, f := range fields {
		if err := record.ValidateFields(f); err != nil {
			return nil, E(op, Validation, fmt.Errorf("entry %d: %w", i+1, err))
		}
	}

	ids := make([]uint64, 0, len(fields))
	for _, f := range fields {
		id, err := e.store.Insert(f)
		if err != nil {
			for _, added := range ids {
				e.store.Remove(added)
			}
			return nil, recordErr(op, err)
		}
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		e.dirty = true
	}
	e.log.Info("records imported", "count", len(ids))
	e.record(journal.OpImport)
	return ids, nil
}

// ChangePassphrase re-keys the vault with a fresh salt. The new key takes
// effect on disk at the next Save.
func (e *Engine) ChangePassphrase(ctx context.Context, passphrase []byte) error {
	const op = "passwd"
	if err := e.requireOpen(op); err != nil {
		return err
	}

	kdf, err := crypto.NewKDF(e.params)
	if err != nil {
		return E(op, Derivation, err)
	}
	key, err := deriveAsync(ctx, passphrase, kdf.Salt, kdf.Params)
	if err != nil {
		return derivationErr(op, err)
	}

	e.enc.Destroy()
	e.salt = kdf.Salt
	e.enc = crypto.NewEncryptor(key)
	e.dirty = true

	e.log.Info("passphrase changed", "path", e.path)
	e.record(journal.OpPasswd)
	return nil
}

// Info describes an open vault without exposing any record contents.
type Info struct {
	Path      string
	VaultID   string
	Version   uint8
	Algorithm crypto.Algorithm
	Cost      uint32
	Records   int
	NextID    uint64
	Dirty     bool
}

// Info returns metadata about the open vault.
func (e *Engine) Info() (Info, error) {
	if err := e.requireOpen("info"); err != nil {
		return Info{}, err
	}
	return Info{
		Path:      e.path,
		VaultID:   hex.EncodeToString(e.salt),
		Version:   e.version,
		Algorithm: e.params.Algorithm,
		Cost:      e.params.Cost,
		Records:   e.store.Len(),
		NextID:    e.store.NextID(),
		Dirty:     e.dirty,
	}, nil
}

// Header is the unencrypted part of a vault file.
type Header struct {
	VaultID   string
	Version   uint8
	Algorithm crypto.Algorithm
	Cost      uint32
	Size      int64
}

// Inspect reads the header of the vault at path. It needs no passphrase and
// takes no lock.
func Inspect(path string) (Header, error) {
	c, err := storage.Load(path)
	if err != nil {
		return Header{}, containerErr("inspect", err)
	}
	return Header{
		VaultID:   hex.EncodeToString(c.Salt),
		Version:   c.Version,
		Algorithm: crypto.Algorithm(c.Version),
		Cost:      c.KDFCost,
		Size:      int64(storage.HeaderSize + storage.NonceSize + 4 + len(c.Ciphertext)),
	}, nil
}

// VaultID reads the identifier of the vault at path without decrypting it.
// It changes whenever the passphrase is changed.
func VaultID(path string) (string, error) {
	h, err := Inspect(path)
	if err != nil {
		return "", err
	}
	return h.VaultID, nil
}

func (e *Engine) record(op string) {
	if e.journal == nil {
		return
	}
	n := 0
	if e.store != nil {
		n = e.store.Len()
	}
	if err := e.journal.Append(op, n); err != nil {
		e.log.Warn("failed to write journal", "op", op, "error", err)
	}
}

// deriveAsync runs key derivation off the caller's goroutine. If ctx ends
// first the caller gets ctx.Err() and the key is wiped once derivation
// finishes.
func deriveAsync(ctx context.Context, passphrase, salt []byte, params crypto.KDFParams) ([]byte, error) {
	type result struct {
		key []byte
		err error
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw := bytes.Clone(passphrase)
	ch := make(chan result, 1)
	go func() {
		key, err := crypto.DeriveKey(pw, salt, params)
		crypto.ClearBytes(pw)
		ch <- result{key, err}
	}()

	select {
	case r := <-ch:
		return r.key, r.err
	case <-ctx.Done():
		go func() {
			r := <-ch
			crypto.ClearBytes(r.key)
		}()
		return nil, ctx.Err()
	}
}

func derivationErr(op string, err error) error {
	if errors.Is(err, crypto.ErrInvalidParams) {
		return E(op, Derivation, err)
	}
	return E(op, Other, err)
}

func containerErr(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return E(op, NotFound, err)
	case errors.Is(err, storage.ErrFormat):
		return E(op, Format, err)
	default:
		return E(op, IO, err)
	}
}

func recordErr(op string, err error) error {
	switch {
	case errors.Is(err, record.ErrNotFound):
		return E(op, NotFound, err)
	case errors.Is(err, record.ErrValidation):
		return E(op, Validation, err)
	default:
		return E(op, Other, err)
	}
}
