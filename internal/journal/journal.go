package journal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	MetaBucket    = []byte("meta")    // format version, creation time, chain head
	EntriesBucket = []byte("entries") // ULID -> JSON entry
)

// Meta keys
var (
	MetaVersion = []byte("version")
	MetaCreated = []byte("created")
	MetaHead    = []byte("head")
)

// Operation names recorded by the vault engine.
const (
	OpCreate  = "create"
	OpOpen    = "open"
	OpSave    = "save"
	OpExport  = "export"
	OpImport  = "import"
	OpPasswd  = "passwd"
	OpFailure = "open-failed"
)

var ErrBroken = errors.New("journal hash chain broken")

// Entry is one journal line. It never contains record contents.
type Entry struct {
	ID      string    `json:"id"`
	Op      string    `json:"op"`
	Time    time.Time `json:"time"`
	Records int       `json:"records"`
	Hash    string    `json:"hash"`
}

// Journal is an append-only, hash-chained operation log stored in bbolt.
type Journal struct {
	db      *bolt.DB
	entropy io.Reader
	now     func() time.Time
}

// Open opens or creates the journal at path. The file lock is held by bbolt
// for the lifetime of the Journal; a second opener times out.
func Open(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	j := &Journal{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     func() time.Time { return time.Now().UTC() },
	}
	if err := j.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.db.Path()
}

func (j *Journal) initialize() error {
	return j.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{MetaBucket, EntriesBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		meta := tx.Bucket(MetaBucket)
		if meta.Get(MetaVersion) != nil {
			return nil
		}
		if err := meta.Put(MetaVersion, []byte("1")); err != nil {
			return err
		}
		created, _ := j.now().MarshalBinary()
		return meta.Put(MetaCreated, created)
	})
}

// chainHash links an entry to its predecessor.
func chainHash(prev []byte, e Entry) []byte {
	h := sha256.New()
	h.Write(prev)
	h.Write([]byte(e.ID))
	h.Write([]byte(e.Op))
	h.Write([]byte(e.Time.Format(time.RFC3339Nano)))
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(e.Records))
	h.Write(n[:])
	return h.Sum(nil)
}

// Append records an operation and the vault's record count at that time.
func (j *Journal) Append(op string, records int) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(MetaBucket)
		entries := tx.Bucket(EntriesBucket)

		now := j.now()
		id, err := j.nextID(entries, now)
		if err != nil {
			return fmt.Errorf("failed to generate entry id: %w", err)
		}

		e := Entry{ID: id.String(), Op: op, Time: now, Records: records}
		sum := chainHash(meta.Get(MetaHead), e)
		e.Hash = hex.EncodeToString(sum)

		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if err := entries.Put([]byte(e.ID), data); err != nil {
			return err
		}
		return meta.Put(MetaHead, sum)
	})
}

// nextID returns a ULID that sorts after every existing key, even when a
// previous process wrote an entry in the same millisecond.
func (j *Journal) nextID(entries *bolt.Bucket, now time.Time) (ulid.ULID, error) {
	ms := ulid.Timestamp(now)
	if k, _ := entries.Cursor().Last(); k != nil {
		last, err := ulid.ParseStrict(string(k))
		if err == nil && last.Time() >= ms {
			ms = last.Time() + 1
		}
	}
	return ulid.New(ms, j.entropy)
}

// Entries returns all entries in chronological order.
func (j *Journal) Entries() ([]Entry, error) {
	var out []Entry
	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(EntriesBucket).ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("failed to decode entry %s: %w", k, err)
			}
			out = append(out, e)
			return nil
		})
	})
	return out, err
}

// Verify recomputes the hash chain and checks it ends at the stored head.
func (j *Journal) Verify() error {
	return j.db.View(func(tx *bolt.Tx) error {
		var prev []byte
		err := tx.Bucket(EntriesBucket).ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("%w: entry %s unreadable", ErrBroken, k)
			}
			if e.ID != string(k) {
				return fmt.Errorf("%w: entry %s stored under wrong key", ErrBroken, k)
			}
			sum := chainHash(prev, e)
			if hex.EncodeToString(sum) != e.Hash {
				return fmt.Errorf("%w: at entry %s", ErrBroken, k)
			}
			prev = sum
			return nil
		})
		if err != nil {
			return err
		}

		head := tx.Bucket(MetaBucket).Get(MetaHead)
		if string(head) != string(prev) {
			return fmt.Errorf("%w: head does not match last entry", ErrBroken)
		}
		return nil
	})
}
