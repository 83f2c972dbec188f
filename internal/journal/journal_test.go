package journal

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "vault.db.journal"))
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestAppendAndEntries(t *testing.T) {
	j := openTemp(t)

	ops := []string{OpCreate, OpOpen, OpSave, OpExport}
	for i, op := range ops {
		if err := j.Append(op, i); err != nil {
			t.Fatalf("Append(%s) failed: %v", op, err)
		}
	}

	entries, err := j.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != len(ops) {
		t.Fatalf("Expected %d entries, got %d", len(ops), len(entries))
	}
	for i, e := range entries {
		if e.Op != ops[i] {
			t.Errorf("Entry %d: expected op %s, got %s", i, ops[i], e.Op)
		}
		if e.Records != i {
			t.Errorf("Entry %d: expected %d records, got %d", i, i, e.Records)
		}
		if i > 0 && entries[i-1].ID >= e.ID {
			t.Errorf("Entry ids not increasing: %s >= %s", entries[i-1].ID, e.ID)
		}
	}

	if err := j.Verify(); err != nil {
		t.Errorf("Verify failed on intact journal: %v", err)
	}
}

func TestVerifyEmpty(t *testing.T) {
	j := openTemp(t)
	if err := j.Verify(); err != nil {
		t.Errorf("Verify failed on empty journal: %v", err)
	}
}

func TestReopenContinuesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.db.journal")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	if err := j.Append(OpCreate, 0); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	j.Close()

	j, err = Open(path)
	if err != nil {
		t.Fatalf("Failed to reopen journal: %v", err)
	}
	defer j.Close()

	if err := j.Append(OpOpen, 0); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := j.Verify(); err != nil {
		t.Errorf("Verify failed after reopen: %v", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	j := openTemp(t)
	for _, op := range []string{OpCreate, OpSave, OpSave} {
		if err := j.Append(op, 1); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	entries, err := j.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}

	// Rewrite the middle entry's record count.
	err = j.db.Update(func(tx *bolt.Tx) error {
		e := entries[1]
		e.Records = 99
		data, _ := json.Marshal(e)
		return tx.Bucket(EntriesBucket).Put([]byte(e.ID), data)
	})
	if err != nil {
		t.Fatalf("Failed to tamper: %v", err)
	}

	if err := j.Verify(); !errors.Is(err, ErrBroken) {
		t.Errorf("Expected ErrBroken, got %v", err)
	}
}

func TestVerifyDetectsDeletion(t *testing.T) {
	j := openTemp(t)
	for _, op := range []string{OpCreate, OpSave} {
		if err := j.Append(op, 0); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	entries, err := j.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}

	// Dropping the last entry leaves the head pointing past the chain.
	err = j.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(EntriesBucket).Delete([]byte(entries[1].ID))
	})
	if err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}

	if err := j.Verify(); !errors.Is(err, ErrBroken) {
		t.Errorf("Expected ErrBroken, got %v", err)
	}
}
