package core

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/illarion/lockpass/internal/journal"
	"github.com/illarion/lockpass/internal/record"
	"github.com/illarion/lockpass/internal/security"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Export writes the given records, or all records when ids is empty, to a
// new plaintext JSON Lines file at path with mode 0600. It never overwrites
// an existing file, and checks every id before writing anything.
func (e *Engine) Export(path string, ids ...uint64) (int, error) {
	const op = "export"
	if err := e.requireOpen(op); err != nil {
		return 0, err
	}

	records, err := e.selectRecords(op, ids)
	if err != nil {
		return 0, err
	}

	pv, name, err := security.ForFile(path)
	if err != nil {
		return 0, E(op, IO, err)
	}
	defer pv.Close()

	f, err := pv.CreateFileInRoot(name, FilePermSecure)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, E(op, AlreadyExists, fmt.Errorf("%s", path))
		}
		return 0, E(op, IO, err)
	}

	n, err := record.Export(f, slices.Values(records))
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		pv.RemoveInRoot(name)
		return 0, E(op, IO, err)
	}

	e.log.Info("records exported", "path", path, "count", n)
	e.record(journal.OpExport)
	return n, nil
}

func (e *Engine) selectRecords(op string, ids []uint64) ([]record.Record, error) {
	if len(ids) == 0 {
		return slices.Collect(e.store.List()), nil
	}
	records := make([]record.Record, 0, len(ids))
	for _, id := range ids {
		r, err := e.store.Get(id)
		if err != nil {
			return nil, recordErr(op, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// DiffExport compares an existing export file with what Export would write
// now for all records, and returns a unified diff. An empty string means no
// changes.
func (e *Engine) DiffExport(path string) (string, error) {
	const op = "diff"
	if err := e.requireOpen(op); err != nil {
		return "", err
	}

	pv, name, err := security.ForFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", E(op, NotFound, err)
		}
		return "", E(op, IO, err)
	}
	defer pv.Close()

	old, err := pv.ReadFileInRoot(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", E(op, NotFound, fmt.Errorf("%s", path))
		}
		return "", E(op, IO, err)
	}

	var current bytes.Buffer
	if _, err := record.Export(&current, e.store.List()); err != nil {
		return "", E(op, Other, err)
	}

	return GenerateUnifiedDiff(name, old, current.Bytes()), nil
}

// GenerateUnifiedDiff creates a line-based unified diff from the export
// contents on disk to the current vault contents.
func GenerateUnifiedDiff(name string, exported, current []byte) string {
	if bytes.Equal(exported, current) {
		return ""
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff for better output
	oldStr, newStr := string(exported), string(current)
	a, b, lineArray := dmp.DiffLinesToChars(oldStr, newStr)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(oldStr, diffs)
	if len(patches) == 0 {
		return ""
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("--- a/%s\n", name))
	result.WriteString(fmt.Sprintf("+++ b/%s (vault)\n", name))
	// PatchToText percent-encodes JSON quotes and braces.
	text := dmp.PatchToText(patches)
	if unescaped, err := url.PathUnescape(text); err == nil {
		text = unescaped
	}
	result.WriteString(text)

	return result.String()
}
