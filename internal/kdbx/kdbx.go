// Package kdbx reads KeePass databases so their entries can be imported
// into a lockpass vault.
package kdbx

import (
	"fmt"
	"os"
	"strings"

	"github.com/illarion/lockpass/internal/record"
	gokeepasslib "github.com/tobischo/gokeepasslib/v3"
)

// Result is the outcome of reading a KeePass database.
type Result struct {
	Fields  []record.Fields
	Skipped int // entries without a title or username
}

// OpenFile opens and decrypts the KeePass database at path.
func OpenFile(path, password string) (*gokeepasslib.Database, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	db := gokeepasslib.NewDatabase()
	db.Credentials = gokeepasslib.NewPasswordCredentials(password)

	if err := gokeepasslib.NewDecoder(file).Decode(db); err != nil {
		return nil, fmt.Errorf("failed to decrypt %s: %w", path, err)
	}
	if err := db.UnlockProtectedEntries(); err != nil {
		return nil, fmt.Errorf("failed to unlock protected fields: %w", err)
	}
	return db, nil
}

// ReadFile opens the database at path and converts its entries.
func ReadFile(path, password string) (*Result, error) {
	db, err := OpenFile(path, password)
	if err != nil {
		return nil, err
	}
	return Convert(db), nil
}

// Convert maps every entry of db, in every group, to record fields.
// Title becomes the service name.
func Convert(db *gokeepasslib.Database) *Result {
	res := &Result{}
	for _, e := range allEntries(db) {
		title := strings.TrimSpace(e.GetTitle())
		user := strings.TrimSpace(e.GetContent("UserName"))
		if title == "" || user == "" {
			res.Skipped++
			continue
		}

		res.Fields = append(res.Fields, record.Fields{
			Service:  record.String(title),
			Username: record.String(user),
			Password: record.String(e.GetPassword()),
			URL:      record.String(e.GetContent("URL")),
			Notes:    record.String(e.GetContent("Notes")),
		})
	}
	return res
}

func allEntries(db *gokeepasslib.Database) []gokeepasslib.Entry {
	var entries []gokeepasslib.Entry
	if db == nil || db.Content == nil || db.Content.Root == nil {
		return entries
	}
	collectEntries(&entries, db.Content.Root.Groups)
	return entries
}

func collectEntries(entries *[]gokeepasslib.Entry, groups []gokeepasslib.Group) {
	for _, group := range groups {
		*entries = append(*entries, group.Entries...)
		collectEntries(entries, group.Groups)
	}
}
