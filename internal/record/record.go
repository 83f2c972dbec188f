package record

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrValidation = errors.New("invalid record")
)

// Record is a single stored credential.
type Record struct {
	ID        uint64    `json:"id"`
	Service   string    `json:"service"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	URL       string    `json:"url"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fields carries the user-supplied parts of a record. A nil member means
// "not provided": on insert it becomes the empty string, on update the stored
// value is kept.
type Fields struct {
	Service  *string
	Username *string
	Password *string
	URL      *string
	Notes    *string
}

// String returns a pointer to s, for building Fields literals.
func String(s string) *string {
	return &s
}

// apply merges the non-nil members of f into r.
func (f Fields) apply(r *Record) {
	if f.Service != nil {
		r.Service = *f.Service
	}
	if f.Username != nil {
		r.Username = *f.Username
	}
	if f.Password != nil {
		r.Password = *f.Password
	}
	if f.URL != nil {
		r.URL = *f.URL
	}
	if f.Notes != nil {
		r.Notes = *f.Notes
	}
}

// Validate checks a fully merged record.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.Service) == "" {
		return fmt.Errorf("%w: service is required", ErrValidation)
	}
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}
	return nil
}

// ValidateFields reports whether f would be accepted by Insert.
func ValidateFields(f Fields) error {
	var r Record
	f.apply(&r)
	return r.Validate()
}

// Matches reports whether the lowercased query is a substring of the
// record's service, username or url, compared case-insensitively.
func (r *Record) Matches(lowerQuery string) bool {
	if lowerQuery == "" {
		return true
	}
	for _, s := range []string{r.Service, r.Username, r.URL} {
		if strings.Contains(strings.ToLower(s), lowerQuery) {
			return true
		}
	}
	return false
}
