package record

import (
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
	"time"
)

// Store holds the decrypted records of one open vault.
type Store struct {
	records map[uint64]Record
	nextID  uint64

	// now is replaced in tests.
	now func() time.Time
}

// NewStore creates an empty store whose first id is 1.
func NewStore() *Store {
	return &Store{
		records: make(map[uint64]Record),
		nextID:  1,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// NextID returns the id the next Insert will assign.
func (s *Store) NextID() uint64 {
	return s.nextID
}

// Insert validates f and stores it under a fresh id.
func (s *Store) Insert(f Fields) (uint64, error) {
	now := s.now()
	r := Record{CreatedAt: now, UpdatedAt: now}
	f.apply(&r)
	if err := r.Validate(); err != nil {
		return 0, err
	}

	r.ID = s.nextID
	s.records[r.ID] = r
	s.nextID++
	return r.ID, nil
}

// Update merges the provided fields into the record with the given id.
// On validation failure the stored record is left unchanged.
func (s *Store) Update(id uint64, f Fields) (Record, error) {
	r, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	f.apply(&r)
	if err := r.Validate(); err != nil {
		return Record{}, err
	}

	r.UpdatedAt = s.now()
	s.records[id] = r
	return r, nil
}

// Remove deletes a record and returns it. Its id is never reassigned.
func (s *Store) Remove(id uint64) (Record, error) {
	r, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	delete(s.records, id)
	return r, nil
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id uint64) (Record, error) {
	r, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return r, nil
}

// List yields every record in ascending id order.
func (s *Store) List() iter.Seq[Record] {
	return s.Search("")
}

// Search yields records whose service, username or url contain query,
// ignoring case, in ascending id order. The sequence may be ranged over
// more than once.
func (s *Store) Search(query string) iter.Seq[Record] {
	q := strings.ToLower(query)
	return func(yield func(Record) bool) {
		for _, id := range slices.Sorted(maps.Keys(s.records)) {
			r := s.records[id]
			if !r.Matches(q) {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// payload is the plaintext that gets sealed into the vault container.
type payload struct {
	NextID  uint64   `json:"next_id"`
	Records []Record `json:"records"`
}

// MarshalJSON encodes the store as {"next_id": N, "records": [...]} with
// records sorted by id.
func (s *Store) MarshalJSON() ([]byte, error) {
	p := payload{NextID: s.nextID, Records: slices.Collect(s.List())}
	if p.Records == nil {
		p.Records = []Record{}
	}
	return json.Marshal(p)
}

// UnmarshalJSON replaces the store contents with a decoded payload.
func (s *Store) UnmarshalJSON(data []byte) error {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	records := make(map[uint64]Record, len(p.Records))
	var maxID uint64
	for _, r := range p.Records {
		if r.ID == 0 {
			return fmt.Errorf("record with zero id")
		}
		if _, dup := records[r.ID]; dup {
			return fmt.Errorf("duplicate record id %d", r.ID)
		}
		records[r.ID] = r
		maxID = max(maxID, r.ID)
	}
	if p.NextID <= maxID {
		return fmt.Errorf("next_id %d not above highest id %d", p.NextID, maxID)
	}

	s.records = records
	s.nextID = p.NextID
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return nil
}
