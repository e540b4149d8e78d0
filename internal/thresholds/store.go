package thresholds

import (
	"sync/atomic"
	"time"
)

// Store current threshold table, swappable at runtime.
// Readers always see a complete, validated table.
type Store struct {
	current atomic.Pointer[entry]
	path    string
}

type entry struct {
	table *Table
	yaml  []byte
	hash  string
}

// NewStore loads path, or the canonical table when path is ""
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStoreFromTable wraps an already validated table (tests, API)
func NewStoreFromTable(t *Table) (*Store, error) {
	s := &Store{}
	if err := s.Replace(t, nil); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Table() *Table { return s.current.Load().table }
func (s *Store) Hash() string { return s.current.Load().hash }
func (s *Store) YAML() []byte { return s.current.Load().yaml }
func (s *Store) Path() string { return s.path }

// Current table and its hash from one load, so a concurrent Replace cannot
// pair a table with another table's hash
func (s *Store) Current() (*Table, string) {
	e := s.current.Load()
	return e.table, e.hash
}

// Snapshot of the table currently in effect
func (s *Store) Snapshot() *Snapshot {
	e := s.current.Load()
	return &Snapshot{
		TableHash: e.hash,
		TableYAML: string(e.yaml),
		TableID:   e.table.Meta.TableID,
		Version:   e.table.Meta.Version,
		CreatedAt: time.Now(),
	}
}

// Resolve shortcut for Table().Resolve
func (s *Store) Resolve(sector string) (*Resolved, error) {
	return s.Table().Resolve(sector)
}

// Replace validates t and swaps it in; the old table stays on error
func (s *Store) Replace(t *Table, yamlData []byte) error {
	if err := Validate(t); err != nil {
		return err
	}
	hash, err := Hash(t)
	if err != nil {
		return err
	}
	s.current.Store(&entry{table: t, yaml: yamlData, hash: hash})
	return nil
}

// Reload re-reads the backing file (or the canonical table)
func (s *Store) Reload() error {
	if s.path == "" {
		return s.Replace(Default(), DefaultYAML())
	}
	t, data, err := Load(s.path)
	if err != nil {
		return err
	}
	return s.Replace(t, data)
}
