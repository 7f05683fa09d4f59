package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/herba/pkg/remedy"
	"github.com/cognicore/herba/pkg/remedy/internalerr"
	"github.com/cognicore/herba/pkg/remedy/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu      sync.RWMutex
	order   []string
	records map[string]remedy.Record
	edges   map[string][]remedy.Edge
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		records: make(map[string]remedy.Record),
		edges:   make(map[string][]remedy.Edge),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertRecord inserts or updates a record, keyed by ID.
func (s *Store) UpsertRecord(ctx context.Context, r remedy.Record) error {
	if err := store.CheckIDs([]remedy.Record{r}); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.records[r.ID] = r.Clone()
	return nil
}

// GetRecord returns a record by ID.
func (s *Store) GetRecord(ctx context.Context, id string) (remedy.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return remedy.Record{}, false, nil
	}
	return r.Clone(), true, nil
}

// ListRecords returns records in insertion order.
func (s *Store) ListRecords(ctx context.Context) ([]remedy.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]remedy.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].Clone())
	}
	return out, nil
}

// RecordsByLabel returns sorted IDs of records carrying label under kind.
func (s *Store) RecordsByLabel(ctx context.Context, kind store.LabelKind, label string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for id, r := range s.records {
		for _, l := range store.Labels(r)[kind] {
			if l == label {
				out = append(out, id)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// ReplaceCrossReferences swaps the outgoing edges of sourceID.
func (s *Store) ReplaceCrossReferences(ctx context.Context, sourceID string, edges []remedy.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[sourceID]; !ok {
		return fmt.Errorf("%w: record %s", internalerr.ErrNotFound, sourceID)
	}
	if len(edges) == 0 {
		delete(s.edges, sourceID)
		return nil
	}
	s.edges[sourceID] = append([]remedy.Edge(nil), edges...)
	return nil
}

// ReplaceAll swaps the whole store content for records.
func (s *Store) ReplaceAll(ctx context.Context, records []remedy.Record) error {
	if err := store.CheckIDs(records); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = s.order[:0]
	s.records = make(map[string]remedy.Record, len(records))
	s.edges = make(map[string][]remedy.Edge, len(records))
	for _, r := range records {
		if _, ok := s.records[r.ID]; !ok {
			s.order = append(s.order, r.ID)
		}
		s.records[r.ID] = r.Clone()
		if len(r.CrossReferences) > 0 {
			s.edges[r.ID] = append([]remedy.Edge(nil), r.CrossReferences...)
		} else {
			delete(s.edges, r.ID)
		}
	}
	return nil
}

// Neighbors returns the k strongest outgoing edges of id (all when k <= 0).
func (s *Store) Neighbors(ctx context.Context, id string, k int) ([]remedy.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]remedy.Edge(nil), s.edges[id]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}
