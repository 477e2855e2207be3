// Package store keeps upload records and their analysis results.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"inmovc/pkg/models"
)

var ErrNotFound = errors.New("record not found")

// Store persists records by ID.
type Store interface {
	Put(ctx context.Context, record *models.Record) error
	Get(ctx context.Context, id string) (*models.Record, error)
	List(ctx context.Context) ([]*models.Record, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore is a process-local Store. Records do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*models.Record)}
}

// Put inserts or replaces a record. The store keeps its own copy.
func (s *MemoryStore) Put(ctx context.Context, record *models.Record) error {
	if record == nil || record.ID == "" {
		return errors.New("record ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record.Clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

// List returns all records ordered by upload time, then ID.
func (s *MemoryStore) List(ctx context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	out := make([]*models.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadTime.Equal(out[j].UploadTime) {
			return out[i].UploadTime.Before(out[j].UploadTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}
