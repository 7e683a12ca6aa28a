package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/chproxy/pkg/ngram"
	"mercator-hq/chproxy/pkg/transcript"
)

// MemoryStorage implements transcript.Store with a slice. Best-match lookups
// are a linear scan over every record.
type MemoryStorage struct {
	records []*transcript.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory transcript.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Append stores a copy of record and returns its index. The caller's record
// is updated with the assigned index, ID and timestamp.
func (s *MemoryStorage) Append(ctx context.Context, record *transcript.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepareRecord(record, len(s.records))
	s.records = append(s.records, record.Clone())

	return record.Index, nil
}

// BestMatch returns a copy of the highest scoring record. Later records win ties.
func (s *MemoryStorage) BestMatch(ctx context.Context, query ngram.Fingerprint) (*transcript.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return nil, transcript.ErrNoRecordings
	}

	best, bestScore := 0, 0
	for i, record := range s.records {
		if score := ngram.Score(query, record.Fingerprint); score >= bestScore {
			best, bestScore = i, score
		}
	}

	return s.records[best].Clone(), nil
}

// Len returns the number of records.
func (s *MemoryStorage) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Records returns copies of all records in index order.
func (s *MemoryStorage) Records(ctx context.Context) ([]*transcript.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*transcript.Record, len(s.records))
	for i, record := range s.records {
		out[i] = record.Clone()
	}
	return out, nil
}

// Close is a no-op for the memory backend.
func (s *MemoryStorage) Close() error {
	return nil
}

// prepareRecord fills in the fields the store owns.
func prepareRecord(record *transcript.Record, index int) {
	record.Index = index
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}
}
