package state

import (
	"context"
	"sync"

	"mercator-hq/chproxy/pkg/ngram"
	"mercator-hq/chproxy/pkg/transcript"
)

// State is the transcript plus the current mode.
type State struct {
	mu      sync.Mutex
	store   transcript.Store
	mode    Mode
	appends uint64
	replays uint64
}

// Stats is a point-in-time view of the state counters.
type Stats struct {
	Mode    Mode
	Records int
	Appends uint64
	Replays uint64
}

// New creates a State in record mode over store.
func New(store transcript.Store) *State {
	return &State{store: store, mode: ModeRecord}
}

// IsRecord reports whether the current mode is record.
func (s *State) IsRecord() bool {
	return s.Mode() == ModeRecord
}

// Mode returns the current mode.
func (s *State) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode sets the current mode.
func (s *State) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// Toggle flips the mode and returns the new one.
func (s *State) Toggle() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = s.mode.Other()
	return s.mode
}

// Append adds a record to the transcript and returns its index.
func (s *State) Append(ctx context.Context, record *transcript.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.store.Append(ctx, record)
	if err != nil {
		return 0, err
	}
	s.appends++
	return idx, nil
}

// BestMatch returns the record that best matches query.
// It returns transcript.ErrNoRecordings when nothing has been recorded.
func (s *State) BestMatch(ctx context.Context, query ngram.Fingerprint) (*transcript.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.store.BestMatch(ctx, query)
	if err != nil {
		return nil, err
	}
	s.replays++
	return record, nil
}

// Dump returns a snapshot of the whole transcript.
func (s *State) Dump(ctx context.Context) ([]*transcript.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Records(ctx)
}

// Len returns the transcript length.
func (s *State) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Len(ctx)
}

// Stats returns the current counters.
func (s *State) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.store.Len(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Mode:    s.mode,
		Records: n,
		Appends: s.appends,
		Replays: s.replays,
	}, nil
}

// Close releases the transcript store.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Close()
}
