package storage

import (
	"fmt"

	"mercator-hq/chproxy/pkg/transcript"
)

// New creates the transcript backend with the given name.
// An empty name selects the memory backend.
func New(backend string) (transcript.Store, error) {
	switch backend {
	case transcript.BackendMemory, "":
		return NewMemoryStorage(), nil
	case transcript.BackendSQLite:
		return NewSQLiteStorage()
	default:
		return nil, fmt.Errorf("unsupported transcript backend: %s", backend)
	}
}
