package transcript

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"mercator-hq/chproxy/pkg/ngram"
)

// Header is a single response header line. Records keep headers as an
// ordered list so multi-valued headers replay in the order they arrived.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ResponseMeta is the part of an upstream response that is not the body.
type ResponseMeta struct {
	StatusCode int      `json:"status_code"`
	Headers    []Header `json:"headers"`
}

// Record is one recorded exchange. The request body itself is not kept,
// only its fingerprint.
type Record struct {
	// ID uniquely identifies the record for diagnostics.
	ID string

	// Index is the position in the transcript, assigned by the store on append.
	Index int

	// Fingerprint is the shingle set of the request body.
	Fingerprint ngram.Fingerprint

	// Body is the raw upstream response body.
	Body []byte

	// Meta holds the upstream status and headers.
	Meta ResponseMeta

	// RecordedAt is when the upstream response finished.
	RecordedAt time.Time
}

// Store is an ordered, append-only transcript.
//
// Implementations must assign indices 0, 1, 2, ... in append order and must
// resolve BestMatch ties in favour of the record with the largest index.
type Store interface {
	// Append adds a record and returns its index.
	Append(ctx context.Context, record *Record) (int, error)

	// BestMatch returns the record whose fingerprint scores highest against
	// query. It returns ErrNoRecordings when the transcript is empty.
	BestMatch(ctx context.Context, query ngram.Fingerprint) (*Record, error)

	// Len returns the number of records.
	Len(ctx context.Context) (int, error)

	// Records returns a snapshot of every record in index order.
	Records(ctx context.Context) ([]*Record, error)

	// Close releases backend resources.
	Close() error
}

// Backend names accepted by storage.New.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// HeadersFrom flattens an http.Header into an ordered list. Header names are
// sorted so the order is stable; the values of each header keep their order.
func HeadersFrom(h http.Header) []Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Header, 0, len(h))
	for _, name := range names {
		for _, value := range h[name] {
			out = append(out, Header{Name: name, Value: value})
		}
	}
	return out
}

// Get returns the first value of the named header, compared case-insensitively.
func (m ResponseMeta) Get(name string) (string, bool) {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Body = append([]byte(nil), r.Body...)
	c.Meta.Headers = append([]Header(nil), r.Meta.Headers...)
	return &c
}
