package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"mercator-hq/chproxy/pkg/ngram"
	"mercator-hq/chproxy/pkg/transcript"
)

// backends lists every Store implementation. Each test below runs against all of them.
var backends = []struct {
	name string
	new  func(t *testing.T) transcript.Store
}{
	{
		name: "memory",
		new: func(t *testing.T) transcript.Store {
			return NewMemoryStorage()
		},
	},
	{
		name: "sqlite",
		new: func(t *testing.T) transcript.Store {
			t.Helper()
			s, err := NewSQLiteStorage()
			if err != nil {
				t.Fatalf("NewSQLiteStorage() failed: %v", err)
			}
			return s
		},
	},
}

func newRecord(request, response string) *transcript.Record {
	return &transcript.Record{
		Fingerprint: ngram.New(request),
		Body:        []byte(response),
		Meta: transcript.ResponseMeta{
			StatusCode: 200,
			Headers: []transcript.Header{
				{Name: "Content-Type", Value: "text/plain"},
				{Name: "X-K", Value: "v"},
			},
		},
	}
}

func appendAll(t *testing.T, store transcript.Store, pairs ...[2]string) {
	t.Helper()
	for _, p := range pairs {
		if _, err := store.Append(context.Background(), newRecord(p[0], p[1])); err != nil {
			t.Fatalf("Append(%q) failed: %v", p[0], err)
		}
	}
}

func TestStore_EmptyTranscript(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.new(t)
			defer store.Close()

			_, err := store.BestMatch(context.Background(), ngram.New("SELECT 1"))
			if !errors.Is(err, transcript.ErrNoRecordings) {
				t.Fatalf("BestMatch() error = %v, want ErrNoRecordings", err)
			}

			n, err := store.Len(context.Background())
			if err != nil || n != 0 {
				t.Errorf("Len() = %d, %v; want 0, nil", n, err)
			}
		})
	}
}

func TestStore_AppendAssignsIndices(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.new(t)
			defer store.Close()
			ctx := context.Background()

			for i := 0; i < 5; i++ {
				record := newRecord(fmt.Sprintf("SELECT %d FROM t", i), fmt.Sprintf("R%d", i))
				idx, err := store.Append(ctx, record)
				if err != nil {
					t.Fatalf("Append() failed: %v", err)
				}
				if idx != i {
					t.Errorf("Append() index = %d, want %d", idx, i)
				}
				if record.Index != i {
					t.Errorf("record.Index = %d, want %d", record.Index, i)
				}
				if record.ID == "" {
					t.Error("record.ID was not assigned")
				}
				if record.RecordedAt.IsZero() {
					t.Error("record.RecordedAt was not assigned")
				}
			}

			n, err := store.Len(ctx)
			if err != nil || n != 5 {
				t.Errorf("Len() = %d, %v; want 5, nil", n, err)
			}
		})
	}
}

func TestStore_TieBreakPrefersLatest(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.new(t)
			defer store.Close()

			appendAll(t, store, [2]string{"a b c", "R1"}, [2]string{"a b c", "R2"})

			got, err := store.BestMatch(context.Background(), ngram.New("a b c"))
			if err != nil {
				t.Fatalf("BestMatch() failed: %v", err)
			}
			if string(got.Body) != "R2" {
				t.Errorf("BestMatch() body = %q, want %q", got.Body, "R2")
			}
			if got.Index != 1 {
				t.Errorf("BestMatch() index = %d, want 1", got.Index)
			}
		})
	}
}

func TestStore_BestMatchByOverlap(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.new(t)
			defer store.Close()

			appendAll(t, store,
				[2]string{"select count from users", "R1"},
				[2]string{"select name from orders", "R2"},
			)

			got, err := store.BestMatch(context.Background(), ngram.New("select count from users where id=1"))
			if err != nil {
				t.Fatalf("BestMatch() failed: %v", err)
			}
			if string(got.Body) != "R1" {
				t.Errorf("BestMatch() body = %q, want %q", got.Body, "R1")
			}
		})
	}
}

func TestStore_ZeroScoreReturnsLatest(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.new(t)
			defer store.Close()

			appendAll(t, store,
				[2]string{"select count from users", "R1"},
				[2]string{"select name from orders", "R2"},
				[2]string{"insert into t values", "R3"},
			)

			got, err := store.BestMatch(context.Background(), ngram.New("completely unrelated words here"))
			if err != nil {
				t.Fatalf("BestMatch() failed: %v", err)
			}
			if string(got.Body) != "R3" {
				t.Errorf("BestMatch() body = %q, want %q", got.Body, "R3")
			}
		})
	}
}

func TestStore_EmptyQueryMatchesEmptyRecord(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.new(t)
			defer store.Close()

			appendAll(t, store,
				[2]string{"", "EMPTY"},
				[2]string{"select name from orders", "R2"},
			)

			got, err := store.BestMatch(context.Background(), ngram.New("   "))
			if err != nil {
				t.Fatalf("BestMatch() failed: %v", err)
			}
			if string(got.Body) != "EMPTY" {
				t.Errorf("BestMatch() body = %q, want %q", got.Body, "EMPTY")
			}
		})
	}
}

// TestStore_BestMatchMaximizesScore checks every query against a brute-force
// expectation: highest score, largest index on ties.
func TestStore_BestMatchMaximizesScore(t *testing.T) {
	bodies := []string{
		"SELECT a FROM t",
		"SELECT a FROM t WHERE x = 1",
		"FROM t SELECT a",
		"SELECT b FROM t WHERE x = 1",
		"SELECT a FROM t",
		"INSERT INTO t VALUES (1)",
		"",
		"x",
	}
	queries := []string{
		"SELECT a FROM t",
		"SELECT a FROM t WHERE x = 2",
		"WHERE x = 1",
		"INSERT INTO t VALUES (2)",
		"",
		"x",
		"nothing matches this at all",
	}

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.new(t)
			defer store.Close()
			ctx := context.Background()

			for i, body := range bodies {
				if _, err := store.Append(ctx, newRecord(body, fmt.Sprintf("R%d", i))); err != nil {
					t.Fatalf("Append() failed: %v", err)
				}
			}

			for _, q := range queries {
				query := ngram.New(q)
				want, wantScore := 0, -1
				for i, body := range bodies {
					if s := ngram.Score(query, ngram.New(body)); s >= wantScore {
						want, wantScore = i, s
					}
				}

				got, err := store.BestMatch(ctx, query)
				if err != nil {
					t.Fatalf("BestMatch(%q) failed: %v", q, err)
				}
				if got.Index != want {
					t.Errorf("BestMatch(%q) index = %d, want %d", q, got.Index, want)
				}
			}
		})
	}
}

func TestStore_RoundTripsRecord(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.new(t)
			defer store.Close()
			ctx := context.Background()

			orig := &transcript.Record{
				Fingerprint: ngram.New("SELECT 1 FROM t FORMAT JSON"),
				Body:        []byte{0x00, 0xff, 'O', 'K'},
				Meta: transcript.ResponseMeta{
					StatusCode: 404,
					Headers: []transcript.Header{
						{Name: "Set-Cookie", Value: "a=1"},
						{Name: "Set-Cookie", Value: "b=2"},
						{Name: "X-Clickhouse-Summary", Value: `{"read_rows":"1"}`},
					},
				},
			}
			if _, err := store.Append(ctx, orig); err != nil {
				t.Fatalf("Append() failed: %v", err)
			}

			got, err := store.BestMatch(ctx, ngram.New("SELECT 1 FROM t FORMAT JSON"))
			if err != nil {
				t.Fatalf("BestMatch() failed: %v", err)
			}

			if !bytes.Equal(got.Body, orig.Body) {
				t.Errorf("Body = %v, want %v", got.Body, orig.Body)
			}
			if got.Meta.StatusCode != 404 {
				t.Errorf("StatusCode = %d, want 404", got.Meta.StatusCode)
			}
			if !reflect.DeepEqual(got.Meta.Headers, orig.Meta.Headers) {
				t.Errorf("Headers = %v, want %v", got.Meta.Headers, orig.Meta.Headers)
			}
			if got.ID != orig.ID {
				t.Errorf("ID = %q, want %q", got.ID, orig.ID)
			}
			if !reflect.DeepEqual(got.Fingerprint.Shingles(), orig.Fingerprint.Shingles()) {
				t.Errorf("Shingles = %q, want %q", got.Fingerprint.Shingles(), orig.Fingerprint.Shingles())
			}
			if !reflect.DeepEqual(got.Fingerprint.Tokens(), orig.Fingerprint.Tokens()) {
				t.Errorf("Tokens = %q, want %q", got.Fingerprint.Tokens(), orig.Fingerprint.Tokens())
			}
		})
	}
}

func TestStore_RecordsSnapshot(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			store := b.new(t)
			defer store.Close()
			ctx := context.Background()

			appendAll(t, store,
				[2]string{"q0", "R0"},
				[2]string{"q1 q1 q1", "R1"},
				[2]string{"q2", "R2"},
			)

			records, err := store.Records(ctx)
			if err != nil {
				t.Fatalf("Records() failed: %v", err)
			}
			if len(records) != 3 {
				t.Fatalf("Records() returned %d records, want 3", len(records))
			}
			for i, r := range records {
				if r.Index != i {
					t.Errorf("records[%d].Index = %d", i, r.Index)
				}
				if want := fmt.Sprintf("R%d", i); string(r.Body) != want {
					t.Errorf("records[%d].Body = %q, want %q", i, r.Body, want)
				}
			}
			if records[1].Fingerprint.Len() != 1 {
				t.Errorf("records[1] shingles = %q", records[1].Fingerprint.Shingles())
			}

			// Mutating the snapshot must not reach the store.
			records[0].Body[0] = 'X'
			again, _ := store.Records(ctx)
			if string(again[0].Body) != "R0" {
				t.Errorf("snapshot mutation leaked into store: %q", again[0].Body)
			}
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		backend string
		want    string
		wantErr bool
	}{
		{backend: "", want: "*storage.MemoryStorage"},
		{backend: "memory", want: "*storage.MemoryStorage"},
		{backend: "sqlite", want: "*storage.SQLiteStorage"},
		{backend: "postgres", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			store, err := New(tt.backend)
			if tt.wantErr {
				if err == nil {
					t.Fatal("New() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() failed: %v", err)
			}
			defer store.Close()
			if got := fmt.Sprintf("%T", store); got != tt.want {
				t.Errorf("New(%q) = %s, want %s", tt.backend, got, tt.want)
			}
		})
	}
}
