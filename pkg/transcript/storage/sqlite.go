package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/chproxy/pkg/ngram"
	"mercator-hq/chproxy/pkg/transcript"
)

// SQLiteStorage implements transcript.Store on an in-memory SQLite database.
// Every store opens its own named shared-cache memory database, so nothing
// reaches disk and the transcript disappears with the process.
type SQLiteStorage struct {
	db     *sql.DB
	name   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewSQLiteStorage creates a new in-memory SQLite transcript.
func NewSQLiteStorage() (*SQLiteStorage, error) {
	name := "chproxy-transcript-" + uuid.NewString()
	logger := slog.Default().With("component", "transcript.storage.sqlite")

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		return nil, transcript.NewStorageError(transcript.BackendSQLite, "open", err)
	}

	// A memory database lives as long as one connection to it stays open.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, transcript.NewStorageError(transcript.BackendSQLite, "create_schema", err)
	}

	logger.Debug("SQLite transcript initialized", "name", name)

	return &SQLiteStorage{db: db, name: name, logger: logger}, nil
}

// Append inserts the record and its shingles in one transaction.
func (s *SQLiteStorage) Append(ctx context.Context, record *transcript.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := encodeMeta(record.Meta.Headers, record.Fingerprint.Tokens())
	if err != nil {
		return 0, transcript.NewStorageError(transcript.BackendSQLite, "append", err)
	}
	body, codec := compressBody(record.Body)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, transcript.NewStorageError(transcript.BackendSQLite, "begin", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, countRecordsQuery).Scan(&count); err != nil {
		return 0, transcript.NewStorageError(transcript.BackendSQLite, "count", err)
	}

	// Work on a copy so a failed insert leaves the caller's record untouched.
	stored := *record
	prepareRecord(&stored, count)

	_, err = tx.ExecContext(ctx, insertRecordQuery,
		stored.Index,
		stored.ID,
		stored.Meta.StatusCode,
		meta,
		body,
		int(codec),
		len(stored.Body),
		stored.Fingerprint.N(),
		stored.RecordedAt.UnixNano(),
	)
	if err != nil {
		return 0, transcript.NewStorageError(transcript.BackendSQLite, "insert_record", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertShingleQuery)
	if err != nil {
		return 0, transcript.NewStorageError(transcript.BackendSQLite, "prepare_shingle", err)
	}
	defer stmt.Close()

	for _, shingle := range stored.Fingerprint.Shingles() {
		if _, err := stmt.ExecContext(ctx, stored.Index, shingle); err != nil {
			return 0, transcript.NewStorageError(transcript.BackendSQLite, "insert_shingle", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, transcript.NewStorageError(transcript.BackendSQLite, "commit", err)
	}

	record.Index = stored.Index
	record.ID = stored.ID
	record.RecordedAt = stored.RecordedAt

	return stored.Index, nil
}

// BestMatch scores all records in SQL and loads the winner.
func (s *SQLiteStorage) BestMatch(ctx context.Context, query ngram.Fingerprint) (*transcript.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shingles, err := json.Marshal(query.Shingles())
	if err != nil {
		return nil, transcript.NewStorageError(transcript.BackendSQLite, "best_match", err)
	}

	var idx int
	err = s.db.QueryRowContext(ctx, bestMatchQuery, string(shingles)).Scan(&idx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, transcript.ErrNoRecordings
	}
	if err != nil {
		return nil, transcript.NewStorageError(transcript.BackendSQLite, "best_match", err)
	}

	record, err := scanRecord(s.db.QueryRowContext(ctx, selectRecordQuery, idx))
	if err != nil {
		return nil, transcript.NewStorageError(transcript.BackendSQLite, "load_record", err)
	}

	rows, err := s.db.QueryContext(ctx, selectShinglesQuery, idx)
	if err != nil {
		return nil, transcript.NewStorageError(transcript.BackendSQLite, "load_shingles", err)
	}
	defer rows.Close()

	var recordShingles []string
	for rows.Next() {
		var shingle string
		if err := rows.Scan(&shingle); err != nil {
			return nil, transcript.NewStorageError(transcript.BackendSQLite, "load_shingles", err)
		}
		recordShingles = append(recordShingles, shingle)
	}
	if err := rows.Err(); err != nil {
		return nil, transcript.NewStorageError(transcript.BackendSQLite, "load_shingles", err)
	}

	record.finish(recordShingles)
	return record.Record, nil
}

// Len returns the number of records.
func (s *SQLiteStorage) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRowContext(ctx, countRecordsQuery).Scan(&count); err != nil {
		return 0, transcript.NewStorageError(transcript.BackendSQLite, "count", err)
	}
	return count, nil
}

// Records loads every record in index order.
func (s *SQLiteStorage) Records(ctx context.Context) ([]*transcript.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shingles := make(map[int][]string)
	shingleRows, err := s.db.QueryContext(ctx, selectAllShinglesQuery)
	if err != nil {
		return nil, transcript.NewStorageError(transcript.BackendSQLite, "load_shingles", err)
	}
	for shingleRows.Next() {
		var idx int
		var shingle string
		if err := shingleRows.Scan(&idx, &shingle); err != nil {
			shingleRows.Close()
			return nil, transcript.NewStorageError(transcript.BackendSQLite, "load_shingles", err)
		}
		shingles[idx] = append(shingles[idx], shingle)
	}
	shingleRows.Close()
	if err := shingleRows.Err(); err != nil {
		return nil, transcript.NewStorageError(transcript.BackendSQLite, "load_shingles", err)
	}

	rows, err := s.db.QueryContext(ctx, selectAllRecordsQuery)
	if err != nil {
		return nil, transcript.NewStorageError(transcript.BackendSQLite, "load_records", err)
	}
	defer rows.Close()

	var out []*transcript.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, transcript.NewStorageError(transcript.BackendSQLite, "load_records", err)
		}
		record.finish(shingles[record.Index])
		out = append(out, record.Record)
	}
	if err := rows.Err(); err != nil {
		return nil, transcript.NewStorageError(transcript.BackendSQLite, "load_records", err)
	}

	return out, nil
}

// Close closes the database, which drops the memory transcript.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scannedRecord is a record whose fingerprint still needs its shingles.
type scannedRecord struct {
	*transcript.Record
	n      int
	tokens []string
}

func (r *scannedRecord) finish(shingles []string) {
	r.Fingerprint = ngram.FromParts(r.n, r.tokens, shingles)
}

func scanRecord(row rowScanner) (*scannedRecord, error) {
	var (
		record     transcript.Record
		metaBlob   []byte
		body       []byte
		codec      int
		size       int
		n          int
		recordedAt int64
	)

	err := row.Scan(
		&record.Index,
		&record.ID,
		&record.Meta.StatusCode,
		&metaBlob,
		&body,
		&codec,
		&size,
		&n,
		&recordedAt,
	)
	if err != nil {
		return nil, err
	}

	meta, err := decodeMeta(metaBlob)
	if err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	record.Meta.Headers = meta.Headers

	record.Body, err = decompressBody(body, bodyCodec(codec), size)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}

	record.RecordedAt = time.Unix(0, recordedAt).UTC()

	return &scannedRecord{Record: &record, n: n, tokens: meta.Tokens}, nil
}
