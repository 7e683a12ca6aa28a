// Package storage provides transcript.Store backends.
//
//   - memory: a slice scanned linearly on every lookup. The default.
//   - sqlite: an in-memory SQLite database (modernc.org/sqlite, no cgo) that
//     indexes shingles so a lookup only touches records sharing at least one
//     shingle with the query. Headers and tokens are stored as CBOR and
//     larger bodies are zstd-compressed.
//
// Both backends assign indices in append order and break score ties in
// favour of the latest record, so they are interchangeable.
package storage
