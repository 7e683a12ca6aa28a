// Package transcript defines the recorded exchanges kept by the proxy and the
// Store interface that holds them.
//
// A transcript is an ordered, append-only list of Records. Each record keeps
// the fingerprint of the request body, the raw upstream response body and the
// upstream status and headers. Records are never updated or deleted, and they
// live only as long as the process.
//
// # Matching
//
// BestMatch scans records in insertion order and keeps the record with the
// highest fingerprint score, replacing the current best on ties. Recording the
// same query twice therefore replays the newer response.
//
// Backends live in the storage subpackage.
package transcript
