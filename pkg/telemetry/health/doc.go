// Package health serves the probe endpoints of the chproxy admin listener.
//
//   - /health: liveness, 200 while the process is serving
//   - /ready: readiness, runs registered checks and answers 503 if any fails
//   - /version: build information
//
// chproxy registers one readiness check, "transcript", which counts the
// records in the configured backend.
package health
