// Package passthrough forwards raw TCP connections to the upstream native
// protocol port. Each accepted connection gets its own upstream connection
// and two copy goroutines; half-close is propagated in both directions.
//
// Traffic is neither inspected nor recorded, and the record/replay mode has
// no effect on it.
package passthrough
