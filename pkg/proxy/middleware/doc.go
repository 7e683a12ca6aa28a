// Package middleware provides the HTTP middleware wrapped around the
// intercept handler.
//
// # Middleware Chain
//
//	handler = Recovery(RequestID(WorkerPool(handler)))
//
// Order (outermost to innermost):
//  1. RecoveryMiddleware: turn handler panics into a 500 JSON error
//  2. RequestIDMiddleware: put a UUID request ID in the context for logging
//  3. WorkerPoolMiddleware: bound concurrent requests to the worker count
//
// None of these add response headers; a replayed response carries exactly
// the recorded headers.
package middleware
