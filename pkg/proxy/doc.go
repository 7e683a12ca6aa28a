// Package proxy implements the HTTP intercept handler of chproxy.
//
// Every method and path reaches one Handler. The handler buffers the request
// body, reads the mode once and then either
//
//   - record: forwards the request to the upstream ClickHouse HTTP interface,
//     buffers the full response, appends (fingerprint, body, status, headers)
//     to the transcript and returns the response to the client, or
//   - replay: fingerprints the body, looks up the best-matching record and
//     returns its status, headers and body without contacting the upstream.
//
// The Connection header is never returned. Headers absent from a record are
// not synthesized, including Content-Type and Date.
//
// # Errors
//
//   - RequestError: body read failure (400) or body over the limit (413)
//   - UpstreamError: upstream exchange failed (500), nothing recorded
//   - transcript.ErrNoRecordings: replay against an empty transcript (500)
//   - TransportError: listener and dial failures, used by the servers
//
// Error bodies are JSON:
//
//	{"error": {"message": "...", "type": "no_recordings"}}
//
// # Usage
//
//	h, err := proxy.NewHandler(st, proxy.Options{
//	    Upstream:     cfg.UpstreamHTTPURL(),
//	    Client:       proxy.NewUpstreamClient(cfg.Upstream.Timeout),
//	    MaxBodyBytes: cfg.Proxy.MaxBodyBytes,
//	    Metrics:      collector,
//	    Logger:       logger,
//	})
package proxy
