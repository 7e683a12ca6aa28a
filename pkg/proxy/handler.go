package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"mercator-hq/chproxy/pkg/ngram"
	"mercator-hq/chproxy/pkg/state"
	"mercator-hq/chproxy/pkg/telemetry/logging"
	"mercator-hq/chproxy/pkg/telemetry/metrics"
	"mercator-hq/chproxy/pkg/transcript"
)

// Options configures a Handler.
type Options struct {
	// Upstream is the base URL of the upstream HTTP interface,
	// e.g. "http://localhost:8123". Path and query come from each request.
	Upstream string

	// Client performs upstream requests. Defaults to NewUpstreamClient(0).
	Client *http.Client

	// MaxBodyBytes bounds the buffered request body. 0 means unlimited.
	MaxBodyBytes int64

	// Metrics may be nil.
	Metrics *metrics.Collector

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Handler is the catch-all HTTP handler. In record mode it forwards the
// request upstream and appends the exchange to the transcript; in replay mode
// it answers from the transcript.
type Handler struct {
	state    *state.State
	upstream *url.URL
	client   *http.Client
	maxBody  int64
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// NewHandler creates a Handler over st.
func NewHandler(st *state.State, opts Options) (*Handler, error) {
	upstream, err := url.Parse(opts.Upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL %q: %w", opts.Upstream, err)
	}
	if upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL %q: scheme and host are required", opts.Upstream)
	}

	client := opts.Client
	if client == nil {
		client = NewUpstreamClient(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		state:    st,
		upstream: upstream,
		client:   client,
		maxBody:  opts.MaxBodyBytes,
		metrics:  opts.Metrics,
		logger:   logger.With("component", "proxy"),
	}, nil
}

// exchange collects what the per-request log line and metrics report.
type exchange struct {
	mode     state.Mode
	outcome  string
	status   int
	reqBody  []byte
	respBody []byte
	headers  int
	index    int
	err      error
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := ReadBody(r, h.maxBody)
	if err != nil {
		ex := &exchange{mode: h.state.Mode(), err: err, index: -1}
		ctx := logging.WithMode(r.Context(), ex.mode.String())
		ex.outcome = metrics.OutcomeBadRequest
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.Status == http.StatusRequestEntityTooLarge {
			ex.outcome = metrics.OutcomeTooLarge
		}
		ex.status = h.writeError(w, err)
		h.finish(ctx, r, ex, start)
		return
	}

	// Mode is read exactly once per request.
	mode := h.state.Mode()
	ctx := logging.WithMode(r.Context(), mode.String())
	r = r.WithContext(ctx)

	fingerprint := ngram.New(BodyText(body))

	var ex *exchange
	if mode == state.ModeRecord {
		ex = h.record(w, r, body, fingerprint)
	} else {
		ex = h.replay(w, r, fingerprint)
	}
	ex.mode = mode
	ex.reqBody = body
	h.finish(ctx, r, ex, start)
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request, body []byte, fingerprint ngram.Fingerprint) *exchange {
	ex := &exchange{index: -1}

	resp, respBody, err := h.forward(r, body)
	if err != nil {
		h.metrics.RecordUpstreamError()
		ex.err = err
		ex.outcome = metrics.OutcomeUpstreamError
		ex.status = h.writeError(w, err)
		return ex
	}

	record := &transcript.Record{
		Fingerprint: fingerprint,
		Body:        respBody,
		Meta: transcript.ResponseMeta{
			StatusCode: resp.StatusCode,
			Headers:    transcript.HeadersFrom(resp.Header),
		},
		RecordedAt: time.Now(),
	}

	idx, err := h.state.Append(r.Context(), record)
	if err != nil {
		ex.err = err
		ex.outcome = metrics.OutcomeInternalError
		ex.status = h.writeError(w, err)
		return ex
	}
	h.metrics.SetTranscriptRecords(idx + 1)

	ex.index = idx
	ex.outcome = metrics.OutcomeRecorded
	ex.status = resp.StatusCode
	ex.respBody = respBody
	ex.headers = len(record.Meta.Headers)

	if err := WriteRecorded(w, r, record.Meta, respBody); err != nil {
		ex.err = err
	}
	return ex
}

func (h *Handler) replay(w http.ResponseWriter, r *http.Request, fingerprint ngram.Fingerprint) *exchange {
	ex := &exchange{index: -1}

	record, err := h.state.BestMatch(r.Context(), fingerprint)
	if err != nil {
		ex.err = err
		ex.outcome = metrics.OutcomeInternalError
		if errors.Is(err, transcript.ErrNoRecordings) {
			ex.outcome = metrics.OutcomeNoRecordings
		}
		ex.status = h.writeError(w, err)
		return ex
	}

	ex.index = record.Index
	ex.outcome = metrics.OutcomeReplayed
	ex.status = record.Meta.StatusCode
	ex.respBody = record.Body
	ex.headers = len(record.Meta.Headers)

	if err := WriteRecorded(w, r, record.Meta, record.Body); err != nil {
		ex.err = err
		if record.Meta.StatusCode < 100 || record.Meta.StatusCode > 599 {
			ex.outcome = metrics.OutcomeInternalError
			ex.status = h.writeError(w, err)
		}
	}
	return ex
}

// forward sends the buffered request upstream and buffers the whole response.
func (h *Handler) forward(r *http.Request, body []byte) (*http.Response, []byte, error) {
	target := *h.upstream
	target.Path = r.URL.Path
	target.RawPath = r.URL.RawPath
	target.RawQuery = r.URL.RawQuery

	out, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, nil, &UpstreamError{URL: target.String(), Err: err}
	}
	out.Header = r.Header.Clone()
	out.Header.Del(hopHeader)
	out.ContentLength = int64(len(body))
	if ip := ClientIP(r); ip != "" {
		out.Header.Set(ForwardedForHeader, ip)
	}

	resp, err := h.client.Do(out)
	if err != nil {
		return nil, nil, &UpstreamError{URL: target.String(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &UpstreamError{URL: target.String(), Err: fmt.Errorf("read response body: %w", err)}
	}
	return resp, respBody, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) int {
	status, resp := HandleError(err)
	WriteErrorResponse(w, status, resp)
	return status
}

// finish emits the single log line for the request and updates metrics.
func (h *Handler) finish(ctx context.Context, r *http.Request, ex *exchange, start time.Time) {
	elapsed := time.Since(start)
	h.metrics.RecordRequest(ex.mode.String(), ex.outcome, elapsed, len(ex.reqBody), len(ex.respBody))

	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"client", ClientIP(r),
		"outcome", ex.outcome,
		"status", ex.status,
		"request_bytes", len(ex.reqBody),
		"request_digest", transcript.Digest(ex.reqBody),
		"request_preview", transcript.Preview(ex.reqBody, transcript.DefaultPreviewBytes),
		"response_bytes", len(ex.respBody),
		"response_headers", ex.headers,
		"duration_ms", float64(elapsed.Microseconds()) / 1000,
	}
	if ex.index >= 0 {
		attrs = append(attrs, "record_index", ex.index)
	}

	if ex.err != nil {
		attrs = append(attrs, "error", ex.err)
		h.logger.WarnContext(ctx, "http exchange failed", attrs...)
		return
	}
	h.logger.DebugContext(ctx, "http exchange", attrs...)
}
