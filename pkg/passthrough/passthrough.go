package passthrough

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"mercator-hq/chproxy/pkg/proxy"
	"mercator-hq/chproxy/pkg/telemetry/logging"
	"mercator-hq/chproxy/pkg/telemetry/metrics"
)

// Forwarder accepts TCP connections and copies bytes between each one and a
// fresh connection to the upstream native port. Nothing is parsed or recorded
// and the proxy mode has no effect here.
type Forwarder struct {
	listenAddr  string
	upstream    string
	dialTimeout time.Duration
	metrics     *metrics.Collector
	logger      *slog.Logger

	mu          sync.Mutex
	listener    net.Listener
	conns       map[net.Conn]struct{}
	connections sync.WaitGroup
	closed      atomic.Bool
}

// Options configures a Forwarder.
type Options struct {
	DialTimeout time.Duration
	Metrics     *metrics.Collector
	Logger      *slog.Logger
}

// New creates a Forwarder from listenAddr to upstream.
func New(listenAddr, upstream string, opts Options) *Forwarder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		listenAddr:  listenAddr,
		upstream:    upstream,
		dialTimeout: opts.DialTimeout,
		metrics:     opts.Metrics,
		logger:      logger.With("component", "passthrough"),
		conns:       make(map[net.Conn]struct{}),
	}
}

// Listen binds the listening socket. It returns a *proxy.TransportError on
// failure.
func (f *Forwarder) Listen() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listener != nil {
		return fmt.Errorf("passthrough is already listening")
	}
	ln, err := net.Listen("tcp", f.listenAddr)
	if err != nil {
		return &proxy.TransportError{Op: "listen", Addr: f.listenAddr, Err: err}
	}
	f.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (f *Forwarder) Addr() net.Addr {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listener == nil {
		return nil
	}
	return f.listener.Addr()
}

// Serve accepts connections until ctx is cancelled. On return the listener
// and every live connection are closed. Per-connection failures are logged
// and never stop the loop.
func (f *Forwarder) Serve(ctx context.Context) error {
	if f.Addr() == nil {
		if err := f.Listen(); err != nil {
			return err
		}
	}

	f.mu.Lock()
	ln := f.listener
	f.mu.Unlock()

	f.logger.Info("listening for TCP", "address", ln.Addr().String(), "upstream", f.upstream)

	stop := context.AfterFunc(ctx, f.close)
	defer stop()
	defer f.close()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if f.closed.Load() || ctx.Err() != nil {
				f.connections.Wait()
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				f.logger.Warn("accept failed", "error", err)
				continue
			}
			f.close()
			f.connections.Wait()
			return &proxy.TransportError{Op: "accept", Addr: ln.Addr().String(), Err: err}
		}

		if !f.track(conn) {
			_ = conn.Close()
			continue
		}
		f.connections.Add(1)
		go func() {
			defer f.connections.Done()
			defer f.untrack(conn)
			f.handle(ctx, conn)
		}()
	}
}

// close shuts the listener and every live connection.
func (f *Forwarder) close() {
	if !f.closed.CompareAndSwap(false, true) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listener != nil {
		_ = f.listener.Close()
	}
	for c := range f.conns {
		_ = c.Close()
	}
}

func (f *Forwarder) track(c net.Conn) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed.Load() {
		return false
	}
	f.conns[c] = struct{}{}
	return true
}

func (f *Forwarder) untrack(c net.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conns, c)
}

func (f *Forwarder) handle(ctx context.Context, client net.Conn) {
	defer client.Close()

	ctx = logging.WithConnectionID(ctx, uuid.NewString())
	logger := f.logger.With("client", client.RemoteAddr().String())

	f.metrics.ConnectionOpened()
	defer f.metrics.ConnectionClosed()

	logger.InfoContext(ctx, "client accepted")

	dialer := net.Dialer{Timeout: f.dialTimeout}
	upstream, err := dialer.DialContext(ctx, "tcp", f.upstream)
	if err != nil {
		logger.ErrorContext(ctx, "upstream dial failed",
			"error", &proxy.TransportError{Op: "dial", Addr: f.upstream, Err: err})
		return
	}
	if !f.track(upstream) {
		_ = upstream.Close()
		return
	}
	defer f.untrack(upstream)
	defer upstream.Close()

	sent, received, err := Bridge(client, upstream)
	f.metrics.RecordBytes(metrics.DirectionUpstream, sent)
	f.metrics.RecordBytes(metrics.DirectionDownstream, received)

	if err != nil {
		logger.ErrorContext(ctx, "connection failed",
			"error", err, "bytes_sent", sent, "bytes_received", received)
		return
	}
	logger.InfoContext(ctx, "client disconnected", "bytes_sent", sent, "bytes_received", received)
}

// Bridge copies a→b and b→a concurrently. When one direction reaches EOF
// the opposite write side is half-closed; when one direction fails both
// connections are closed. Expected close errors are not reported. It returns once both directions are done, with
// the byte counts for a→b and b→a and the first unexpected error.
func Bridge(a, b net.Conn) (aToB, bToA int64, err error) {
	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		first   error
	)
	fail := func(e error) {
		errOnce.Do(func() {
			first = e
			_ = a.Close()
			_ = b.Close()
		})
	}

	pipe := func(dst, src net.Conn, n *int64) {
		defer wg.Done()
		copied, copyErr := io.Copy(dst, src)
		atomic.StoreInt64(n, copied)
		if copyErr != nil {
			if IsExpectedCloseError(copyErr) {
				copyErr = nil
			}
			fail(copyErr)
			return
		}
		closeWrite(dst)
	}

	wg.Add(2)
	go pipe(b, a, &aToB)
	go pipe(a, b, &bToA)
	wg.Wait()

	return atomic.LoadInt64(&aToB), atomic.LoadInt64(&bToA), first
}

func closeWrite(c net.Conn) {
	if cw, ok := c.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
		return
	}
	_ = c.Close()
}

// IsExpectedCloseError reports whether err is a normal connection
// termination: EOF, closed connection, broken pipe or connection reset.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
