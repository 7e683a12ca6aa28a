package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"mercator-hq/chproxy/pkg/proxy"
	"mercator-hq/chproxy/pkg/state"
	"mercator-hq/chproxy/pkg/telemetry/metrics"
	"mercator-hq/chproxy/pkg/transcript"
)

// Options configures a Server.
type Options struct {
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// Server reads control datagrams and applies them to the shared state.
type Server struct {
	addr    string
	state   *state.State
	metrics *metrics.Collector
	logger  *slog.Logger

	mu   sync.Mutex
	conn net.PacketConn
}

// NewServer creates a control server bound to addr once Listen is called.
func NewServer(addr string, st *state.State, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:    addr,
		state:   st,
		metrics: opts.Metrics,
		logger:  logger.With("component", "control"),
	}
}

// Listen binds the UDP socket. It returns a *proxy.TransportError on failure.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return fmt.Errorf("control server is already listening")
	}
	conn, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return &proxy.TransportError{Op: "listen", Addr: s.addr, Err: err}
	}
	s.conn = conn
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Serve handles datagrams until a stop command arrives or ctx is cancelled.
// Both end the loop without error.
func (s *Server) Serve(ctx context.Context) error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	s.logger.Info("listening for control commands", "address", conn.LocalAddr().String())

	buf := make([]byte, MaxDatagramSize)
	var backoff time.Duration
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			backoff = nextBackoff(backoff)
			s.logger.Warn("control read failed", "error", err, "retry_in", backoff.String())
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0

		datagram := append([]byte(nil), buf[:n]...)
		s.logger.Debug("control datagram received", "from", from.String(), "bytes", n)

		stopRequested := s.handle(ctx, datagram)

		if _, err := conn.WriteTo([]byte(Ack), from); err != nil {
			s.logger.Warn("control ack failed", "to", from.String(), "error", err)
		}

		if stopRequested {
			s.logger.Info("stop command received")
			return nil
		}
	}
}

// handle applies one datagram and reports whether it was a stop command.
func (s *Server) handle(ctx context.Context, datagram []byte) bool {
	cmd, err := Parse(datagram)
	if err != nil {
		s.metrics.RecordControlCommand("invalid")
		s.logger.Error("invalid control command", "error", err)
		return false
	}
	s.metrics.RecordControlCommand(cmd)

	switch cmd {
	case CommandChangeState:
		mode := s.state.Toggle()
		s.metrics.SetReplayMode(mode == state.ModeReplay)
		s.logger.Info("mode changed", "mode", mode.String())
	case CommandShowDB:
		s.showDB(ctx)
	case CommandStop:
		return true
	}
	return false
}

// showDB logs a summary line and one line per record. The snapshot is taken
// under the state lock; logging happens after it is released.
func (s *Server) showDB(ctx context.Context) {
	mode := s.state.Mode()
	records, err := s.state.Dump(ctx)
	if err != nil {
		s.logger.Error("transcript dump failed", "error", err)
		return
	}

	s.logger.Info("transcript dump", "mode", mode.String(), "records", len(records))
	for _, r := range records {
		s.logger.Info("transcript record",
			"index", r.Index,
			"id", r.ID,
			"status", r.Meta.StatusCode,
			"headers", len(r.Meta.Headers),
			"body_bytes", len(r.Body),
			"body_digest", transcript.Digest(r.Body),
			"body_preview", transcript.Preview(r.Body, transcript.DefaultPreviewBytes),
			"tokens", r.Fingerprint.Tokens(),
			"recorded_at", r.RecordedAt,
		)
	}
}

// Read retry delays double from minReadBackoff up to maxReadBackoff.
const (
	minReadBackoff = 5 * time.Millisecond
	maxReadBackoff = time.Second
)

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minReadBackoff
	}
	return min(2*d, maxReadBackoff)
}
