package control

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/chproxy/pkg/ngram"
	"mercator-hq/chproxy/pkg/state"
	"mercator-hq/chproxy/pkg/transcript"
	"mercator-hq/chproxy/pkg/transcript/storage"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    string
		wantErr bool
	}{
		{name: "change state", input: []byte("change state"), want: CommandChangeState},
		{name: "trailing newline", input: []byte("change state\n"), want: CommandChangeState},
		{name: "show db padded", input: []byte("  show db \r\n"), want: CommandShowDB},
		{name: "stop", input: []byte("stop"), want: CommandStop},
		{name: "unknown", input: []byte("drop tables"), wantErr: true},
		{name: "case sensitive", input: []byte("STOP"), wantErr: true},
		{name: "empty", input: []byte(""), wantErr: true},
		{name: "invalid utf8", input: []byte{0xff, 0xfe}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				var pe *ParseError
				if !errors.As(err, &pe) {
					t.Fatalf("Parse() error = %v, want *ParseError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse() = %q, want %q", got, tt.want)
			}
		})
	}
}

type harness struct {
	state *state.State
	addr  string
	logs  *syncBuffer
	done  chan error
}

func startServer(t *testing.T) *harness {
	t.Helper()
	st := state.New(storage.NewMemoryStorage())
	t.Cleanup(func() { _ = st.Close() })

	logs := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	srv := NewServer("127.0.0.1:0", st, Options{Logger: logger})
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{state: st, addr: srv.Addr().String(), logs: logs, done: make(chan error, 1)}
	finished := make(chan struct{})
	go func() {
		h.done <- srv.Serve(ctx)
		close(finished)
	}()
	t.Cleanup(func() {
		cancel()
		<-finished
	})
	return h
}

func (h *harness) send(t *testing.T, command string) {
	t.Helper()
	reply, err := Send(context.Background(), h.addr, command)
	if err != nil {
		t.Fatalf("Send(%q) failed: %v", command, err)
	}
	if reply != Ack {
		t.Fatalf("Send(%q) reply = %q, want %q", command, reply, Ack)
	}
}

func TestServer_ChangeState(t *testing.T) {
	h := startServer(t)

	h.send(t, "change state")
	// The ack is sent after the toggle, so the new mode is already visible.
	if got := h.state.Mode(); got != state.ModeReplay {
		t.Errorf("mode = %v, want replay", got)
	}

	h.send(t, "change state\n")
	if got := h.state.Mode(); got != state.ModeRecord {
		t.Errorf("mode = %v, want record", got)
	}
}

func TestServer_InvalidCommandsAreAcked(t *testing.T) {
	h := startServer(t)

	h.send(t, "reboot")
	h.send(t, string([]byte{0xff, 0xfe, 0xfd}))

	if got := h.state.Mode(); got != state.ModeRecord {
		t.Errorf("mode = %v, want record", got)
	}
	if !strings.Contains(h.logs.String(), "invalid control command") {
		t.Errorf("expected invalid command log, got:\n%s", h.logs.String())
	}
}

func TestServer_ShowDB(t *testing.T) {
	h := startServer(t)

	for _, body := range []string{"R0", "R1"} {
		_, err := h.state.Append(context.Background(), &transcript.Record{
			Fingerprint: ngram.New("select " + body),
			Body:        []byte(body),
			Meta:        transcript.ResponseMeta{StatusCode: 200},
		})
		if err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
	}

	h.send(t, "show db")

	out := h.logs.String()
	if !strings.Contains(out, "records=2") {
		t.Errorf("dump summary missing:\n%s", out)
	}
	if n := strings.Count(out, "transcript record"); n != 2 {
		t.Errorf("dump logged %d records, want 2:\n%s", n, out)
	}
	if n, _ := h.state.Len(context.Background()); n != 2 {
		t.Errorf("show db changed the transcript: len = %d", n)
	}
}

func TestServer_Stop(t *testing.T) {
	h := startServer(t)

	h.send(t, "stop")

	select {
	case err := <-h.done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after stop")
	}
}

func TestServer_ContextCancel(t *testing.T) {
	st := state.New(storage.NewMemoryStorage())
	defer st.Close()

	srv := NewServer("127.0.0.1:0", st, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

// failingConn is a bound socket whose reads always fail.
type failingConn struct {
	net.PacketConn
	reads atomic.Int32
}

func (c *failingConn) ReadFrom([]byte) (int, net.Addr, error) {
	c.reads.Add(1)
	return 0, nil, errors.New("read: network is down")
}

func TestServer_ReadErrorsBackOff(t *testing.T) {
	st := state.New(storage.NewMemoryStorage())
	defer st.Close()

	srv := NewServer("127.0.0.1:0", st, Options{})
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}
	conn := &failingConn{PacketConn: srv.conn}
	srv.conn = conn

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	// 5+10+20+40ms of backoff fit in 100ms; a busy loop would read thousands of times.
	if n := conn.reads.Load(); n < 2 || n > 10 {
		t.Errorf("reads = %d, want a handful", n)
	}
}

func TestNextBackoff(t *testing.T) {
	want := []time.Duration{5 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond}
	var d time.Duration
	for i, w := range want {
		d = nextBackoff(d)
		if d != w {
			t.Errorf("step %d = %v, want %v", i, d, w)
		}
	}
	for i := 0; i < 20; i++ {
		d = nextBackoff(d)
	}
	if d != maxReadBackoff {
		t.Errorf("backoff = %v, want cap %v", d, maxReadBackoff)
	}
}

func TestSend_NoServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if _, err := Send(ctx, "127.0.0.1:1", "stop"); err == nil {
		t.Error("Send() to a closed port expected error")
	}
}

func TestSend_TooLong(t *testing.T) {
	if _, err := Send(context.Background(), "127.0.0.1:1", strings.Repeat("x", MaxDatagramSize+1)); err == nil {
		t.Error("Send() with oversized command expected error")
	}
}
