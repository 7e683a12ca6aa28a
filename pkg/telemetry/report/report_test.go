package report

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/chproxy/pkg/state"
)

type fakeSource struct {
	stats state.Stats
	err   error
}

func (f *fakeSource) Stats(ctx context.Context) (state.Stats, error) {
	return f.stats, f.err
}

type fakeGauges struct {
	mu      sync.Mutex
	records int
	replay  bool
}

func (g *fakeGauges) SetTranscriptRecords(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.records = n
}

func (g *fakeGauges) SetReplayMode(replay bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replay = replay
}

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

func testLogger(buf *syncBuffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestScheduler_Report(t *testing.T) {
	buf := &syncBuffer{}
	source := &fakeSource{stats: state.Stats{Mode: state.ModeReplay, Records: 4, Appends: 4, Replays: 9}}
	gauges := &fakeGauges{}

	s := NewScheduler(source, gauges, "@every 1h", testLogger(buf))
	s.Report(context.Background())

	out := buf.String()
	for _, want := range []string{"transcript report", "mode=replay", "records=4", "replays=9"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
	if gauges.records != 4 || !gauges.replay {
		t.Errorf("gauges = (%d, %v), want (4, true)", gauges.records, gauges.replay)
	}
}

func TestScheduler_ReportError(t *testing.T) {
	buf := &syncBuffer{}
	source := &fakeSource{err: errors.New("store closed")}

	s := NewScheduler(source, nil, "@every 1h", testLogger(buf))
	s.Report(context.Background())

	if !strings.Contains(buf.String(), "transcript report failed") {
		t.Errorf("expected failure log, got: %s", buf.String())
	}
}

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantErr     bool
		wantRunning bool
	}{
		{name: "empty schedule disables", schedule: "", wantRunning: false},
		{name: "descriptor", schedule: "@every 15m", wantRunning: true},
		{name: "standard cron", schedule: "0 * * * *", wantRunning: true},
		{name: "invalid", schedule: "not a schedule", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(&fakeSource{}, nil, tt.schedule, testLogger(&syncBuffer{}))
			err := s.Start(context.Background())
			defer s.Stop()

			if (err != nil) != tt.wantErr {
				t.Fatalf("Start() error = %v, wantErr %v", err, tt.wantErr)
			}
			if s.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", s.IsRunning(), tt.wantRunning)
			}
			if tt.wantRunning && s.NextRun() == nil {
				t.Error("NextRun() = nil for a running scheduler")
			}
		})
	}
}

func TestScheduler_FiresOnSchedule(t *testing.T) {
	buf := &syncBuffer{}
	s := NewScheduler(&fakeSource{stats: state.Stats{Records: 1}}, nil, "@every 1s", testLogger(buf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for !strings.Contains(buf.String(), "records=1") {
		if time.Now().After(deadline) {
			t.Fatal("report did not fire within 3s")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v", err)
	}
	if s.IsRunning() {
		t.Error("scheduler still running after Run returned")
	}
}
