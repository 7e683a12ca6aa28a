package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrShutdownTimeout is joined to the first task's error when other tasks
// outlive the shutdown timeout. After an orderly stop the timeout is only
// logged.
var ErrShutdownTimeout = errors.New("tasks did not stop within shutdown timeout")

// Task is one long-running component. It must return once ctx is cancelled.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Supervisor runs a fixed set of tasks and stops all of them as soon as one
// returns. Tasks are never restarted.
type Supervisor struct {
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// New creates a Supervisor. A zero timeout waits indefinitely for tasks to stop.
func New(shutdownTimeout time.Duration, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		shutdownTimeout: shutdownTimeout,
		logger:          logger.With("component", "supervisor"),
	}
}

type result struct {
	name string
	err  error
}

// Run starts every task and waits for the first one to return, or for ctx to
// be cancelled. It then cancels the rest and gives them shutdownTimeout to
// return. The error of the first task to finish is returned; a task returning
// nil, or cancellation of ctx, is an orderly stop and yields nil even when
// some task is slow to return.
func (s *Supervisor) Run(ctx context.Context, tasks ...Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan result, len(tasks))
	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()
			results <- result{name: task.Name, err: runTask(ctx, task)}
		}(task)
	}

	var first result
	select {
	case first = <-results:
		if first.err != nil {
			s.logger.Error("task failed, stopping", "task", first.name, "error", first.err)
		} else {
			s.logger.Info("task finished, stopping", "task", first.name)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
	}
	cancel()

	if err := s.wait(&wg); err != nil {
		// Tasks still running are abandoned.
		if first.err != nil {
			return errors.Join(fmt.Errorf("%s: %w", first.name, first.err), err)
		}
		return nil
	}

	// Report errors from tasks that failed while shutting down.
	close(results)
	for r := range results {
		if r.err != nil && !errors.Is(r.err, context.Canceled) {
			s.logger.Warn("task returned error during shutdown", "task", r.name, "error", r.err)
		}
	}

	if first.err != nil {
		return fmt.Errorf("%s: %w", first.name, first.err)
	}
	return nil
}

func (s *Supervisor) wait(wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	if s.shutdownTimeout <= 0 {
		<-done
		return nil
	}

	timer := time.NewTimer(s.shutdownTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		s.logger.Error("tasks did not stop in time", "timeout", s.shutdownTimeout.String())
		return ErrShutdownTimeout
	}
}

func runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task.Run(ctx)
}
