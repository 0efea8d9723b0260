// Package jobmgr runs named background jobs owned by a single lifecycle scope.
//
// Every job receives a context derived from the manager's context. When a job
// returns an error (or panics) while its context is still live, the failure is
// handed to the manager's FailureReporter instead of vanishing with the
// goroutine. Jobs that end because they were cancelled are never reported.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(ctx, func(name string, err error) {
//	    log.Printf("job %s failed: %v", name, err)
//	})
//
//	_ = jm.StartAsync("warmup", func(ctx context.Context) error {
//	    return warmup(ctx)
//	})
//
//	// later...
//	jm.Close()
package jobmgr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// FailureReporter receives the failure of a job that was not cancelled.
type FailureReporter func(name string, err error)

// Job represents a running unit of work.
// Jobs are added and removed by Manager automatically.
type Job struct {
	Name   string
	Cancel context.CancelFunc
}

// PanicError is reported when a job panics.
type PanicError struct {
	Job   string
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job %q panicked: %v", e.Job, e.Value)
}

// Manager orchestrates starting, stopping and tracking jobs.
// It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	closed   bool
	reporter FailureReporter
}

// NewManager creates a Manager whose jobs are cancelled when parent is done or
// Close is called. The reporter may be nil.
func NewManager(parent context.Context, reporter FailureReporter) *Manager {
	ctx, cancel := context.WithCancel(parent)
	return &Manager{
		jobs:     make(map[string]*Job),
		ctx:      ctx,
		cancel:   cancel,
		reporter: reporter,
	}
}

// StartAsync runs a job in a separate goroutine and returns immediately.
// If a job with the same name is already running, or the manager is closed,
// an error is returned. Jobs are removed automatically after completion.
func (m *Manager) StartAsync(name string, runner func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("job manager closed, cannot start '%s'", name)
	}
	if _, exists := m.jobs[name]; exists {
		return fmt.Errorf("job '%s' is already running", name)
	}

	ctx, cancel := context.WithCancel(m.ctx)
	job := &Job{Name: name, Cancel: cancel}
	m.jobs[name] = job

	m.wg.Add(1)
	go m.run(ctx, job, runner)
	return nil
}

func (m *Manager) run(ctx context.Context, job *Job, runner func(ctx context.Context) error) {
	defer m.wg.Done()
	defer job.Cancel()

	err := safeRun(ctx, job.Name, runner)

	m.mu.Lock()
	if m.jobs[job.Name] == job {
		delete(m.jobs, job.Name)
	}
	m.mu.Unlock()

	if err == nil || ctx.Err() != nil {
		return
	}
	m.report(job.Name, err)
}

func safeRun(ctx context.Context, name string, runner func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Job: name, Value: r}
		}
	}()
	return runner(ctx)
}

// Stop cancels a running job by name.
// If the job is not running, an error is returned.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("job '%s' not running", name)
	}

	job.Cancel()
	delete(m.jobs, name)
	return nil
}

// Close cancels every running job and waits for them to return. Failures of
// jobs still running at close time are not reported. Close is idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}

// Context returns the manager's lifecycle context.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// List returns the sorted list of active job names.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Status returns a human-readable summary of active jobs.
// Example:
//
//	"Running jobs: display, init"
//
// If none are running: "No jobs are running."
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(active, ", "))
}

// report delivers failures to the reporter if present.
func (m *Manager) report(name string, err error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()

	if closed || m.reporter == nil {
		return
	}
	m.reporter(name, err)
}
