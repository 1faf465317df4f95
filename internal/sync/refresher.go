package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/giftcard-console/internal/api"
	"github.com/nhle/giftcard-console/internal/logging"
)

// JobState represents the current state of a refresh job.
type JobState int

const (
	JobIdle JobState = iota
	JobRunning
	JobError
)

func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "running"
	case JobError:
		return "error"
	default:
		return "idle"
	}
}

// JobStatus holds the refresh state for a single job.
type JobStatus struct {
	Name    string
	State   JobState
	LastRun time.Time
	Error   error
}

// RefreshResultMsg is a tea.Msg sent when a refresh job completes.
type RefreshResultMsg struct {
	Job       string
	Error     error
	AuthError *AuthErrorMsg
}

// AuthErrorMsg is a tea.Msg sent when a job fails because the session is
// no longer accepted.
type AuthErrorMsg struct {
	Job     string
	Message string
}

// Job is a forced refetch run on an interval.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// runTimeout is the maximum time allowed for a single job run.
const runTimeout = 30 * time.Second

// defaultInterval applies to jobs registered without an interval.
const defaultInterval = 60 * time.Second

type jobEntry struct {
	job     Job
	trigger chan struct{}
}

// Refresher orchestrates the periodic refetch of cached server data.
type Refresher struct {
	logger   *zap.Logger
	now      func() time.Time
	jobs     []*jobEntry
	statuses map[string]*JobStatus
	resultCh chan RefreshResultMsg
	stopCh   chan struct{}
	wg       gosync.WaitGroup
	mu       gosync.Mutex
	running  bool
	stopped  bool
}

// New creates a Refresher. A nil logger discards output.
func New(logger *zap.Logger) *Refresher {
	return &Refresher{
		logger:   logging.OrNop(logger),
		now:      time.Now,
		statuses: make(map[string]*JobStatus),
		resultCh: make(chan RefreshResultMsg, 16),
		stopCh:   make(chan struct{}),
	}
}

// Register adds a job. Jobs registered after Start are not scheduled.
func (r *Refresher) Register(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job.Interval <= 0 {
		job.Interval = defaultInterval
	}
	r.jobs = append(r.jobs, &jobEntry{job: job, trigger: make(chan struct{}, 1)})
	r.statuses[job.Name] = &JobStatus{Name: job.Name, State: JobIdle}
}

// Start launches one goroutine per job and returns a tea.Cmd that waits
// for the first result.
func (r *Refresher) Start() tea.Cmd {
	r.mu.Lock()
	if r.running || r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	jobs := append([]*jobEntry(nil), r.jobs...)
	r.mu.Unlock()

	for _, entry := range jobs {
		r.wg.Add(1)
		go r.loop(entry)
	}

	return r.waitForResult()
}

// Stop halts every job loop and waits for in-progress runs to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.running = false
	close(r.stopCh)
	r.mu.Unlock()

	r.wg.Wait()
}

// RefreshAll triggers an immediate run of every job.
func (r *Refresher) RefreshAll() tea.Cmd {
	r.mu.Lock()
	jobs := append([]*jobEntry(nil), r.jobs...)
	r.mu.Unlock()

	for _, entry := range jobs {
		poke(entry.trigger)
	}
	return nil
}

// RefreshJob triggers an immediate run of the named job.
func (r *Refresher) RefreshJob(name string) tea.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.jobs {
		if entry.job.Name == name {
			poke(entry.trigger)
		}
	}
	return nil
}

// poke queues a trigger unless one is already pending.
func poke(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Statuses returns the current status of every job in registration order.
func (r *Refresher) Statuses() []JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make([]JobStatus, 0, len(r.jobs))
	for _, entry := range r.jobs {
		statuses = append(statuses, *r.statuses[entry.job.Name])
	}
	return statuses
}

// Status returns the status of the named job.
func (r *Refresher) Status(name string) (JobStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.statuses[name]
	if !ok {
		return JobStatus{}, false
	}
	return *st, true
}

func (r *Refresher) loop(entry *jobEntry) {
	defer r.wg.Done()

	ticker := time.NewTicker(entry.job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.runJob(entry.job)
		case <-entry.trigger:
			r.runJob(entry.job)
		}
	}
}

// runJob performs one run and reports the result.
func (r *Refresher) runJob(job Job) {
	r.setStatus(job.Name, JobRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	err := job.Run(ctx)
	if err != nil {
		r.setStatus(job.Name, JobError, err)
		r.logger.Warn("refresh failed", zap.String("job", job.Name), zap.Error(err))

		if api.IsAuthError(err) {
			r.sendResult(RefreshResultMsg{
				Job:   job.Name,
				Error: err,
				AuthError: &AuthErrorMsg{
					Job:     job.Name,
					Message: fmt.Sprintf("%s: %s", job.Name, api.ErrorMessage(err)),
				},
			})
			return
		}

		r.sendResult(RefreshResultMsg{Job: job.Name, Error: err})
		return
	}

	r.setStatus(job.Name, JobIdle, nil)
	r.sendResult(RefreshResultMsg{Job: job.Name})
}

func (r *Refresher) setStatus(name string, state JobState, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, ok := r.statuses[name]
	if !ok {
		return
	}

	status.State = state
	status.Error = err
	if state != JobRunning {
		status.LastRun = r.now()
	}
}

// sendResult delivers msg without blocking the job loop.
func (r *Refresher) sendResult(msg RefreshResultMsg) {
	select {
	case r.resultCh <- msg:
	default:
		r.logger.Debug("refresh result dropped", zap.String("job", msg.Job))
	}
}

func (r *Refresher) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case result := <-r.resultCh:
			return result
		case <-r.stopCh:
			return nil
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next refresh
// result. Call it after handling a RefreshResultMsg to keep listening.
func (r *Refresher) WaitForNextResult() tea.Cmd {
	return r.waitForResult()
}
