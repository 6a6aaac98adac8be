package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"animrender/internal/pkg/errors"
)

// ErrInvalidTransition is returned when a write would violate the job state machine.
var ErrInvalidTransition = errors.New(errors.CodeInvalidState, "invalid job state transition")

// Listener observes committed job changes. It is called outside the registry
// lock with a snapshot of the record.
type Listener interface {
	JobChanged(ctx context.Context, job Job)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, job Job)

func (f ListenerFunc) JobChanged(ctx context.Context, job Job) { f(ctx, job) }

// Registry is the process-wide job table. Records are never evicted or persisted.
type Registry struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	inFlight  atomic.Int64
	listeners []Listener
	now       func() time.Time
}

func NewRegistry(listeners ...Listener) *Registry {
	return &Registry{
		jobs:      make(map[string]*Job),
		listeners: listeners,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a pending job. Existing ids are rejected and left untouched.
func (r *Registry) Create(ctx context.Context, job Job) (Job, error) {
	if err := ValidateID(job.ID); err != nil {
		return Job{}, err
	}
	if job.Quality == "" {
		job.Quality = DefaultQuality
	}
	job.Status = StatusPending
	job.URL = ""
	job.Error = ""
	job.CreatedAt = r.now()
	job.StartedAt = nil
	job.FinishedAt = nil

	r.mu.Lock()
	if _, exists := r.jobs[job.ID]; exists {
		r.mu.Unlock()
		return Job{}, errors.AlreadyExists("job", job.ID)
	}
	rec := job
	r.jobs[job.ID] = &rec
	r.mu.Unlock()

	r.notify(ctx, job)
	return job, nil
}

// Get returns a snapshot of the job.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *rec, true
}

// Len is the number of jobs ever created.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// MarkProcessing moves a pending job to processing.
func (r *Registry) MarkProcessing(ctx context.Context, id, message string) error {
	return r.update(ctx, id, func(j *Job) error {
		if j.Status != StatusPending {
			return r.invalid(j, StatusProcessing)
		}
		now := r.now()
		j.Status = StatusProcessing
		j.Message = message
		j.StartedAt = &now
		return nil
	})
}

// SetMessage replaces the progress note of a processing job.
func (r *Registry) SetMessage(ctx context.Context, id, message string) error {
	return r.update(ctx, id, func(j *Job) error {
		if j.Status != StatusProcessing {
			return errors.Wrap(ErrInvalidTransition, "jobs.message",
				"cannot update message of "+string(j.Status)+" job")
		}
		j.Message = message
		return nil
	})
}

// Complete records the artifact url of a processing job.
func (r *Registry) Complete(ctx context.Context, id, url, message string) error {
	return r.update(ctx, id, func(j *Job) error {
		if j.Status != StatusProcessing {
			return r.invalid(j, StatusCompleted)
		}
		now := r.now()
		j.Status = StatusCompleted
		j.URL = url
		j.Error = ""
		j.Message = message
		j.FinishedAt = &now
		return nil
	})
}

// Fail records the diagnostic of a pending or processing job.
func (r *Registry) Fail(ctx context.Context, id, errText, message string) error {
	return r.update(ctx, id, func(j *Job) error {
		if j.Status.Terminal() {
			return r.invalid(j, StatusFailed)
		}
		now := r.now()
		if j.StartedAt == nil {
			j.StartedAt = &now
		}
		j.Status = StatusFailed
		j.URL = ""
		j.Error = errText
		j.Message = message
		j.FinishedAt = &now
		return nil
	})
}

// BeginRun and EndRun bracket an executor run; InFlight reports the difference.
func (r *Registry) BeginRun() { r.inFlight.Add(1) }

func (r *Registry) EndRun() { r.inFlight.Add(-1) }

func (r *Registry) InFlight() int64 { return r.inFlight.Load() }

func (r *Registry) update(ctx context.Context, id string, fn func(*Job) error) error {
	r.mu.Lock()
	rec, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return errors.NotFound("job", id)
	}
	next := *rec
	if err := fn(&next); err != nil {
		r.mu.Unlock()
		return err
	}
	*rec = next
	r.mu.Unlock()

	r.notify(ctx, next)
	return nil
}

func (r *Registry) invalid(j *Job, to Status) error {
	return errors.Wrap(ErrInvalidTransition, "jobs.transition",
		"job "+j.ID+": cannot move from "+string(j.Status)+" to "+string(to)).
		WithField("from", string(j.Status)).
		WithField("to", string(to))
}

func (r *Registry) notify(ctx context.Context, job Job) {
	for _, l := range r.listeners {
		l.JobChanged(ctx, job)
	}
}
