package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is work run by the scheduler. A panic in a job is contained per run.
type Job func()

// Scheduler runs named background jobs: repeating ones on a fixed interval
// and one-shots after a delay. Registering a name again replaces the
// previous job.
type Scheduler struct {
	mu     sync.Mutex
	jobs   map[string]chan struct{}
	logger *zap.Logger
	stopCh chan struct{}
}

// New creates a Scheduler.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		jobs:   make(map[string]chan struct{}),
		stopCh: make(chan struct{}),
		logger: logger,
	}
}

// Every schedules fn on a fixed interval, with an immediate first run.
// Maintenance jobs registered at boot should not wait a full interval
// before their first pass.
func (s *Scheduler) Every(name string, interval time.Duration, fn Job) {
	cancel := s.register(name)

	go func() {
		s.run(name, fn)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.run(name, fn)
			case <-cancel:
				return
			case <-s.stopCh:
				return
			}
		}
	}()
	s.logger.Info("job scheduled",
		zap.String("name", name),
		zap.Duration("interval", interval))
}

// Once runs fn a single time after the delay, then forgets the job.
func (s *Scheduler) Once(name string, delay time.Duration, fn Job) {
	cancel := s.register(name)

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			s.run(name, fn)
			s.forget(name, cancel)
		case <-cancel:
		case <-s.stopCh:
		}
	}()
}

// Cancel stops and removes a job by name. Unknown names are a no-op.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.jobs[name]; ok {
		close(cancel)
		delete(s.jobs, name)
	}
}

// Stop stops all jobs. Safe to call more than once.
func (s *Scheduler) Stop() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
}

// Jobs returns the names of all registered jobs.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// register claims a name, cancelling any job already using it, and returns
// the new job's cancel channel.
func (s *Scheduler) register(name string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.jobs[name]; ok {
		close(old)
	}
	cancel := make(chan struct{})
	s.jobs[name] = cancel
	return cancel
}

// forget drops a finished one-shot, unless the name was already reclaimed
// by a newer registration.
func (s *Scheduler) forget(name string, cancel chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.jobs[name]; ok && current == cancel {
		delete(s.jobs, name)
	}
}

func (s *Scheduler) run(name string, fn Job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked",
				zap.String("job", name),
				zap.Any("recover", r))
		}
	}()
	fn()
}
