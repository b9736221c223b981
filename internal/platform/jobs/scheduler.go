// Package jobs runs the periodic background work: the dashboard refresh and
// the appointment retention sweep.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const defaultTimeout = time.Minute

// Func is one run of a job. The context is cancelled when the run times out
// or the scheduler stops.
type Func func(ctx context.Context) error

type Entry struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev"`
}

type Scheduler struct {
	cron    *cron.Cron
	log     zerolog.Logger
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	specs map[cron.EntryID]Entry
}

type Option func(*Scheduler)

// WithTimeout bounds each run. The default is one minute.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

func New(logger zerolog.Logger, opts ...Option) *Scheduler {
	log := logger.With().Str("component", "jobs").Logger()
	cl := cronLogger{log}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		log:     log,
		timeout: defaultTimeout,
		ctx:     ctx,
		cancel:  cancel,
		specs:   map[cron.EntryID]Entry{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Every schedules fn. spec is a five-field cron expression or a descriptor
// such as "@every 30s".
func (s *Scheduler) Every(spec, name string, fn Func) error {
	id, err := s.cron.AddFunc(spec, func() { s.run(name, fn) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.mu.Lock()
	s.specs[id] = Entry{Name: name, Spec: spec}
	s.mu.Unlock()
	s.log.Info().Str("job", name).Str("spec", spec).Msg("job scheduled")
	return nil
}

func (s *Scheduler) run(name string, fn Func) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	ev := s.log.Debug()
	if err != nil {
		ev = s.log.Error().Err(err)
	}
	ev.Str("job", name).Dur("duration", time.Since(start)).Msg("job finished")
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries lists scheduled jobs with their next and previous run times.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Entry
	for _, e := range s.cron.Entries() {
		entry, ok := s.specs[e.ID]
		if !ok {
			continue
		}
		entry.Next = e.Next
		entry.Prev = e.Prev
		out = append(out, entry)
	}
	return out
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
