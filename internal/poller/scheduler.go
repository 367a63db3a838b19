// Package poller drives the fetch cycle on an adaptive schedule.
//
// The scheduler polls quickly (hot) while the friend list is changing and slowly (cold) when it is
// quiet. Too many consecutive failures force a fixed fallback interval until a fetch succeeds.
// Only a single cycle ever runs at a time.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leighmacdonald/steam-friends/internal/config"
	"github.com/leighmacdonald/steam-friends/internal/friends"
	"github.com/leighmacdonald/steam-friends/internal/notify"
	"github.com/leighmacdonald/steam-friends/internal/steamweb"
)

// Persister is a cache that needs flushing to disk periodically and on shutdown.
type Persister interface {
	Name() string
	MaybePersist() error
	Save() error
}

type commandKind int

const (
	cmdInit commandKind = iota
	cmdSuspend
	cmdResume
	cmdTrigger
)

type command struct {
	kind commandKind
	conf config.Config
}

type outcome struct {
	result     Result
	err        error
	generation uint64
	at         time.Time
}

// Scheduler owns the poll timer and the scheduling state.
type Scheduler struct {
	mu              *sync.RWMutex
	cycle           Cycle
	publisher       notify.Publisher
	caches          []Persister
	conf            config.Config
	timing          Timing
	state           State
	generation      uint64
	suspended       bool
	inFlight        atomic.Bool
	commands        chan command
	done            chan struct{}
	persistInterval time.Duration
	now             func() time.Time
}

func New(conf config.Config, cycle Cycle, publisher notify.Publisher, caches ...Persister) *Scheduler {
	timing := TimingFromConfig(conf)
	cycle.Gate = &friends.ChangeGate{}

	persistInterval := conf.Cache.PersistInterval()
	if persistInterval <= 0 {
		persistInterval = time.Minute
	}

	return &Scheduler{
		mu:              &sync.RWMutex{},
		cycle:           cycle,
		publisher:       publisher,
		caches:          caches,
		conf:            conf,
		timing:          timing,
		state:           NewState(timing),
		commands:        make(chan command, 8),
		done:            make(chan struct{}),
		persistInterval: persistInterval,
		now:             time.Now,
	}
}

// State returns a copy of the current scheduling state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// Suspended reports whether scheduled polling is paused.
func (s *Scheduler) Suspended() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.suspended
}

// Init replaces the configuration, resets all scheduling state and fetches immediately.
func (s *Scheduler) Init(conf config.Config) {
	s.send(command{kind: cmdInit, conf: conf})
}

// Suspend stops scheduling new cycles. A cycle already running is allowed to finish.
func (s *Scheduler) Suspend() {
	s.send(command{kind: cmdSuspend})
}

// Resume fetches immediately and then continues on the normal schedule.
func (s *Scheduler) Resume() {
	s.send(command{kind: cmdResume})
}

// Trigger requests an immediate fetch. It does nothing if a cycle is already running.
func (s *Scheduler) Trigger() {
	s.send(command{kind: cmdTrigger})
}

func (s *Scheduler) send(cmd command) {
	select {
	case s.commands <- cmd:
	case <-s.done:
	}
}

// Start runs the scheduler until the context is cancelled. The first cycle starts right away. On
// exit any running cycle is waited for and the caches are saved.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	persistTicker := time.NewTicker(s.persistInterval)
	defer persistTicker.Stop()

	results := make(chan outcome, 1)

	for {
		select {
		case <-ctx.Done():
			s.shutdown(results)

			return
		case <-timer.C:
			s.launch(ctx, results)
		case out := <-results:
			rerun := s.complete(out)
			switch {
			case rerun:
				s.launch(ctx, results)
			case !s.Suspended():
				timer.Reset(s.State().Interval)
			}
		case cmd := <-s.commands:
			s.handle(ctx, cmd, timer, results)
		case <-persistTicker.C:
			s.persist()
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, cmd command, timer *time.Timer, results chan outcome) {
	switch cmd.kind {
	case cmdInit:
		timer.Stop()
		s.mu.Lock()
		s.conf = cmd.conf
		s.timing = TimingFromConfig(cmd.conf)
		s.state = NewState(s.timing)
		s.generation++
		s.suspended = false
		s.cycle.Gate = &friends.ChangeGate{}
		s.mu.Unlock()
		slog.Info("Poller initialised", slog.Duration("hot", s.timing.Hot), slog.Duration("cold", s.timing.Cold))
		s.launch(ctx, results)
	case cmdSuspend:
		timer.Stop()
		s.mu.Lock()
		s.suspended = true
		s.mu.Unlock()
		slog.Info("Poller suspended")
	case cmdResume:
		s.mu.Lock()
		s.suspended = false
		s.mu.Unlock()
		slog.Info("Poller resumed")
		s.launch(ctx, results)
	case cmdTrigger:
		s.launch(ctx, results)
	}
}

// launch starts a cycle in the background unless one is already running.
func (s *Scheduler) launch(ctx context.Context, results chan<- outcome) {
	if !s.inFlight.CompareAndSwap(false, true) {
		slog.Debug("Poll cycle already running, skipping")

		return
	}

	s.mu.RLock()
	cycle, conf, generation := s.cycle, s.conf, s.generation
	s.mu.RUnlock()

	go func() {
		result, err := cycle.Run(ctx, conf)
		results <- outcome{result: result, err: err, generation: generation, at: s.now()}
	}()
}

// complete applies a finished cycle to the state and publishes anything worth publishing. It returns
// true when the result belonged to a previous configuration and a new cycle should start at once.
func (s *Scheduler) complete(out outcome) bool {
	defer s.inFlight.Store(false)

	s.mu.Lock()
	if out.generation != s.generation {
		rerun := !s.suspended
		s.mu.Unlock()
		slog.Debug("Discarding cycle started before reconfiguration")

		return rerun
	}

	previous := s.state.Mode

	switch {
	case out.err == nil:
		s.state.RecordSuccess(s.timing, out.result.Changed, out.at)
	case errors.Is(out.err, context.Canceled):
		s.mu.Unlock()

		return false
	case errors.Is(out.err, steamweb.ErrRateLimited):
		s.state.RecordRateLimited(s.timing)
	default:
		s.state.RecordFailure(s.timing, out.at)
	}

	state := s.state
	s.mu.Unlock()

	if state.Mode != previous {
		slog.Info("Poll mode changed", slog.String("from", previous.String()),
			slog.String("to", state.Mode.String()), slog.Duration("interval", state.Interval))
	}

	switch {
	case out.err == nil && out.result.Changed:
		s.publisher.OnSnapshot(notify.Snapshot{
			Friends:     out.result.Friends,
			Fingerprint: out.result.Fingerprint.String(),
			Changes:     state.Changes,
			At:          out.at,
		})
	case errors.Is(out.err, steamweb.ErrRateLimited):
		slog.Warn("Friend list rate limited", slog.Duration("next", state.Interval))
	case out.err != nil:
		slog.Error("Poll cycle failed", slog.Int("failures", state.Failures), slog.String("error", out.err.Error()))
		s.publisher.OnFetchError(notify.FetchError{
			Message:  out.err.Error(),
			Failures: state.Failures,
			At:       out.at,
		})
	}

	return false
}

func (s *Scheduler) persist() {
	for _, cache := range s.caches {
		if err := cache.MaybePersist(); err != nil {
			slog.Warn("Cache not persisted", slog.String("cache", cache.Name()), slog.String("error", err.Error()))
		}
	}
}

func (s *Scheduler) shutdown(results <-chan outcome) {
	if s.inFlight.Load() {
		<-results
		s.inFlight.Store(false)
	}

	for _, cache := range s.caches {
		if err := cache.Save(); err != nil {
			slog.Error("Failed to save cache on shutdown", slog.String("cache", cache.Name()),
				slog.String("error", err.Error()))
		}
	}
}
