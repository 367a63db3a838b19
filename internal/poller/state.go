package poller

import (
	"time"

	"github.com/leighmacdonald/steam-friends/internal/config"
)

// Mode is the cadence the scheduler is currently running at.
type Mode int

const (
	// Cold is used when nothing has changed recently.
	Cold Mode = iota
	// Hot is used while the friend list is changing.
	Hot
	// Backoff is forced after too many consecutive failures.
	Backoff
)

func (m Mode) String() string {
	switch m {
	case Hot:
		return "hot"
	case Backoff:
		return "backoff"
	case Cold:
		fallthrough
	default:
		return "cold"
	}
}

// Timing holds the intervals used to pick the next poll.
type Timing struct {
	Hot            time.Duration
	Cold           time.Duration
	HotWindow      time.Duration
	ErrorThreshold int
	ErrorInterval  time.Duration
}

func TimingFromConfig(conf config.Config) Timing {
	return Timing{
		Hot:            conf.PollInterval(),
		Cold:           conf.ColdInterval(),
		HotWindow:      conf.HotWindow(),
		ErrorThreshold: conf.ErrorThreshold,
		ErrorInterval:  conf.ErrorInterval(),
	}
}

// State is the scheduling state of the poller.
type State struct {
	BaseInterval time.Duration
	Interval     time.Duration
	Mode         Mode
	LastChange   time.Time
	Changes      int
	Failures     int
}

// NewState creates the initial state. Until something changes the poller runs cold.
func NewState(timing Timing) State {
	return State{BaseInterval: timing.Hot, Interval: timing.Cold, Mode: Cold}
}

// RecordFailure counts a failed cycle and recalculates the interval.
func (s *State) RecordFailure(timing Timing, now time.Time) {
	s.Failures++
	s.schedule(timing, now)
}

// RecordSuccess resets the failure count, notes a change if there was one and recalculates
// the interval.
func (s *State) RecordSuccess(timing Timing, changed bool, now time.Time) {
	s.Failures = 0
	if changed {
		s.Changes++
		s.LastChange = now
	}

	s.schedule(timing, now)
}

// RecordRateLimited leaves the failure count alone but waits at least a cold interval.
func (s *State) RecordRateLimited(timing Timing) {
	s.Interval = max(s.Interval, timing.Cold)
}

func (s *State) schedule(timing Timing, now time.Time) {
	switch {
	case s.Failures >= timing.ErrorThreshold:
		s.Mode = Backoff
		s.Interval = timing.ErrorInterval
	case !s.LastChange.IsZero() && now.Sub(s.LastChange) <= timing.HotWindow:
		s.Mode = Hot
		s.Interval = timing.Hot
	default:
		s.Mode = Cold
		s.Interval = timing.Cold
	}
}
