// Package notify defines the events emitted by the poller and a few sinks for them.
package notify

import (
	"time"

	"github.com/leighmacdonald/steam-friends/internal/cache"
	"github.com/leighmacdonald/steam-friends/internal/friends"
)

// Snapshot is a complete, ordered replacement of the friend list. It is only emitted when the list
// differs from the previous one.
type Snapshot struct {
	Friends     []friends.Friend
	Fingerprint string
	// Changes is the number of changes seen since the poller was (re)initialised.
	Changes int
	At      time.Time
}

// FetchError is emitted every time a poll cycle fails to fetch the friend list.
type FetchError struct {
	Message string
	// Failures is the number of consecutive failed cycles.
	Failures int
	At       time.Time
}

// Publisher receives everything the poller has to report.
type Publisher interface {
	cache.HealthReporter
	OnSnapshot(snapshot Snapshot)
	OnFetchError(fetchErr FetchError)
}

// Multi fans events out to each publisher in order.
type Multi []Publisher

func (m Multi) OnSnapshot(snapshot Snapshot) {
	for _, publisher := range m {
		publisher.OnSnapshot(snapshot)
	}
}

func (m Multi) OnFetchError(fetchErr FetchError) {
	for _, publisher := range m {
		publisher.OnFetchError(fetchErr)
	}
}

func (m Multi) OnCacheUnhealthy(health cache.Health) {
	for _, publisher := range m {
		publisher.OnCacheUnhealthy(health)
	}
}

// Channel forwards events to a channel as `any`, letting a single loop consume all event types.
// Sends block, so the consumer must keep up.
type Channel chan<- any

func (c Channel) OnSnapshot(snapshot Snapshot) {
	c <- snapshot
}

func (c Channel) OnFetchError(fetchErr FetchError) {
	c <- fetchErr
}

func (c Channel) OnCacheUnhealthy(health cache.Health) {
	c <- health
}
