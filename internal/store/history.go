package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/leighmacdonald/steam-friends/internal/cache"
	"github.com/leighmacdonald/steam-friends/internal/notify"
)

var errHistory = errors.New("failed to record history")

const writeTimeout = 10 * time.Second

// History records published snapshots and failures for later inspection. Events are queued and written
// by Start so that publishing never waits on the database.
type History struct {
	db     *Queries
	keep   int64
	events chan any
}

func NewHistory(conn *Queries, keep int) *History {
	return &History{db: conn, keep: int64(max(1, keep)), events: make(chan any, 32)}
}

func (h *History) OnSnapshot(snapshot notify.Snapshot) {
	h.enqueue(snapshot)
}

func (h *History) OnFetchError(fetchErr notify.FetchError) {
	h.enqueue(fetchErr)
}

func (h *History) OnCacheUnhealthy(health cache.Health) {
	h.enqueue(health)
}

func (h *History) enqueue(event any) {
	select {
	case h.events <- event:
	default:
		slog.Warn("History queue full, dropping event")
	}
}

// Start writes queued events until the context is cancelled, then drains what is left.
func (h *History) Start(ctx context.Context) {
	for {
		select {
		case event := <-h.events:
			h.handle(ctx, event)
		case <-ctx.Done():
			h.drain()

			return
		}
	}
}

func (h *History) drain() {
	for {
		select {
		case event := <-h.events:
			h.handle(context.Background(), event)
		default:
			return
		}
	}
}

func (h *History) handle(parent context.Context, event any) {
	// Writes are allowed to finish even when shutdown has started.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), writeTimeout)
	defer cancel()

	var err error

	switch data := event.(type) {
	case notify.Snapshot:
		err = h.onSnapshot(ctx, data)
	case notify.FetchError:
		err = h.onFetchError(ctx, data)
	case cache.Health:
		err = h.db.InsertCacheHealth(ctx, InsertCacheHealthParams{
			Cache:     data.Cache,
			Failures:  int64(data.Failures),
			Error:     data.Error,
			CreatedOn: data.At.Unix(),
		})
	}

	if err != nil {
		slog.Error("Failed to handle history event", slog.String("error", errors.Join(err, errHistory).Error()))
	}
}

func (h *History) onSnapshot(ctx context.Context, snapshot notify.Snapshot) error {
	body, errBody := json.Marshal(snapshot.Friends)
	if errBody != nil {
		return errBody
	}

	var inGame int64
	for _, friend := range snapshot.Friends {
		if friend.InGame {
			inGame++
		}
	}

	if err := h.db.InsertSnapshot(ctx, InsertSnapshotParams{
		Fingerprint: snapshot.Fingerprint,
		Changes:     int64(snapshot.Changes),
		FriendCount: int64(len(snapshot.Friends)),
		InGame:      inGame,
		Body:        string(body),
		CreatedOn:   snapshot.At.Unix(),
	}); err != nil {
		return err
	}

	return h.db.PruneSnapshots(ctx, h.keep)
}

func (h *History) onFetchError(ctx context.Context, fetchErr notify.FetchError) error {
	if err := h.db.InsertFetchError(ctx, InsertFetchErrorParams{
		Message:   fetchErr.Message,
		Failures:  int64(fetchErr.Failures),
		CreatedOn: fetchErr.At.Unix(),
	}); err != nil {
		return err
	}

	return h.db.PruneFetchErrors(ctx, h.keep)
}
