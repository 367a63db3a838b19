// Package enrich attaches cached or freshly fetched extra data to the friends of a poll cycle.
//
// Both enrichers work in two phases. Decide inspects the cache and splits the keys into values
// that can be applied right away and keys that need refreshing. The refresh then fetches the
// missing keys in fixed width batches, committing each batch to the cache as soon as it completes.
package enrich

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Lookup is the read side of a cache.
type Lookup[V any] interface {
	Get(key string) (V, bool)
	IsStale(value V, found bool) bool
}

// Store is a cache that can also be written to and persisted.
type Store[V any] interface {
	Lookup[V]
	Set(key string, value V)
	MaybePersist() error
	Name() string
}

// Decide splits keys into cached values that are usable right now and keys that are missing or
// stale. Stale but usable values are returned in both. Duplicate keys are only returned once.
func Decide[V any](lookup Lookup[V], keys []string, usable func(V) bool) (map[string]V, []string) {
	var (
		applied = map[string]V{}
		refresh []string
		seen    = map[string]bool{}
	)

	for _, key := range keys {
		if seen[key] {
			continue
		}

		seen[key] = true

		value, found := lookup.Get(key)
		if found && usable(value) {
			applied[key] = value
		}

		if lookup.IsStale(value, found) {
			refresh = append(refresh, key)
		}
	}

	return applied, refresh
}

// refresh fetches keys width at a time. A batch must finish completely before the next one starts,
// which keeps the load on the upstream api predictable. commit is called once per finished batch.
// Cancelling the context stops at the next batch boundary.
func refresh[R any](ctx context.Context, keys []string, width int, fetch func(context.Context, string) R,
	commit func(key string, result R),
) {
	width = max(1, width)

	for start := 0; start < len(keys); start += width {
		if ctx.Err() != nil {
			slog.Debug("Enrichment cancelled", slog.Int("remaining", len(keys)-start))

			return
		}

		batch := keys[start:min(start+width, len(keys))]
		results := make([]R, len(batch))

		var group errgroup.Group
		group.SetLimit(width)

		for idx, key := range batch {
			group.Go(func() error {
				results[idx] = fetch(ctx, key)

				return nil
			})
		}

		_ = group.Wait()

		for idx, key := range batch {
			commit(key, results[idx])
		}
	}
}

func persist[V any](store Store[V]) {
	if err := store.MaybePersist(); err != nil {
		slog.Warn("Cache not persisted", slog.String("cache", store.Name()), slog.String("error", err.Error()))
	}
}
