package enrich

import (
	"context"
	"log/slog"

	"github.com/leighmacdonald/steam-friends/internal/cache"
	"github.com/leighmacdonald/steam-friends/internal/friends"
	"github.com/leighmacdonald/steam-friends/internal/steamweb"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

// PlaytimeBatchSize is how many owned games lookups run at once.
const PlaytimeBatchSize = 3

// PlaytimeFetcher looks up the total playtime of a player.
type PlaytimeFetcher interface {
	Playtime(ctx context.Context, steamID steamid.SteamID) steamweb.PlaytimeResult
}

type PlaytimeEnricher struct {
	store   Store[cache.Playtime]
	fetcher PlaytimeFetcher
	width   int
}

func NewPlaytimeEnricher(store Store[cache.Playtime], fetcher PlaytimeFetcher) *PlaytimeEnricher {
	return &PlaytimeEnricher{store: store, fetcher: fetcher, width: PlaytimeBatchSize}
}

// Enrich sets the total playtime of every friend with a public profile.
func (e *PlaytimeEnricher) Enrich(ctx context.Context, list []friends.Friend) {
	if len(list) == 0 {
		return
	}

	keys := make([]string, len(list))
	for idx, friend := range list {
		keys[idx] = friend.SteamID.String()
	}

	applied, missing := Decide[cache.Playtime](e.store, keys, cache.Playtime.Usable)
	for key, entry := range applied {
		applyPlaytime(list, key, entry.TotalMinutes)
	}

	if len(missing) == 0 {
		return
	}

	slog.Debug("Refreshing playtime", slog.Int("count", len(missing)))

	fetch := func(ctx context.Context, key string) steamweb.PlaytimeResult {
		return e.fetcher.Playtime(ctx, steamid.New(key))
	}

	refresh(ctx, missing, e.width, fetch, func(key string, result steamweb.PlaytimeResult) {
		if result.Status != steamweb.Found {
			return
		}

		e.store.Set(key, cache.Playtime{
			TotalMinutes: result.TotalMinutes,
			GameCount:    result.GameCount,
			Private:      result.Private,
		})

		if !result.Private {
			applyPlaytime(list, key, result.TotalMinutes)
		}
	})

	persist(e.store)
}

func applyPlaytime(list []friends.Friend, key string, minutes int) {
	for idx := range list {
		if list[idx].SteamID.String() == key {
			value := minutes
			list[idx].Playtime = &value
		}
	}
}
