package enrich

import (
	"context"
	"log/slog"

	"github.com/leighmacdonald/steam-friends/internal/cache"
	"github.com/leighmacdonald/steam-friends/internal/friends"
	"github.com/leighmacdonald/steam-friends/internal/steamweb"
)

// ScoreBatchSize is how many review lookups run at once.
const ScoreBatchSize = 5

// ScoreFetcher looks up the review score of an app.
type ScoreFetcher interface {
	Score(ctx context.Context, appID string) steamweb.ScoreResult
}

type ScoreEnricher struct {
	store   Store[cache.Score]
	fetcher ScoreFetcher
	width   int
}

func NewScoreEnricher(store Store[cache.Score], fetcher ScoreFetcher) *ScoreEnricher {
	return &ScoreEnricher{store: store, fetcher: fetcher, width: ScoreBatchSize}
}

// Enrich sets the review score of every friend playing a game with a known score. Lookups are
// shared between friends playing the same game.
func (e *ScoreEnricher) Enrich(ctx context.Context, list []friends.Friend) {
	var gameIDs []string
	for _, friend := range list {
		if friends.IsValidGameID(friend.GameID) {
			gameIDs = append(gameIDs, friend.GameID)
		}
	}

	if len(gameIDs) == 0 {
		return
	}

	applied, missing := Decide[cache.Score](e.store, gameIDs, cache.Score.Usable)
	for gameID, entry := range applied {
		applyScore(list, gameID, *entry.Score)
	}

	if len(missing) == 0 {
		return
	}

	slog.Debug("Refreshing review scores", slog.Int("count", len(missing)))

	refresh(ctx, missing, e.width, e.fetcher.Score, func(gameID string, result steamweb.ScoreResult) {
		switch result.Status {
		case steamweb.Found:
			e.store.Set(gameID, cache.NewScore(result.Score, result.Reviews))
			applyScore(list, gameID, result.Score)
		case steamweb.Invalid:
			e.store.Set(gameID, cache.InvalidScore())
		case steamweb.NoData:
		}
	})

	persist(e.store)
}

func applyScore(list []friends.Friend, gameID string, score int) {
	for idx := range list {
		if list[idx].GameID == gameID {
			value := score
			list[idx].Score = &value
		}
	}
}
