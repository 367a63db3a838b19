package cache

import (
	"math"
	"time"
)

const (
	// PopularReviews is the review count past which a title's score is considered settled.
	PopularReviews = 1000
	// PopularTTL is the minimum age before a popular title's score is refreshed.
	PopularTTL = 30 * 24 * time.Hour
)

// Score is the cached review score of an app. Invalid marks app ids steam does not know about.
type Score struct {
	Score    *int  `json:"score,omitempty"`
	Reviews  int   `json:"reviews"`
	Invalid  bool  `json:"invalid,omitempty"`
	CachedAt int64 `json:"cached_at"`
}

// NewScore creates a valid score entry.
func NewScore(score int, reviews int) Score {
	return Score{Score: &score, Reviews: reviews}
}

// InvalidScore creates an entry for an app id that does not exist. It never carries a score.
func InvalidScore() Score {
	return Score{Invalid: true}
}

func (s Score) Cached() time.Time {
	return time.UnixMilli(s.CachedAt)
}

func (s Score) Stamped(at time.Time) Score {
	s.CachedAt = at.UnixMilli()
	if s.Invalid {
		s.Score = nil
	}

	return s
}

// Usable reports whether the entry has a score that can be shown.
func (s Score) Usable() bool {
	return !s.Invalid && s.Score != nil
}

// ScoreTTL extends the ttl of settled entries. Invalid app ids never go stale and titles with
// more than PopularReviews reviews are kept for at least PopularTTL.
func ScoreTTL(value Score, ttl time.Duration) time.Duration {
	switch {
	case value.Invalid:
		return time.Duration(math.MaxInt64)
	case value.Reviews > PopularReviews:
		return max(ttl, PopularTTL)
	default:
		return ttl
	}
}

// Playtime is the cached total playtime of a steam profile. Private profiles have no visible games.
type Playtime struct {
	TotalMinutes int   `json:"total_minutes"`
	GameCount    int   `json:"game_count"`
	Private      bool  `json:"private,omitempty"`
	CachedAt     int64 `json:"cached_at"`
}

func (p Playtime) Cached() time.Time {
	return time.UnixMilli(p.CachedAt)
}

func (p Playtime) Stamped(at time.Time) Playtime {
	p.CachedAt = at.UnixMilli()

	return p
}

// Usable reports whether the entry has a playtime that can be shown.
func (p Playtime) Usable() bool {
	return !p.Private
}
