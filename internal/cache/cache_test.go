package cache_test

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/leighmacdonald/steam-friends/internal/cache"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 8, 16, 1, 13, 50, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type reporter struct {
	reports []cache.Health
}

func (r *reporter) OnCacheUnhealthy(health cache.Health) {
	r.reports = append(r.reports, health)
}

func newScores(t *testing.T, clk *clock, capacity int) *cache.Cache[cache.Score] {
	t.Helper()

	return cache.New("scores", cache.Options[cache.Score]{
		Path:             filepath.Join(t.TempDir(), "scores.json"),
		TTL:              time.Hour,
		Capacity:         capacity,
		PersistInterval:  time.Minute,
		FailureThreshold: 2,
		TTLFunc:          cache.ScoreTTL,
		Now:              clk.Now,
	})
}

func TestRoundTrip(t *testing.T) {
	clk := newClock()
	path := filepath.Join(t.TempDir(), "playtime.json")
	opts := cache.Options[cache.Playtime]{Path: path, TTL: time.Hour, Capacity: 10, Now: clk.Now}

	original := cache.New("playtime", opts)
	for idx := range 5 {
		original.Set(strconv.Itoa(idx), cache.Playtime{TotalMinutes: idx * 60, GameCount: idx})
		clk.Advance(time.Second)
	}
	original.Set("private", cache.Playtime{Private: true})

	require.True(t, original.Dirty())
	require.NoError(t, original.Save())
	require.False(t, original.Dirty())

	loaded := cache.New("playtime", opts)
	loaded.Load()
	require.Equal(t, original.Len(), loaded.Len())
	require.Equal(t, original.Keys(), loaded.Keys())

	for _, key := range original.Keys() {
		want, _ := original.Get(key)
		got, found := loaded.Get(key)
		require.True(t, found)
		require.Equal(t, want, got)
	}

	// Saving what was loaded produces an identical file.
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, loaded.Save())
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, string(before), string(after))
}

func TestLoadMissingOrCorrupt(t *testing.T) {
	clk := newClock()
	scores := newScores(t, clk, 10)
	scores.Load()
	require.Equal(t, 0, scores.Len())

	path := filepath.Join(t.TempDir(), "scores.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	corrupt := cache.New("scores", cache.Options[cache.Score]{Path: path, TTL: time.Hour, Capacity: 10})
	corrupt.Load()
	require.Equal(t, 0, corrupt.Len())
}

func TestStaleness(t *testing.T) {
	clk := newClock()
	scores := newScores(t, clk, 10)

	scores.Set("440", cache.NewScore(93, 500))
	entry, found := scores.Get("440")
	require.True(t, found)
	require.False(t, scores.IsStale(entry, found))

	clk.Advance(time.Hour)
	require.False(t, scores.IsStale(entry, found))

	clk.Advance(time.Second)
	require.True(t, scores.IsStale(entry, found))

	missing, found := scores.Get("570")
	require.False(t, found)
	require.True(t, scores.IsStale(missing, found))
}

func TestStaleEntriesAreStillReturned(t *testing.T) {
	clk := newClock()
	scores := newScores(t, clk, 10)
	scores.Set("440", cache.NewScore(93, 500))

	clk.Advance(48 * time.Hour)
	entry, found := scores.Get("440")
	require.True(t, found)
	require.True(t, scores.IsStale(entry, found))
	require.Equal(t, 93, *entry.Score)
}

func TestScoreTTL(t *testing.T) {
	clk := newClock()
	scores := newScores(t, clk, 10)
	scores.Set("popular", cache.NewScore(90, cache.PopularReviews+1))
	scores.Set("invalid", cache.InvalidScore())

	clk.Advance(cache.PopularTTL)
	popular, found := scores.Get("popular")
	require.False(t, scores.IsStale(popular, found))

	clk.Advance(time.Second)
	require.True(t, scores.IsStale(popular, found))

	invalid, found := scores.Get("invalid")
	require.False(t, scores.IsStale(invalid, found))
	require.Nil(t, invalid.Score)
	require.False(t, invalid.Usable())
}

func TestInvalidNeverCarriesScore(t *testing.T) {
	clk := newClock()
	scores := newScores(t, clk, 10)

	score := 50
	scores.Set("1", cache.Score{Score: &score, Invalid: true})

	entry, _ := scores.Get("1")
	require.True(t, entry.Invalid)
	require.Nil(t, entry.Score)
}

func TestEviction(t *testing.T) {
	clk := newClock()
	const capacity = 5
	scores := newScores(t, clk, capacity)

	for idx := range capacity + 1 {
		scores.Set(strconv.Itoa(idx), cache.NewScore(idx, 100))
	}

	require.Equal(t, capacity, scores.Len())
	_, found := scores.Get("0")
	require.False(t, found)
	_, found = scores.Get(strconv.Itoa(capacity))
	require.True(t, found)
	require.Equal(t, []string{"1", "2", "3", "4", "5"}, scores.Keys())
}

func TestMaybePersist(t *testing.T) {
	clk := newClock()
	scores := newScores(t, clk, 10)

	// Nothing written yet.
	require.NoError(t, scores.MaybePersist())

	scores.Set("440", cache.NewScore(93, 500))
	require.NoError(t, scores.MaybePersist())
	require.True(t, scores.Dirty(), "interval not elapsed")

	clk.Advance(time.Minute)
	require.NoError(t, scores.MaybePersist())
	require.False(t, scores.Dirty())
}

func TestSaveFailureReported(t *testing.T) {
	clk := newClock()
	dir := t.TempDir()
	// A directory where the file should be makes the rename fail.
	path := filepath.Join(dir, "scores.json")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "blocker"), 0o700))

	var health reporter
	scores := cache.New("scores", cache.Options[cache.Score]{
		Path:             path,
		TTL:              time.Hour,
		Capacity:         10,
		FailureThreshold: 2,
		Reporter:         &health,
		Now:              clk.Now,
	})
	scores.Set("440", cache.NewScore(93, 500))

	require.ErrorIs(t, scores.Save(), cache.ErrPersist)
	require.Empty(t, health.reports)
	require.True(t, scores.Dirty())

	require.ErrorIs(t, scores.Save(), cache.ErrPersist)
	require.Len(t, health.reports, 1)
	require.Equal(t, "scores", health.reports[0].Cache)
	require.Equal(t, 2, health.reports[0].Failures)

	// In memory state is unaffected.
	entry, found := scores.Get("440")
	require.True(t, found)
	require.Equal(t, 93, *entry.Score)

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestClear(t *testing.T) {
	clk := newClock()
	scores := newScores(t, clk, 10)
	scores.Set("440", cache.NewScore(93, 500))
	require.NoError(t, scores.Save())

	scores.Clear()
	require.Equal(t, 0, scores.Len())
	require.True(t, scores.Dirty())
}

func TestConcurrentSavesKeepNewestFile(t *testing.T) {
	clk := newClock()
	opts := cache.Options[cache.Score]{
		Path:     filepath.Join(t.TempDir(), "scores.json"),
		TTL:      time.Hour,
		Capacity: 100,
		Now:      clk.Now,
	}
	scores := cache.New("scores", opts)

	var wg sync.WaitGroup
	for worker := range 4 {
		wg.Go(func() {
			for idx := range 10 {
				scores.Set(strconv.Itoa(worker*10+idx), cache.NewScore(idx, 100))
				if err := scores.Save(); err != nil {
					t.Error(err)
				}
			}
		})
	}
	wg.Wait()

	require.False(t, scores.Dirty())

	reloaded := cache.New("scores", opts)
	reloaded.Load()
	require.Equal(t, scores.Len(), reloaded.Len())
	require.Equal(t, 40, reloaded.Len())
}

func TestLoadDropsScoreOfInvalidEntry(t *testing.T) {
	clk := newClock()
	path := filepath.Join(t.TempDir(), "scores.json")
	body := `{"440":{"score":80,"reviews":5000,"invalid":true,"cached_at":` +
		strconv.FormatInt(clk.Now().UnixMilli(), 10) + `}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	scores := cache.New("scores", cache.Options[cache.Score]{Path: path, TTL: time.Hour, Capacity: 10, Now: clk.Now})
	scores.Load()

	entry, found := scores.Get("440")
	require.True(t, found)
	require.True(t, entry.Invalid)
	require.Nil(t, entry.Score)
	require.False(t, entry.Usable())
	require.Equal(t, clk.Now().UnixMilli(), entry.CachedAt)
}
