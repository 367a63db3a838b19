package poller_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/leighmacdonald/steam-friends/internal/config"
	"github.com/leighmacdonald/steam-friends/internal/friends"
	"github.com/leighmacdonald/steam-friends/internal/steamweb"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

const (
	ownerID = "76561197960265749"
	idA     = "76561197960287930"
	idB     = "76561197970669109"
	idC     = "76561198084134025"
)

type fakeSource struct {
	mu        sync.Mutex
	summaries map[string]steamweb.PlayerSummary
	err       error
	// block, when set, is waited on by every FriendList call.
	block chan struct{}
	calls atomic.Int32
}

func newFakeSource(summaries ...steamweb.PlayerSummary) *fakeSource {
	source := &fakeSource{summaries: map[string]steamweb.PlayerSummary{}}
	for _, summary := range summaries {
		source.summaries[summary.SteamID] = summary
	}

	return source
}

func (f *fakeSource) set(summary steamweb.PlayerSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.summaries[summary.SteamID] = summary
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.err = err
}

func (f *fakeSource) FriendList(ctx context.Context, _ steamid.SteamID) (steamid.Collection, error) {
	f.calls.Add(1)

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	var friendIDs steamid.Collection
	for key := range f.summaries {
		friendIDs = append(friendIDs, steamid.New(key))
	}

	return friendIDs, nil
}

func (f *fakeSource) PlayerSummaries(_ context.Context, steamIDs steamid.Collection) ([]steamweb.PlayerSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	summaries := make([]steamweb.PlayerSummary, 0, len(steamIDs))
	for _, sid := range steamIDs {
		if summary, found := f.summaries[sid.String()]; found {
			summaries = append(summaries, summary)
		}
	}

	return summaries, nil
}

// recordingEnricher remembers which friends it was asked to enrich.
type recordingEnricher struct {
	mu   sync.Mutex
	seen []string
}

func (r *recordingEnricher) Enrich(_ context.Context, list []friends.Friend) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seen = r.seen[:0]
	for _, friend := range list {
		r.seen = append(r.seen, friend.Name)
	}
}

func testConfig() config.Config {
	return config.Config{
		SteamAPIKey:        "0123456789ABCDEF0123456789ABCDEF",
		SteamID:            steamid.New(ownerID),
		SteamIDString:      ownerID,
		PollIntervalSecs:   3600,
		ColdIntervalSecs:   3600,
		HotWindowSecs:      300,
		ErrorThreshold:     5,
		ErrorIntervalSecs:  3600,
		RequestTimeoutSecs: 10,
		MaxFriends:         50,
		SortBy:             friends.SortAlphabetic,
		Cache:              config.CacheConfig{Capacity: 100, PersistIntervalSecs: 3600, FailureThreshold: 3},
		Scores:             config.ScoresConfig{Enabled: true, RefreshDays: 7},
		Playtime:           config.PlaytimeConfig{Enabled: true, RefreshDays: 1},
	}
}

func online(steamID string, name string) steamweb.PlayerSummary {
	return steamweb.PlayerSummary{SteamID: steamID, PersonaName: name, PersonaState: 1, LocCountryCode: "CA"}
}

func playing(steamID string, name string, gameID string, gameName string) steamweb.PlayerSummary {
	summary := online(steamID, name)
	summary.GameID = gameID
	summary.GameExtraInfo = gameName

	return summary
}
