package poller

import (
	"context"
	"errors"
	"slices"

	"github.com/leighmacdonald/steam-friends/internal/config"
	"github.com/leighmacdonald/steam-friends/internal/friends"
	"github.com/leighmacdonald/steam-friends/internal/steamweb"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

var errCycle = errors.New("poll cycle failed")

// FriendSource provides the raw friend list.
type FriendSource interface {
	FriendList(ctx context.Context, steamID steamid.SteamID) (steamid.Collection, error)
	PlayerSummaries(ctx context.Context, steamIDs steamid.Collection) ([]steamweb.PlayerSummary, error)
}

// Enricher adds extra data to a friend list in place.
type Enricher interface {
	Enrich(ctx context.Context, list []friends.Friend)
}

// Cycle performs a single fetch, enrich, sort and compare pass.
type Cycle struct {
	Source   FriendSource
	Scores   Enricher
	Playtime Enricher
	Gate     *friends.ChangeGate
}

// Result is the outcome of a cycle.
type Result struct {
	Friends     []friends.Friend
	Fingerprint friends.Fingerprint
	Changed     bool
}

// Run fetches and builds the friend list. Only failures fetching the list itself are returned,
// enrichment problems just leave fields empty.
func (c Cycle) Run(ctx context.Context, conf config.Config) (Result, error) {
	friendIDs, errFriends := c.Source.FriendList(ctx, conf.SteamID)
	if errFriends != nil {
		return Result{}, errors.Join(errFriends, errCycle)
	}

	friendIDs = filterAllowed(friendIDs, conf.AllowedIDs())

	var summaries []steamweb.PlayerSummary
	if len(friendIDs) > 0 {
		var errSummaries error
		summaries, errSummaries = c.Source.PlayerSummaries(ctx, friendIDs)
		if errSummaries != nil {
			return Result{}, errors.Join(errSummaries, errCycle)
		}
	}

	list := make([]friends.Friend, 0, len(summaries))
	for _, summary := range summaries {
		friend, ok := toFriend(summary)
		if !ok {
			continue
		}

		list = append(list, friend)
	}

	if conf.Playtime.Enabled && c.Playtime != nil {
		c.Playtime.Enrich(ctx, list)
	}

	friends.Sort(list, conf.SortBy)

	if conf.MaxFriends > 0 && len(list) > conf.MaxFriends {
		list = list[:conf.MaxFriends]
	}

	if conf.Scores.Enabled && c.Scores != nil {
		c.Scores.Enrich(ctx, list)
	}

	fingerprint, changed, errGate := c.Gate.Check(list)
	if errGate != nil {
		return Result{}, errors.Join(errGate, errCycle)
	}

	return Result{Friends: list, Fingerprint: fingerprint, Changed: changed}, nil
}

func filterAllowed(friendIDs steamid.Collection, allowed steamid.Collection) steamid.Collection {
	if len(allowed) == 0 {
		return friendIDs
	}

	filtered := make(steamid.Collection, 0, len(allowed))
	for _, sid := range friendIDs {
		if slices.ContainsFunc(allowed, sid.Equal) {
			filtered = append(filtered, sid)
		}
	}

	return filtered
}

func toFriend(summary steamweb.PlayerSummary) (friends.Friend, bool) {
	sid := steamid.New(summary.SteamID)
	if !sid.Valid() {
		return friends.Friend{}, false
	}

	return friends.Friend{
		SteamID:     sid,
		Name:        summary.PersonaName,
		Avatar:      summary.AvatarFull,
		Status:      friends.PersonaState(summary.PersonaState),
		InGame:      summary.GameID != "" || summary.GameExtraInfo != "",
		GameID:      summary.GameID,
		GameName:    summary.GameExtraInfo,
		CountryCode: friends.NormalizeCountry(summary.LocCountryCode),
		LastLogoff:  summary.LastLogoff,
	}, true
}
