package friends_test

import (
	"testing"

	"github.com/leighmacdonald/steam-friends/internal/friends"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/stretchr/testify/require"
)

func names(list []friends.Friend) []string {
	out := make([]string, len(list))
	for idx, friend := range list {
		out[idx] = friend.Name
	}

	return out
}

func intPtr(value int) *int {
	return &value
}

func TestSortPrecedence(t *testing.T) {
	list := []friends.Friend{
		{SteamID: steamid.New(76561197960265731), Name: "offline", Status: friends.Offline},
		{SteamID: steamid.New(76561197960265732), Name: "online", Status: friends.Online},
		{SteamID: steamid.New(76561197960265733), Name: "away-playing", Status: friends.Away, InGame: true},
		{SteamID: steamid.New(76561197960265734), Name: "unknown", Status: friends.PersonaState(42)},
		{SteamID: steamid.New(76561197960265735), Name: "busy", Status: friends.Busy},
		{SteamID: steamid.New(76561197960265736), Name: "trade", Status: friends.LookingToTrade},
		{SteamID: steamid.New(76561197960265737), Name: "snooze", Status: friends.Snooze},
		{SteamID: steamid.New(76561197960265738), Name: "play", Status: friends.LookingToPlay},
		{SteamID: steamid.New(76561197960265739), Name: "away", Status: friends.Away},
	}

	friends.Sort(list, friends.SortAlphabetic)

	require.Equal(t, []string{
		"away-playing", "online", "busy", "away", "snooze", "trade", "play", "offline", "unknown",
	}, names(list))
}

func TestSortAlphabeticIgnoresCase(t *testing.T) {
	list := []friends.Friend{
		{SteamID: steamid.New(76561197960265731), Name: "charlie", Status: friends.Online},
		{SteamID: steamid.New(76561197960265732), Name: "Bravo", Status: friends.Online},
		{SteamID: steamid.New(76561197960265733), Name: "alpha", Status: friends.Online},
	}

	friends.Sort(list, "")

	require.Equal(t, []string{"alpha", "Bravo", "charlie"}, names(list))
}

func TestSortRecentActivity(t *testing.T) {
	list := []friends.Friend{
		{SteamID: steamid.New(76561197960265731), Name: "a", Status: friends.Offline, LastLogoff: 100},
		{SteamID: steamid.New(76561197960265732), Name: "b", Status: friends.Offline, LastLogoff: 300},
		{SteamID: steamid.New(76561197960265733), Name: "d", Status: friends.Offline, LastLogoff: 200},
		{SteamID: steamid.New(76561197960265734), Name: "c", Status: friends.Offline, LastLogoff: 200},
	}

	friends.Sort(list, friends.SortRecentActivity)

	require.Equal(t, []string{"b", "c", "d", "a"}, names(list))
}

func TestSortTotalPlaytime(t *testing.T) {
	list := []friends.Friend{
		{SteamID: steamid.New(76561197960265731), Name: "none", Status: friends.Online},
		{SteamID: steamid.New(76561197960265732), Name: "lots", Status: friends.Online, Playtime: intPtr(9000)},
		{SteamID: steamid.New(76561197960265733), Name: "some", Status: friends.Online, Playtime: intPtr(10)},
		{SteamID: steamid.New(76561197960265734), Name: "also-some", Status: friends.Online, Playtime: intPtr(10)},
	}

	friends.Sort(list, friends.SortTotalPlaytime)

	require.Equal(t, []string{"lots", "also-some", "some", "none"}, names(list))
}

func TestSortIsDeterministic(t *testing.T) {
	build := func() []friends.Friend {
		return []friends.Friend{
			{SteamID: steamid.New(76561197960265733), Name: "Same", Status: friends.Online},
			{SteamID: steamid.New(76561197960265731), Name: "same", Status: friends.Online},
			{SteamID: steamid.New(76561197960265732), Name: "Same", Status: friends.Online},
			{SteamID: steamid.New(76561197960265734), Name: "zed", Status: friends.Away, InGame: true},
		}
	}

	first := build()
	friends.Sort(first, friends.SortAlphabetic)

	reversed := build()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}

	friends.Sort(reversed, friends.SortAlphabetic)
	require.Equal(t, first, reversed)

	friends.Sort(first, friends.SortAlphabetic)
	require.Equal(t, first, reversed)
	require.Equal(t, "zed", first[0].Name)
}
