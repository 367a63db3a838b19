package friends_test

import (
	"testing"

	"github.com/leighmacdonald/steam-friends/internal/friends"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/stretchr/testify/require"
)

func TestChangeGate(t *testing.T) {
	var gate friends.ChangeGate

	build := func() []friends.Friend {
		return []friends.Friend{
			{SteamID: steamid.New(76561197960265731), Name: "A", Status: friends.Offline, CountryCode: "xx"},
			{SteamID: steamid.New(76561197960265732), Name: "B", Status: friends.Online, CountryCode: "us"},
		}
	}

	first, changed, err := gate.Check(build())
	require.NoError(t, err)
	require.True(t, changed)

	second, changed, err := gate.Check(build())
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, first, second)

	altered := build()
	altered[0].Status = friends.Away
	_, changed, err = gate.Check(altered)
	require.NoError(t, err)
	require.True(t, changed)

	gate.Reset()
	_, changed, err = gate.Check(altered)
	require.NoError(t, err)
	require.True(t, changed)
}

func TestFriendStartsPlaying(t *testing.T) {
	var gate friends.ChangeGate

	cycle := []friends.Friend{
		{SteamID: steamid.New(76561197960265731), Name: "A", Status: friends.Offline},
		{SteamID: steamid.New(76561197960265732), Name: "B", Status: friends.Online},
	}
	friends.Sort(cycle, friends.SortAlphabetic)
	require.Equal(t, []string{"B", "A"}, names(cycle))

	_, changed, err := gate.Check(cycle)
	require.NoError(t, err)
	require.True(t, changed)

	next := []friends.Friend{
		{SteamID: steamid.New(76561197960265731), Name: "A", Status: friends.Offline},
		{SteamID: steamid.New(76561197960265732), Name: "B", Status: friends.Online, InGame: true, GameID: "440"},
	}
	friends.Sort(next, friends.SortAlphabetic)
	require.Equal(t, "B", next[0].Name)

	_, changed, err = gate.Check(next)
	require.NoError(t, err)
	require.True(t, changed)
}

func TestFingerprintNilEqualsEmpty(t *testing.T) {
	empty, err := friends.FingerprintOf([]friends.Friend{})
	require.NoError(t, err)

	none, err := friends.FingerprintOf(nil)
	require.NoError(t, err)
	require.Equal(t, empty, none)
	require.Len(t, empty.String(), 64)
}
