package friends_test

import (
	"encoding/json"
	"testing"

	"github.com/leighmacdonald/steam-friends/internal/friends"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/stretchr/testify/require"
)

func TestIsValidGameID(t *testing.T) {
	for _, gameID := range []string{"1", "440", "570", "1234567890"} {
		require.True(t, friends.IsValidGameID(gameID), gameID)
	}

	for _, gameID := range []string{"", "abc", "44O", "-440", "4.4", " 440", "12345678901"} {
		require.False(t, friends.IsValidGameID(gameID), gameID)
	}
}

func TestNormalizeCountry(t *testing.T) {
	require.Equal(t, "us", friends.NormalizeCountry("US"))
	require.Equal(t, "de", friends.NormalizeCountry(" de "))
	require.Equal(t, friends.UnknownCountry, friends.NormalizeCountry(""))
	require.Equal(t, friends.UnknownCountry, friends.NormalizeCountry("USA"))
	require.Equal(t, friends.UnknownCountry, friends.NormalizeCountry("1a"))
}

func TestFriendJSON(t *testing.T) {
	score := 91
	friend := friends.Friend{
		SteamID:     steamid.New("76561197960265749"),
		Name:        "Evil Player",
		Status:      friends.LookingToPlay,
		InGame:      true,
		GameID:      "440",
		GameName:    "Team Fortress 2",
		CountryCode: "ca",
		Score:       &score,
	}

	body, err := json.Marshal(friend)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, "76561197960265749", decoded["steam_id"])
	require.Equal(t, "looking_to_play", decoded["status"])
	require.InDelta(t, 91, decoded["score"], 0)
	require.NotContains(t, decoded, "playtime")
}
