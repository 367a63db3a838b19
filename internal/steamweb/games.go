package steamweb

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/leighmacdonald/steamid/v4/steamid"
)

type ownedGamesResponse struct {
	Response struct {
		GameCount int `json:"game_count"`
		Games     []struct {
			AppID           int `json:"appid"`
			PlaytimeForever int `json:"playtime_forever"`
		} `json:"games"`
	} `json:"response"`
}

// PlaytimeResult is the outcome of a playtime lookup.
type PlaytimeResult struct {
	Status       Status
	TotalMinutes int
	GameCount    int
	// Private is set when steam returned no games, which is what happens for private profiles.
	Private bool
}

// Playtime sums the playtime of every game owned by the player.
func (c *Client) Playtime(ctx context.Context, steamID steamid.SteamID) PlaytimeResult {
	if c.coolingDown(&c.usageDeadline) {
		return PlaytimeResult{Status: NoData}
	}

	opts := c.options()
	params := url.Values{
		"key":                       {opts.APIKey},
		"steamid":                   {steamID.String()},
		"include_played_free_games": {"1"},
		"format":                    {"json"},
	}

	resp, errResp := getJSON[ownedGamesResponse](ctx, c, opts.APIBaseURL, "IPlayerService/GetOwnedGames/v1/", params)
	if errResp != nil {
		if errors.Is(errResp, ErrRateLimited) {
			c.startCooldown(&c.usageDeadline, opts.Cooldown)
			slog.Warn("Playtime lookups rate limited", slog.Duration("cooldown", opts.Cooldown))
		} else {
			slog.Error("Failed to fetch owned games", slog.String("steam_id", steamID.String()),
				slog.String("error", errResp.Error()))
		}

		return PlaytimeResult{Status: NoData}
	}

	// Private profiles come back empty or with only a game count, neither has anything to sum.
	if len(resp.Response.Games) == 0 {
		return PlaytimeResult{Status: Found, Private: true}
	}

	result := PlaytimeResult{Status: Found, GameCount: max(resp.Response.GameCount, len(resp.Response.Games))}
	for _, game := range resp.Response.Games {
		result.TotalMinutes += max(0, game.PlaytimeForever)
	}

	return result
}
