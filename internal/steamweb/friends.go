package steamweb

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/leighmacdonald/steamid/v4/steamid"
)

// MaxSummaryIDs is the most ids GetPlayerSummaries accepts in one request.
const MaxSummaryIDs = 100

type friendListResponse struct {
	FriendsList struct {
		Friends []struct {
			SteamID      string `json:"steamid"`
			Relationship string `json:"relationship"`
			FriendSince  int64  `json:"friend_since"`
		} `json:"friends"`
	} `json:"friendslist"`
}

// PlayerSummary is a single player entry from GetPlayerSummaries.
type PlayerSummary struct {
	SteamID        string `json:"steamid"`
	PersonaName    string `json:"personaname"`
	AvatarFull     string `json:"avatarfull"`
	PersonaState   int    `json:"personastate"`
	GameID         string `json:"gameid"`
	GameExtraInfo  string `json:"gameextrainfo"`
	LocCountryCode string `json:"loccountrycode"`
	LastLogoff     int64  `json:"lastlogoff"`
}

type playerSummariesResponse struct {
	Response struct {
		Players []PlayerSummary `json:"players"`
	} `json:"response"`
}

// FriendList fetches the steam ids of everyone on the users friend list.
func (c *Client) FriendList(ctx context.Context, steamID steamid.SteamID) (steamid.Collection, error) {
	opts := c.options()
	params := url.Values{
		"key":          {opts.APIKey},
		"steamid":      {steamID.String()},
		"relationship": {"friend"},
	}

	resp, errResp := getJSON[friendListResponse](ctx, c, opts.APIBaseURL, "ISteamUser/GetFriendList/v1/", params)
	if errResp != nil {
		return nil, errResp
	}

	friendIDs := make(steamid.Collection, 0, len(resp.FriendsList.Friends))
	for _, friend := range resp.FriendsList.Friends {
		sid := steamid.New(friend.SteamID)
		if !sid.Valid() {
			continue
		}

		friendIDs = append(friendIDs, sid)
	}

	return friendIDs, nil
}

// PlayerSummaries fetches the profile and presence of each id, in batches of MaxSummaryIDs. Any failed
// batch fails the whole request since a partial list would look like friends going missing.
func (c *Client) PlayerSummaries(ctx context.Context, steamIDs steamid.Collection) ([]PlayerSummary, error) {
	opts := c.options()
	summaries := make([]PlayerSummary, 0, len(steamIDs))

	for start := 0; start < len(steamIDs); start += MaxSummaryIDs {
		end := min(start+MaxSummaryIDs, len(steamIDs))
		params := url.Values{
			"key":      {opts.APIKey},
			"steamids": {strings.Join(steamIDs[start:end].ToStringSlice(), ",")},
		}

		resp, errResp := getJSON[playerSummariesResponse](ctx, c, opts.APIBaseURL, "ISteamUser/GetPlayerSummaries/v2/", params)
		if errResp != nil {
			return nil, errors.Join(errResp, ErrFetch)
		}

		summaries = append(summaries, resp.Response.Players...)
	}

	return summaries, nil
}
