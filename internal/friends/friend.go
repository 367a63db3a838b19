// Package friends defines the friend records produced each poll cycle along with
// the ordering and change detection applied to a finished list.
package friends

import (
	"encoding/json"
	"strings"

	"github.com/leighmacdonald/steamid/v4/steamid"
)

// UnknownCountry is used when a profile has no, or a malformed, country code.
const UnknownCountry = "xx"

// PersonaState mirrors the steam `personastate` values.
type PersonaState int

const (
	Offline PersonaState = iota
	Online
	Busy
	Away
	Snooze
	LookingToTrade
	LookingToPlay
)

func (s PersonaState) String() string {
	switch s {
	case Offline:
		return "offline"
	case Online:
		return "online"
	case Busy:
		return "busy"
	case Away:
		return "away"
	case Snooze:
		return "snooze"
	case LookingToTrade:
		return "looking_to_trade"
	case LookingToPlay:
		return "looking_to_play"
	default:
		return "unknown"
	}
}

// rank orders states for display. Offline sits behind every online variant and unrecognised
// values are always last.
func (s PersonaState) rank() int {
	switch s {
	case Online:
		return 0
	case Busy:
		return 1
	case Away:
		return 2
	case Snooze:
		return 3
	case LookingToTrade:
		return 4
	case LookingToPlay:
		return 5
	case Offline:
		return 6
	default:
		return 7
	}
}

// Friend is a single entry of the presence list for one poll cycle. Score and Playtime are only
// set once the relevant enrichment has data for them.
type Friend struct {
	SteamID     steamid.SteamID
	Name        string
	Avatar      string
	Status      PersonaState
	InGame      bool
	GameID      string
	GameName    string
	CountryCode string
	LastLogoff  int64
	Score       *int
	Playtime    *int
}

// record is the public shape of a Friend. Its field order is fixed which keeps the encoding
// stable for fingerprinting.
type record struct {
	SteamID     string `json:"steam_id"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar"`
	Status      string `json:"status"`
	InGame      bool   `json:"in_game"`
	GameID      string `json:"game_id,omitempty"`
	GameName    string `json:"game_name,omitempty"`
	CountryCode string `json:"country_code"`
	LastLogoff  int64  `json:"last_logoff"`
	Score       *int   `json:"score,omitempty"`
	Playtime    *int   `json:"playtime,omitempty"`
}

func (f Friend) MarshalJSON() ([]byte, error) {
	return json.Marshal(record{
		SteamID:     f.SteamID.String(),
		Name:        f.Name,
		Avatar:      f.Avatar,
		Status:      f.Status.String(),
		InGame:      f.InGame,
		GameID:      f.GameID,
		GameName:    f.GameName,
		CountryCode: f.CountryCode,
		LastLogoff:  f.LastLogoff,
		Score:       f.Score,
		Playtime:    f.Playtime,
	})
}

func (f Friend) playtime() int {
	if f.Playtime == nil {
		return 0
	}

	return *f.Playtime
}

// IsValidGameID checks that the value is a plain app id of 1-10 digits.
func IsValidGameID(gameID string) bool {
	if len(gameID) == 0 || len(gameID) > 10 {
		return false
	}

	for _, char := range gameID {
		if char < '0' || char > '9' {
			return false
		}
	}

	return true
}

// NormalizeCountry lowercases a 2 letter country code, returning UnknownCountry for anything else.
func NormalizeCountry(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) != 2 || code[0] < 'a' || code[0] > 'z' || code[1] < 'a' || code[1] > 'z' {
		return UnknownCountry
	}

	return code
}
