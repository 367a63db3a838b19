package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/leighmacdonald/steam-friends/internal/friends"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	errConfigRead    = errors.New("failed to read config file")
	errLoggerInit    = errors.New("failed to initialize logger")
)

const (
	ConfigDirName      = "steam-friends"
	DefaultConfigName  = "steam-friends"
	DefaultDBName      = "steam-friends.db"
	DefaultLogName     = "steam-friends.log"
	ScoreCacheName     = "scores.json"
	PlaytimeCacheName  = "playtime.json"
	EnvPrefix          = "steamfriends"
	DefaultHTTPTimeout = 15 * time.Second
)

type Config struct {
	SteamAPIKey string          `mapstructure:"steam_api_key"`
	SteamID     steamid.SteamID `mapstructure:"-"`
	// TODO implement encoding.TextUnmarshaler on steamid so we can decode directly with viper/mapstructure
	SteamIDString string `mapstructure:"steam_id"`
	// Allowlist limits the published list to these steam ids. Empty means every friend.
	Allowlist          []string        `mapstructure:"allowlist"`
	PollIntervalSecs   int             `mapstructure:"poll_interval_secs"`
	ColdIntervalSecs   int             `mapstructure:"cold_interval_secs"`
	HotWindowSecs      int             `mapstructure:"hot_window_secs"`
	ErrorThreshold     int             `mapstructure:"error_threshold"`
	ErrorIntervalSecs  int             `mapstructure:"error_interval_secs"`
	RequestTimeoutSecs int             `mapstructure:"request_timeout_secs"`
	MaxFriends         int             `mapstructure:"max_friends"`
	SortBy             friends.SortKey `mapstructure:"sort_by"`
	APIBaseURL         string          `mapstructure:"api_base_url"`
	StoreBaseURL       string          `mapstructure:"store_base_url"`
	Cache              CacheConfig     `mapstructure:"cache"`
	Scores             ScoresConfig    `mapstructure:"scores"`
	Playtime           PlaytimeConfig  `mapstructure:"playtime"`
	History            HistoryConfig   `mapstructure:"history"`
}

type CacheConfig struct {
	Capacity            int `mapstructure:"capacity"`
	PersistIntervalSecs int `mapstructure:"persist_interval_secs"`
	// FailureThreshold is how many consecutive failed writes happen before it's reported.
	FailureThreshold int `mapstructure:"failure_threshold"`
}

type ScoresConfig struct {
	Enabled      bool        `mapstructure:"enabled"`
	RefreshDays  int         `mapstructure:"refresh_days"`
	MinReviews   int         `mapstructure:"min_reviews"`
	CooldownSecs int         `mapstructure:"cooldown_secs"`
	Bands        []ScoreBand `mapstructure:"bands"`
}

type PlaytimeConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	RefreshDays int  `mapstructure:"refresh_days"`
}

type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Keep is the number of snapshots retained in the database.
	Keep int `mapstructure:"keep"`
}

// ScoreBand assigns a colour to every score at or above Min, up to the next band.
type ScoreBand struct {
	Min   int    `mapstructure:"min"`
	Color string `mapstructure:"color"`
}

// Color returns the colour of the highest band the score reaches, or an empty string.
func (c ScoresConfig) Color(score int) string {
	var (
		color string
		best  = -1
	)

	for _, band := range c.Bands {
		if score >= band.Min && band.Min > best {
			best = band.Min
			color = band.Color
		}
	}

	return color
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

func (c Config) ColdInterval() time.Duration {
	return time.Duration(c.ColdIntervalSecs) * time.Second
}

func (c Config) HotWindow() time.Duration {
	return time.Duration(c.HotWindowSecs) * time.Second
}

func (c Config) ErrorInterval() time.Duration {
	return time.Duration(c.ErrorIntervalSecs) * time.Second
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

func (c CacheConfig) PersistInterval() time.Duration {
	return time.Duration(c.PersistIntervalSecs) * time.Second
}

func (c ScoresConfig) TTL() time.Duration {
	return time.Duration(c.RefreshDays) * 24 * time.Hour
}

func (c ScoresConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSecs) * time.Second
}

func (c PlaytimeConfig) TTL() time.Duration {
	return time.Duration(c.RefreshDays) * 24 * time.Hour
}

// AllowedIDs parses the allowlist. Invalid entries are rejected by Validate so they are skipped here.
func (c Config) AllowedIDs() steamid.Collection {
	var allowed steamid.Collection
	for _, value := range c.Allowlist {
		sid := steamid.New(value)
		if sid.Valid() {
			allowed = append(allowed, sid)
		}
	}

	return allowed
}

// FieldError describes a single rejected configuration value.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError collects every problem found with a configuration.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	messages := make([]string, len(e.Fields))
	for idx, field := range e.Fields {
		messages[idx] = field.Error()
	}

	return "invalid configuration: " + strings.Join(messages, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

func (e *ValidationError) add(field string, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks the configuration, returning a *ValidationError describing every invalid field.
func (c Config) Validate() error {
	var verr ValidationError

	if strings.TrimSpace(c.SteamAPIKey) == "" {
		verr.add("steam_api_key", "must be set")
	}

	if !c.SteamID.Valid() {
		verr.add("steam_id", "invalid steam id %q", c.SteamIDString)
	}

	for _, value := range c.Allowlist {
		if sid := steamid.New(value); !sid.Valid() {
			verr.add("allowlist", "invalid steam id %q", value)
		}
	}

	if c.PollIntervalSecs < 5 {
		verr.add("poll_interval_secs", "must be at least 5, got %d", c.PollIntervalSecs)
	}

	if c.ColdIntervalSecs < c.PollIntervalSecs {
		verr.add("cold_interval_secs", "must not be shorter than poll_interval_secs")
	}

	if c.HotWindowSecs <= 0 {
		verr.add("hot_window_secs", "must be positive")
	}

	if c.ErrorThreshold < 1 {
		verr.add("error_threshold", "must be at least 1")
	}

	if c.ErrorIntervalSecs < 1 {
		verr.add("error_interval_secs", "must be at least 1")
	}

	if c.RequestTimeoutSecs < 1 {
		verr.add("request_timeout_secs", "must be at least 1")
	}

	if c.MaxFriends < 1 {
		verr.add("max_friends", "must be at least 1")
	}

	if !c.SortBy.Valid() {
		verr.add("sort_by", "unknown sort key %q", c.SortBy)
	}

	if c.Cache.Capacity < 1 {
		verr.add("cache.capacity", "must be at least 1")
	}

	if c.Cache.PersistIntervalSecs < 1 {
		verr.add("cache.persist_interval_secs", "must be at least 1")
	}

	if c.Cache.FailureThreshold < 1 {
		verr.add("cache.failure_threshold", "must be at least 1")
	}

	if c.Scores.RefreshDays < 1 {
		verr.add("scores.refresh_days", "must be at least 1")
	}

	if c.Scores.MinReviews < 0 {
		verr.add("scores.min_reviews", "must not be negative")
	}

	if c.Scores.CooldownSecs < 0 {
		verr.add("scores.cooldown_secs", "must not be negative")
	}

	for _, band := range c.Scores.Bands {
		if band.Min < 0 || band.Min > 100 {
			verr.add("scores.bands", "min %d outside of 0-100", band.Min)
		}

		if band.Color == "" {
			verr.add("scores.bands", "band starting at %d has no color", band.Min)
		}
	}

	if c.Playtime.RefreshDays < 1 {
		verr.add("playtime.refresh_days", "must be at least 1")
	}

	if len(verr.Fields) > 0 {
		return &verr
	}

	return nil
}

// Path generates a path pointing to the filename under this apps defined $XDG_CONFIG_HOME.
func Path(name string) string {
	fullPath, errFullPath := xdg.ConfigFile(path.Join(ConfigDirName, name))
	if errFullPath != nil {
		panic(errFullPath)
	}

	return fullPath
}

// PathCache generates a path under $XDG_CACHE_HOME, or $CACHE_DIR when set.
func PathCache(name string) string {
	cacheDir, found := os.LookupEnv("CACHE_DIR")
	if found && cacheDir != "" {
		return path.Join(cacheDir, name)
	}

	return path.Join(xdg.CacheHome, ConfigDirName, name)
}

// LoggerInit sets up the slog global handler. An empty logPath logs to stderr.
func LoggerInit(logPath string, level slog.Level) (io.Closer, error) {
	opts := &slog.HandlerOptions{
		AddSource: false,
		Level:     level,
	}

	if logPath == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))

		return io.NopCloser(nil), nil
	}

	logFile, errLogFile := os.Create(path.Join(xdg.ConfigHome, ConfigDirName, logPath))
	if errLogFile != nil {
		return nil, errors.Join(errLogFile, errLoggerInit)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, opts)))

	return logFile, nil
}
