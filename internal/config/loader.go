package config

import (
	"errors"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/spf13/viper"
)

// Loader handles setting up viper, loading configuration from files, and broadcasting configuration changes.
type Loader struct {
	*viper.Viper
	changes chan<- Config
}

func NewLoader(changes chan<- Config) *Loader {
	loader := Loader{changes: changes, Viper: viper.New()}
	loader.SetDefault("steam_api_key", "")
	loader.SetDefault("steam_id", "")
	loader.SetDefault("allowlist", []string{})
	loader.SetDefault("poll_interval_secs", 30)
	loader.SetDefault("cold_interval_secs", 300)
	loader.SetDefault("hot_window_secs", 300)
	loader.SetDefault("error_threshold", 5)
	loader.SetDefault("error_interval_secs", 300)
	loader.SetDefault("request_timeout_secs", 10)
	loader.SetDefault("max_friends", 50)
	loader.SetDefault("sort_by", "alphabetic")
	loader.SetDefault("api_base_url", "https://api.steampowered.com/")
	loader.SetDefault("store_base_url", "https://store.steampowered.com/")
	loader.SetDefault("cache.capacity", 5000)
	loader.SetDefault("cache.persist_interval_secs", 60)
	loader.SetDefault("cache.failure_threshold", 3)
	loader.SetDefault("scores.enabled", true)
	loader.SetDefault("scores.refresh_days", 7)
	loader.SetDefault("scores.min_reviews", 50)
	loader.SetDefault("scores.cooldown_secs", 300)
	loader.SetDefault("scores.bands", []map[string]any{
		{"min": 0, "color": "#B8383B"},
		{"min": 40, "color": "#cf6a32"},
		{"min": 70, "color": "#ffd700"},
		{"min": 80, "color": "#4d7455"},
	})
	loader.SetDefault("playtime.enabled", true)
	loader.SetDefault("playtime.refresh_days", 1)
	loader.SetDefault("history.enabled", true)
	loader.SetDefault("history.keep", 500)
	loader.SetConfigName(DefaultConfigName)
	loader.SetConfigType("yaml")
	loader.SetEnvPrefix(EnvPrefix)
	loader.AddConfigPath(Path(""))
	loader.AddConfigPath(".")
	loader.AutomaticEnv()

	return &loader
}

// Watch enables live reloading. Valid changes are sent to the changes channel.
func (cl *Loader) Watch() {
	cl.OnConfigChange(cl.onConfigChange)
	cl.WatchConfig()
}

func (cl *Loader) Path() string {
	return cl.ConfigFileUsed()
}

func (cl *Loader) onConfigChange(in fsnotify.Event) {
	if !in.Has(fsnotify.Write) && !in.Has(fsnotify.Rename) && !in.Has(fsnotify.Create) {
		return
	}

	slog.Debug("External config reload triggered", slog.String("path", in.Name))
	config, err := cl.Read()
	if err != nil {
		slog.Error("Error reading config", slog.String("error", err.Error()))

		return
	}

	if errValid := config.Validate(); errValid != nil {
		slog.Error("Ignoring invalid config", slog.String("error", errValid.Error()))

		return
	}

	cl.changes <- config
}

// Read loads the config file. A missing file is fine, everything else is an error. The result is not
// validated, use Config.Validate for that.
func (cl *Loader) Read() (Config, error) {
	if err := cl.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return Config{}, errors.Join(err, errConfigRead)
		}
	}

	var config Config
	if err := cl.Unmarshal(&config); err != nil {
		return Config{}, errors.Join(err, errConfigRead)
	}

	if config.SteamIDString != "" {
		config.SteamID = steamid.New(config.SteamIDString)
	}

	return config, nil
}
