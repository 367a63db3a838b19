package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/leighmacdonald/steam-friends/internal/cache"
	"github.com/leighmacdonald/steam-friends/internal/config"
	"github.com/leighmacdonald/steam-friends/internal/enrich"
	"github.com/leighmacdonald/steam-friends/internal/notify"
	"github.com/leighmacdonald/steam-friends/internal/poller"
	"github.com/leighmacdonald/steam-friends/internal/steamweb"
	"github.com/leighmacdonald/steam-friends/internal/store"
)

// App is the main application container. It wires the api client, caches and publishers to the
// poller and applies configuration changes as they arrive.
type App struct {
	config        config.Config
	client        *steamweb.Client
	scores        *cache.Cache[cache.Score]
	playtime      *cache.Cache[cache.Playtime]
	history       *store.History
	scheduler     *poller.Scheduler
	configUpdates chan config.Config
}

// NewApp returns a new application instance. A nil database disables the history. To actually start
// the app you must call Start().
func NewApp(conf config.Config, httpClient steamweb.HTTPDoer, database store.DBTX, configUpdates chan config.Config,
	out io.Writer,
) *App {
	app := &App{
		config:        conf,
		client:        steamweb.New(httpClient, clientOptions(conf)),
		configUpdates: configUpdates,
	}

	publishers := notify.Multi{notify.NewConsole(out, conf.Scores.Color)}
	if database != nil {
		app.history = store.NewHistory(store.New(database), conf.History.Keep)
		publishers = append(publishers, app.history)
	}

	app.scores, app.playtime = newCaches(conf, publishers)

	cycle := poller.Cycle{
		Source:   app.client,
		Scores:   enrich.NewScoreEnricher(app.scores, app.client),
		Playtime: enrich.NewPlaytimeEnricher(app.playtime, app.client),
	}
	app.scheduler = poller.New(conf, cycle, publishers, app.scores, app.playtime)

	return app
}

func clientOptions(conf config.Config) steamweb.Options {
	return steamweb.Options{
		APIKey:       conf.SteamAPIKey,
		APIBaseURL:   conf.APIBaseURL,
		StoreBaseURL: conf.StoreBaseURL,
		Timeout:      conf.RequestTimeout(),
		Cooldown:     conf.Scores.Cooldown(),
		MinReviews:   conf.Scores.MinReviews,
	}
}

func newCaches(conf config.Config, reporter cache.HealthReporter) (*cache.Cache[cache.Score], *cache.Cache[cache.Playtime]) {
	scores := cache.New("scores", cache.Options[cache.Score]{
		Path:             config.PathCache(config.ScoreCacheName),
		TTL:              conf.Scores.TTL(),
		Capacity:         conf.Cache.Capacity,
		PersistInterval:  conf.Cache.PersistInterval(),
		FailureThreshold: conf.Cache.FailureThreshold,
		Reporter:         reporter,
		TTLFunc:          cache.ScoreTTL,
	})

	playtime := cache.New("playtime", cache.Options[cache.Playtime]{
		Path:             config.PathCache(config.PlaytimeCacheName),
		TTL:              conf.Playtime.TTL(),
		Capacity:         conf.Cache.Capacity,
		PersistInterval:  conf.Cache.PersistInterval(),
		FailureThreshold: conf.Cache.FailureThreshold,
		Reporter:         reporter,
	})

	return scores, playtime
}

// LoadCaches restores the caches from disk. Missing or broken files just mean a cold start.
func (app *App) LoadCaches() {
	app.scores.Load()
	app.playtime.Load()
}

// Start brings up the background goroutines and processes config changes until the context is
// cancelled. It returns once the poller has stopped and the caches are saved.
func (app *App) Start(ctx context.Context) {
	wg := &sync.WaitGroup{}

	if app.history != nil {
		wg.Go(func() { app.history.Start(ctx) })
	}

	wg.Go(func() { app.scheduler.Start(ctx) })

	for {
		select {
		case conf := <-app.configUpdates:
			app.applyConfig(conf)
		case <-ctx.Done():
			wg.Wait()
			slog.Info("Shutdown complete")

			return
		}
	}
}

// applyConfig pushes a new, already validated, configuration to every component and restarts polling.
func (app *App) applyConfig(conf config.Config) {
	slog.Info("Applying new configuration")
	app.config = conf
	app.client.Configure(clientOptions(conf))
	app.scores.SetTTL(conf.Scores.TTL())
	app.playtime.SetTTL(conf.Playtime.TTL())
	app.scheduler.Init(conf)
}

// controls reads simple commands from the terminal for controlling the poller by hand.
func (app *App) controls(ctx context.Context, input io.Reader) {
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "r", "refresh":
			app.scheduler.Trigger()
		case "p", "pause":
			app.scheduler.Suspend()
		case "c", "resume":
			app.scheduler.Resume()
		case "s", "status":
			state := app.scheduler.State()
			slog.Info("Poller status", slog.String("mode", state.Mode.String()),
				slog.Duration("interval", state.Interval), slog.Int("changes", state.Changes),
				slog.Int("failures", state.Failures), slog.Bool("suspended", app.scheduler.Suspended()))
		case "":
		default:
			slog.Warn("Unknown command, try refresh, pause, resume or status", slog.String("input", scanner.Text()))
		}
	}
}
