package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"runtime"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/fang"
	_ "github.com/joho/godotenv/autoload"
	"github.com/leighmacdonald/steam-friends/internal/config"
	"github.com/leighmacdonald/steam-friends/internal/store"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var (
	BuildVersion   = "master"
	BuildCommit    = "00000000"
	BuildDate      = time.Now().Format("2006-01-02T15:04:05Z")
	BuildGoVersion = runtime.Version()
	cfgFile        string
	logFileName    string
	debug          bool
	rootCmd        = &cobra.Command{
		Use:   "steam-friends",
		Short: "Live steam friend list",
		Long:  `steam-friends - Keeps a sorted, enriched view of your steam friend list up to date`,
		Args:  cobra.NoArgs,
		RunE:  run,
	}

	versionCmd = &cobra.Command{
		Use:               "version",
		Short:             "Print version information",
		Long:              "Print detailed version information about steam-friends",
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		Run:               version,
	}
)

var errApp = errors.New("application error")

func main() {
	configPath := config.Path(config.DefaultConfigName)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", configPath, "Config file path")
	rootCmd.PersistentFlags().StringVar(&logFileName, "log", "", "Log to this file under the config dir instead of stderr")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.AddCommand(versionCmd, historyCmd(), cacheCmd(), dbCmd())

	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		slog.Error("Exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func version(_ *cobra.Command, _ []string) {
	fmt.Printf("steam-friends - Steam friend list monitor\n\n") //nolint:forbidigo
	fmt.Printf("  Version: %s\n", BuildVersion)                 //nolint:forbidigo
	fmt.Printf("  Commit:  %s\n", BuildCommit)                  //nolint:forbidigo
	fmt.Printf("  Built:   %s\n", BuildDate)                    //nolint:forbidigo
	fmt.Printf("  Runtime: %s\n\n", BuildGoVersion)             //nolint:forbidigo
}

// loadConfig reads the user config, validating it when requested. An explicitly passed --config must exist.
func loadConfig(cmd *cobra.Command, changes chan<- config.Config, validate bool) (*config.Loader, config.Config, error) {
	// Make sure our config & data home exists.
	if err := os.MkdirAll(path.Join(xdg.ConfigHome, config.ConfigDirName), 0o750); err != nil {
		return nil, config.Config{}, errors.Join(err, errApp)
	}

	loader := config.NewLoader(changes)
	if cmd.Flags().Changed("config") {
		loader.SetConfigFile(cfgFile)
	}

	userConfig, errConfig := loader.Read()
	if errConfig != nil {
		return nil, config.Config{}, errors.Join(errConfig, errApp)
	}

	if !validate {
		return loader, userConfig, nil
	}

	if errValid := userConfig.Validate(); errValid != nil {
		var verr *config.ValidationError
		if errors.As(errValid, &verr) {
			for _, field := range verr.Fields {
				slog.Error("Invalid config value", slog.String("field", field.Field), slog.String("error", field.Message))
			}
		}

		return nil, config.Config{}, errors.Join(errValid, errApp)
	}

	return loader, userConfig, nil
}

func initLogger() (io.Closer, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logFile, errLogger := config.LoggerInit(logFileName, level)
	if errLogger != nil {
		return nil, errors.Join(errLogger, errApp)
	}

	return logFile, nil
}

func closeLogger(closer io.Closer) {
	if err := closer.Close(); err != nil {
		slog.Error("Failed to close log file", slog.String("error", err.Error()))
	}
}

// run is the main entry point of steam-friends.
func run(cmd *cobra.Command, _ []string) error {
	logFile, errLogger := initLogger()
	if errLogger != nil {
		return errLogger
	}
	defer closeLogger(logFile)

	configUpdates := make(chan config.Config)
	loader, userConfig, errConfig := loadConfig(cmd, configUpdates, true)
	if errConfig != nil {
		return errConfig
	}

	slog.Info("Starting steam-friends", slog.String("version", BuildVersion),
		slog.String("commit", BuildCommit), slog.String("date", BuildDate),
		slog.String("go", runtime.Version()), slog.String("config", loader.Path()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var database store.DBTX
	if userConfig.History.Enabled {
		// Setup the sqlite database system.
		conn, errDB := store.Open(ctx, config.Path(config.DefaultDBName), true)
		if errDB != nil {
			return errors.Join(errDB, errApp)
		}

		defer func() {
			if err := conn.Close(); err != nil {
				slog.Error("Error closing database", slog.String("error", err.Error()))
			}
		}()

		database = conn
	}

	httpClient := &http.Client{Timeout: config.DefaultHTTPTimeout}
	app := NewApp(userConfig, httpClient, database, configUpdates, os.Stdout)
	app.LoadCaches()

	loader.Watch()

	if isTerminal(os.Stdin) {
		go app.controls(ctx, os.Stdin)
	}

	app.Start(ctx)

	return nil
}

func isTerminal(file *os.File) bool {
	info, err := file.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}
