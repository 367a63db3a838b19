package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/leighmacdonald/steam-friends/internal/cache"
	"github.com/leighmacdonald/steam-friends/internal/config"
	"github.com/leighmacdonald/steam-friends/internal/store"
	"github.com/spf13/cobra"
)

var errUnknownCache = errors.New("unknown cache")

func historyCmd() *cobra.Command {
	var limit int64

	cmd := &cobra.Command{
		Use:               "history",
		Short:             "Show recent snapshots and errors",
		Long:              "Show the most recently published friend list snapshots and fetch errors",
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, errDB := store.Open(cmd.Context(), config.Path(config.DefaultDBName), true)
			if errDB != nil {
				return errors.Join(errDB, errApp)
			}
			defer database.Close()

			queries := store.New(database)

			snapshots, errSnapshots := queries.RecentSnapshots(cmd.Context(), limit)
			if errSnapshots != nil {
				return errors.Join(errSnapshots, errApp)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Snapshots:\n")
			for _, snapshot := range snapshots {
				fmt.Fprintf(out, "  #%-5d %-16s %3d friends %3d in game  %s\n", snapshot.Changes,
					humanize.Time(time.Unix(snapshot.CreatedOn, 0)), snapshot.FriendCount, snapshot.InGame,
					snapshot.Fingerprint[:min(12, len(snapshot.Fingerprint))])
			}

			fetchErrors, errFetch := queries.RecentFetchErrors(cmd.Context(), limit)
			if errFetch != nil {
				return errors.Join(errFetch, errApp)
			}

			fmt.Fprintf(out, "Errors:\n")
			for _, fetchErr := range fetchErrors {
				fmt.Fprintf(out, "  %-16s failure %d: %s\n", humanize.Time(time.Unix(fetchErr.CreatedOn, 0)),
					fetchErr.Failures, fetchErr.Message)
			}

			return nil
		},
	}

	cmd.Flags().Int64Var(&limit, "limit", 20, "Number of entries to show")

	return cmd
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "cache",
		Short:             "Show enrichment cache usage",
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, userConfig, errConfig := loadConfig(cmd, nil, false)
			if errConfig != nil {
				return errConfig
			}

			scores, playtime := newCaches(userConfig, nil)
			scores.Load()
			playtime.Load()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %8s entries  %s\n", scores.Name(), humanize.Comma(int64(scores.Len())),
				config.PathCache(config.ScoreCacheName))
			fmt.Fprintf(out, "%-10s %8s entries  %s\n", playtime.Name(), humanize.Comma(int64(playtime.Len())),
				config.PathCache(config.PlaytimeCacheName))

			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "clear [scores|playtime]",
		Short:     "Remove cached entries",
		Long:      "Remove every entry from the named cache, or from all caches when no name is given",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"scores", "playtime"},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, userConfig, errConfig := loadConfig(cmd, nil, false)
			if errConfig != nil {
				return errConfig
			}

			scores, playtime := newCaches(userConfig, nil)
			targets := map[string]clearable{scores.Name(): scores, playtime.Name(): playtime}

			if len(args) == 1 {
				target, found := targets[args[0]]
				if !found {
					return fmt.Errorf("%w: %s", errUnknownCache, args[0])
				}

				targets = map[string]clearable{args[0]: target}
			}

			for name, target := range targets {
				target.Clear()
				if err := target.Save(); err != nil {
					return errors.Join(err, errApp)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", name)
			}

			return nil
		},
	})

	return cmd
}

type clearable interface {
	Clear()
	Save() error
}

var (
	_ clearable = (*cache.Cache[cache.Score])(nil)
	_ clearable = (*cache.Cache[cache.Playtime])(nil)
)

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "History database maintenance",
	}

	var action string

	migrateCmd := &cobra.Command{
		Use:               "migrate",
		Short:             "Apply schema migrations",
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			migrationAction, errAction := store.ParseMigrationAction(action)
			if errAction != nil {
				return errAction
			}

			database, errDB := store.Open(cmd.Context(), config.Path(config.DefaultDBName), false)
			if errDB != nil {
				return errors.Join(errDB, errApp)
			}
			defer database.Close()

			if err := store.Migrate(database, migrationAction); err != nil {
				return errors.Join(err, errApp)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Migration %s complete\n", action)

			return nil
		},
	}
	migrateCmd.Flags().StringVar(&action, "action", "up", "One of up, down, up-one or down-one")
	cmd.AddCommand(migrateCmd)

	return cmd
}
