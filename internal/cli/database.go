package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/JonMunkholm/harmonizer/internal/config"
	"github.com/JonMunkholm/harmonizer/internal/history"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// errNoDatabase is returned by database commands run without a URL.
var errNoDatabase = errors.New("no database configured: set --database-url or DATABASE_URL")

// dbTimeout bounds a single maintenance command.
const dbTimeout = time.Minute

func (a *app) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	url := a.v.GetString("database-url")
	if url == "" {
		return nil, errNoDatabase
	}
	return history.OpenPool(ctx, config.DatabaseConfig{URL: url, MaxConns: 2})
}

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending history database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), dbTimeout)
			defer cancel()

			pool, err := a.openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			version, dirty, err := history.Migrate(pool)
			if err != nil {
				return err
			}
			if dirty {
				fmt.Fprintf(a.out, "%s schema version %d is dirty\n", warnText("warning:"), version)
				return nil
			}
			fmt.Fprintf(a.out, "%s schema version %d\n", successText("migrated"), version)
			return nil
		},
	}
}

func newHistoryCommand(a *app) *cobra.Command {
	var (
		limit int
		prune time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversions from the history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), dbTimeout)
			defer cancel()

			pool, err := a.openPool(ctx)
			if err != nil {
				return err
			}
			store := history.NewPostgresStore(pool)
			defer store.Close()

			if prune > 0 {
				removed, err := store.Prune(ctx, time.Now().Add(-prune).UTC())
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s %d entries older than %s\n", successText("pruned"), removed, prune)
				return nil
			}

			entries, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			return writeHistory(a, entries)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultCapacity, "number of entries to list")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete entries older than this age instead of listing")
	return cmd
}

func writeHistory(a *app, entries []history.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "no conversions recorded")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tFILE\tSTATUS\tRECORDS\tBYTES IN\tDURATION")
	for _, e := range entries {
		status := successText(string(e.Status))
		if e.Status == history.StatusFailed {
			status = errorText(string(e.Status) + " " + e.ErrorCode)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%dms\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.FileName, status, e.Records, e.InputBytes, e.DurationMS)
	}
	return tw.Flush()
}
