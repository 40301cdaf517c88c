package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sawpanic/stockrun/internal/domain"
	"github.com/sawpanic/stockrun/internal/persistence"
	"github.com/sawpanic/stockrun/internal/watchlist"
)

// buildWatchlistApp assembles the app with Postgres and fails fast when the
// database is disabled in config.
func buildWatchlistApp(cmd *cobra.Command) (*app, error) {
	configDir, _ := cmd.Flags().GetString("config")

	app, err := buildApp(configDir, appOptions{withDB: true})
	if err != nil {
		return nil, err
	}
	if app.watch == nil {
		app.Close()
		return nil, fmt.Errorf("database persistence is disabled; set enabled: true in config/database.yaml or PG_ENABLED=1")
	}
	return app, nil
}

// runWatchlistInit creates the schema and seeds the configured tickers.
func runWatchlistInit(cmd *cobra.Command, args []string) error {
	app, err := buildWatchlistApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := app.dbm.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("database schema: %w", err)
	}

	seeded, err := app.watch.Seed(ctx, app.cfg.Watchlist.Symbols)
	if err != nil {
		return fmt.Errorf("seeding watchlist failed: %w", err)
	}

	fmt.Printf("✅ Watchlist schema ready, seeded %d of %d tickers\n", seeded, len(app.cfg.Watchlist.Symbols))
	return nil
}

// checkPriority rejects values outside the known priority levels. Empty is
// allowed so list can skip the filter.
func checkPriority(raw string) error {
	switch domain.Priority(raw) {
	case "", domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
		return nil
	default:
		return fmt.Errorf("priority must be high, medium, or low")
	}
}

// runWatchlistList prints the watchlist as a table.
func runWatchlistList(cmd *cobra.Command, args []string) error {
	priority, _ := cmd.Flags().GetString("priority")
	includeAll, _ := cmd.Flags().GetBool("all")

	if err := checkPriority(priority); err != nil {
		return err
	}

	app, err := buildWatchlistApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tickers, err := app.watch.List(ctx, persistence.ListFilter{
		Priority:        domain.Priority(priority),
		IncludeInactive: includeAll,
	})
	if err != nil {
		return fmt.Errorf("listing watchlist failed: %w", err)
	}

	fmt.Printf("📋 Watchlist (%d)\n", len(tickers))
	fmt.Printf("%-8s %-9s %-7s %-10s %-9s %-s\n", "SYMBOL", "PRIORITY", "SCORE", "PRICE", "24H", "ADDED")
	fmt.Printf("%-8s %-9s %-7s %-10s %-9s %-s\n", "------", "--------", "-----", "-----", "---", "-----")

	for _, ticker := range tickers {
		fmt.Printf("%-8s %-9s %-7s %-10s %-9s %-s\n",
			ticker.Symbol,
			ticker.Priority,
			formatOptional(ticker.LastScore, "%.1f"),
			formatOptional(ticker.LastPrice, "$%.2f"),
			formatOptional(ticker.ChangePct24h, "%+.1f%%"),
			ticker.AddedAt.Format("2006-01-02"),
		)
	}

	return nil
}

// runWatchlistAdd adds one ticker with optional targets.
func runWatchlistAdd(cmd *cobra.Command, args []string) error {
	priority, _ := cmd.Flags().GetString("priority")
	company, _ := cmd.Flags().GetString("company")
	sector, _ := cmd.Flags().GetString("sector")
	reason, _ := cmd.Flags().GetString("reason")
	notes, _ := cmd.Flags().GetString("notes")

	if err := checkPriority(priority); err != nil {
		return err
	}

	req := watchlist.AddRequest{
		Symbol:      args[0],
		CompanyName: company,
		Sector:      sector,
		Priority:    domain.Priority(priority),
		ReasonAdded: reason,
		Notes:       notes,
		EntryTarget: changedFloat(cmd.Flags(), "entry"),
		ExitTarget:  changedFloat(cmd.Flags(), "exit"),
		StopLoss:    changedFloat(cmd.Flags(), "stop"),
	}

	app, err := buildWatchlistApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	record, err := app.watch.Add(ctx, req)
	if err != nil {
		return fmt.Errorf("adding ticker failed: %w", err)
	}

	fmt.Printf("✅ %s added with %s priority\n", record.Symbol, record.Priority)
	return nil
}

// runWatchlistRemove soft-deletes one ticker.
func runWatchlistRemove(cmd *cobra.Command, args []string) error {
	app, err := buildWatchlistApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := app.watch.Remove(ctx, args[0])
	if err != nil {
		return fmt.Errorf("removing ticker failed: %w", err)
	}
	if !removed {
		return fmt.Errorf("%s is not on the watchlist", persistence.NormalizeSymbol(args[0]))
	}

	fmt.Printf("✅ %s removed from watchlist\n", persistence.NormalizeSymbol(args[0]))
	return nil
}

// changedFloat returns the flag value only when the user set it, so zero
// stays distinguishable from unset.
func changedFloat(flags *pflag.FlagSet, name string) *float64 {
	if !flags.Changed(name) {
		return nil
	}
	val, _ := flags.GetFloat64(name)
	return &val
}

// formatOptional renders an optional numeric column.
func formatOptional(val *float64, format string) string {
	if val == nil {
		return "-"
	}
	return fmt.Sprintf(format, *val)
}
