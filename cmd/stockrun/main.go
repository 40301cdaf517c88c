package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sawpanic/stockrun/internal/config"
)

const (
	appName = "StockRun"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     "stockrun",
		Short:   "Retail meme-stock opportunity scanner",
		Version: version,
		Long: `StockRun scans retail-heavy stocks for divergences between retail
sentiment and institutional positioning.

Each symbol is scored across five domains (social, technical, fundamental,
analyst, structure), combined into a weighted composite, run through the
divergence detectors, and turned into prioritized alerts.

  stockrun analyze GME AMC        analyze symbols immediately
  stockrun scan                   sweep the configured watchlist
  stockrun serve                  REST + websocket API with /metrics
  stockrun schedule start         recurring scans from config/scheduler.yaml`,
		PersistentPreRun: applyLogLevel,
	}

	rootCmd.PersistentFlags().String("config", config.DefaultDir, "Configuration directory")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace|debug|info|warn|error)")

	// Add analyze command for on-demand symbol analysis
	analyzeCmd := &cobra.Command{
		Use:   "analyze [symbols...]",
		Short: "Analyze symbols immediately",
		Long:  "Run the full five-domain pipeline for the given symbols and print each result",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAnalyze,
	}

	analyzeCmd.Flags().Bool("json", false, "Print raw analysis JSON instead of the summary")

	// Add scan command for watchlist sweeps
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Sweep the watchlist and report opportunities",
		Long:  "Analyze every watchlist symbol, rank the results, and print alerts above the configured threshold",
		RunE:  runScan,
	}

	scanCmd.Flags().String("symbols", "", "Comma-separated symbols overriding the configured watchlist")
	scanCmd.Flags().Bool("json", false, "Print the full scan report as JSON")

	// Add serve command for the HTTP API
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST and websocket API server",
		Long:  "Serves /health, /status, /analyze, /scan, /watchlist, /top-opportunities, /alerts, /ws/alerts, and /metrics",
		RunE:  runServe,
	}

	serveCmd.Flags().String("host", "", "Bind host (default from HTTP config)")
	serveCmd.Flags().Int("port", 0, "Bind port (default 8080, or HTTP_PORT)")
	serveCmd.Flags().Bool("scheduler", false, "Also run the scan scheduler in-process")

	// Add schedule command for recurring scan loops
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Recurring watchlist scan scheduler",
		Long:  "Manage the interval scan jobs defined in config/scheduler.yaml",
	}

	// Add list subcommand
	scheduleListCmd := &cobra.Command{
		Use:   "list",
		Short: "List all configured scheduled jobs",
		Long:  "Display all jobs with their intervals, status, and descriptions",
		RunE:  runScheduleList,
	}

	// Add start subcommand
	scheduleStartCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		Long:  "Run enabled jobs on their configured intervals until interrupted",
		RunE:  runScheduleStart,
	}

	// Add status subcommand
	scheduleStatusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show scheduler configuration status",
		Long:  "Display the configured job counts and run state",
		RunE:  runScheduleStatus,
	}

	// Add run subcommand
	scheduleRunCmd := &cobra.Command{
		Use:   "run [job-name]",
		Short: "Execute a specific job immediately",
		Long:  "Run a scheduled job immediately for testing or manual execution",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runScheduleRun,
	}

	scheduleRunCmd.Flags().Bool("dry-run", false, "Preview job execution without scanning or writing artifacts")

	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleStartCmd)
	scheduleCmd.AddCommand(scheduleStatusCmd)
	scheduleCmd.AddCommand(scheduleRunCmd)

	// Add watchlist command for the Postgres-backed watchlist
	watchlistCmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Manage the persistent watchlist",
		Long:  "Inspect and edit the Postgres watchlist (requires database.enabled in config/database.yaml)",
	}

	// Add init subcommand
	watchlistInitCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the watchlist schema and seed the default tickers",
		RunE:  runWatchlistInit,
	}

	// Add list subcommand
	watchlistListCmd := &cobra.Command{
		Use:   "list",
		Short: "List watchlist tickers",
		RunE:  runWatchlistList,
	}

	watchlistListCmd.Flags().String("priority", "", "Filter by priority (high|medium|low)")
	watchlistListCmd.Flags().Bool("all", false, "Include removed tickers")

	// Add add subcommand
	watchlistAddCmd := &cobra.Command{
		Use:   "add [symbol]",
		Short: "Add a ticker to the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatchlistAdd,
	}

	watchlistAddCmd.Flags().String("priority", "medium", "Priority (high|medium|low)")
	watchlistAddCmd.Flags().String("company", "", "Company name")
	watchlistAddCmd.Flags().String("sector", "", "Sector")
	watchlistAddCmd.Flags().String("reason", "", "Why the ticker is being tracked")
	watchlistAddCmd.Flags().String("notes", "", "Free-form notes")
	watchlistAddCmd.Flags().Float64("entry", 0, "Entry target price")
	watchlistAddCmd.Flags().Float64("exit", 0, "Exit target price")
	watchlistAddCmd.Flags().Float64("stop", 0, "Stop loss price")

	// Add remove subcommand
	watchlistRemoveCmd := &cobra.Command{
		Use:   "remove [symbol]",
		Short: "Remove a ticker from the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatchlistRemove,
	}

	watchlistCmd.AddCommand(watchlistInitCmd)
	watchlistCmd.AddCommand(watchlistListCmd)
	watchlistCmd.AddCommand(watchlistAddCmd)
	watchlistCmd.AddCommand(watchlistRemoveCmd)

	rootCmd.AddCommand(analyzeCmd)   // On-demand analysis
	rootCmd.AddCommand(scanCmd)      // Watchlist sweeps
	rootCmd.AddCommand(serveCmd)     // HTTP API
	rootCmd.AddCommand(scheduleCmd)  // Recurring scans
	rootCmd.AddCommand(watchlistCmd) // Watchlist management

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// applyLogLevel sets the global zerolog level from --log-level.
func applyLogLevel(cmd *cobra.Command, args []string) {
	raw, _ := cmd.Flags().GetString("log-level")
	level, err := zerolog.ParseLevel(raw)
	if err != nil {
		log.Warn().Str("log_level", raw).Msg("unknown log level, keeping info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
