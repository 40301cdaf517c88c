package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/stockrun/internal/domain"
	"github.com/sawpanic/stockrun/internal/scan"
)

// runAnalyze analyzes the requested symbols immediately and prints each result.
func runAnalyze(cmd *cobra.Command, args []string) error {
	configDir, _ := cmd.Flags().GetString("config")
	asJSON, _ := cmd.Flags().GetBool("json")

	app, err := buildApp(configDir, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := app.scans.ScanSymbols(ctx, args)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if asJSON {
		return printJSON(report.Results)
	}

	for _, analysis := range report.Results {
		printAnalysis(analysis)
	}
	if report.Failed > 0 {
		fmt.Printf("\n⚠️  %d of %d symbols failed\n", report.Failed, report.Requested)
	}

	return nil
}

// runScan sweeps the watchlist and prints the ranked report.
func runScan(cmd *cobra.Command, args []string) error {
	configDir, _ := cmd.Flags().GetString("config")
	asJSON, _ := cmd.Flags().GetBool("json")
	override, _ := cmd.Flags().GetString("symbols")

	app, err := buildApp(configDir, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	symbols := app.scans.Symbols()
	if override != "" {
		symbols = splitSymbols(override)
	}

	log.Info().Int("symbols", len(symbols)).Msg("Starting watchlist scan")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	report, err := app.scans.ScanSymbols(ctx, symbols)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if asJSON {
		return printJSON(report)
	}

	printReport(report)
	return nil
}

// printReport renders a scan report as a ranked terminal table plus alerts.
func printReport(report *scan.Report) {
	fmt.Printf("✅ Scan completed: %d analyzed, %d failed in %s\n\n",
		report.Analyzed, report.Failed, report.Duration.Round(time.Millisecond))

	fmt.Printf("%-8s %-7s %-8s %-14s %-s\n", "SYMBOL", "SCORE", "RISK", "OPPORTUNITY", "SIGNALS")
	fmt.Printf("%-8s %-7s %-8s %-14s %-s\n", "------", "-----", "----", "-----------", "-------")
	for _, analysis := range report.Results {
		score := analysis.CompositeScore
		if score == nil {
			continue
		}
		fmt.Printf("%-8s %-7.1f %-8s %-14s %-d\n",
			analysis.Symbol, score.TotalScore, score.RiskLevel, score.OpportunityType, len(analysis.DivergenceSignals))
	}

	if len(report.AboveThreshold) > 0 {
		fmt.Printf("\n🎯 Above alert threshold (%.0f): %s\n",
			report.AlertThreshold, strings.Join(report.AboveThreshold, ", "))
	}

	if len(report.Alerts) > 0 {
		fmt.Printf("\n🚨 Alerts (%d)\n", len(report.Alerts))
		for _, alert := range report.Alerts {
			fmt.Printf("  [%s] %s %s — %s\n", alert.Priority, alert.Symbol, alert.AlertType, alert.TriggerReason)
		}
	}
}

// printAnalysis renders one analysis as a terminal summary.
func printAnalysis(analysis *domain.Analysis) {
	fmt.Printf("\n📊 %s", analysis.Symbol)
	if analysis.CompanyName != "" && analysis.CompanyName != analysis.Symbol {
		fmt.Printf(" (%s)", analysis.CompanyName)
	}
	fmt.Println()

	score := analysis.CompositeScore
	if score == nil {
		fmt.Println("  no composite score")
		return
	}

	fmt.Printf("  Composite %.1f  risk %s  opportunity %s  confidence %.2f\n",
		score.TotalScore, score.RiskLevel, score.OpportunityType, score.ConfidenceLevel)
	fmt.Printf("  social %.1f · technical %.1f · fundamental %.1f · analyst %.1f · structure %.1f\n",
		score.SocialScore, score.TechnicalScore, score.FundamentalScore, score.AnalystScore, score.StructureScore)

	for _, signal := range analysis.DivergenceSignals {
		fmt.Printf("  ⚡ %s (strength %.2f, confidence %.2f, %s term): %s\n",
			signal.DivergenceType, signal.Strength, signal.Confidence, signal.Timeframe, signal.Description)
	}
	for _, alert := range analysis.Alerts {
		fmt.Printf("  🚨 [%s] %s\n", alert.Priority, alert.TriggerReason)
	}
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// splitSymbols parses a comma-separated symbol list, dropping empties.
func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			symbols = append(symbols, trimmed)
		}
	}
	return symbols
}
