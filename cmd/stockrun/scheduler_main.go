package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/stockrun/internal/scheduler"
)

// schedulerConfigPath locates scheduler.yaml inside the config directory.
func schedulerConfigPath(cmd *cobra.Command) string {
	configDir, _ := cmd.Flags().GetString("config")
	return filepath.Join(configDir, "scheduler.yaml")
}

// runScheduleList lists all configured scheduled jobs.
func runScheduleList(cmd *cobra.Command, args []string) error {
	// Listing only reads the job config, no scan pipeline needed.
	sched, err := scheduler.NewScheduler(schedulerConfigPath(cmd), nil)
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	jobs := sched.ListJobs()

	fmt.Printf("📋 Scheduled Jobs (%d)\n", len(jobs))
	fmt.Printf("%-20s %-12s %-8s %-s\n", "JOB NAME", "INTERVAL", "STATUS", "DESCRIPTION")
	fmt.Printf("%-20s %-12s %-8s %-s\n", "--------", "--------", "------", "-----------")

	for _, job := range jobs {
		status := "enabled"
		if !job.Enabled {
			status = "disabled"
		}
		fmt.Printf("%-20s %-12s %-8s %-s\n", job.Name, fmt.Sprintf("every %dm", job.IntervalMinutes), status, job.Description)
	}

	return nil
}

// runScheduleStart starts the scheduler daemon.
func runScheduleStart(cmd *cobra.Command, args []string) error {
	configDir, _ := cmd.Flags().GetString("config")

	log.Info().Msg("Starting StockRun scheduler daemon")

	app, err := buildApp(configDir, appOptions{withStore: true, withDB: true})
	if err != nil {
		return err
	}
	defer app.Close()

	sched, err := scheduler.NewScheduler(schedulerConfigPath(cmd), app.scans)
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if app.dbm != nil {
		if err := app.dbm.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("database schema: %w", err)
		}
	}

	log.Info().Msg("Scheduler daemon running. Press Ctrl+C to stop.")

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scheduler failed: %w", err)
	}

	log.Info().Msg("Scheduler daemon stopped")
	return nil
}

// runScheduleStatus shows the scheduler configuration status.
func runScheduleStatus(cmd *cobra.Command, args []string) error {
	sched, err := scheduler.NewScheduler(schedulerConfigPath(cmd), nil)
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	status := sched.GetStatus()

	fmt.Printf("🕐 Scheduler Status\n")
	fmt.Printf("Running: %v\n", status.Running)
	fmt.Printf("Jobs Enabled: %d\n", status.EnabledJobs)
	fmt.Printf("Jobs Disabled: %d\n", status.DisabledJobs)
	if !status.NextRun.IsZero() {
		fmt.Printf("Next Run: %s\n", status.NextRun.Format(time.RFC3339))
	}
	if !status.LastRun.IsZero() {
		fmt.Printf("Last Run: %s\n", status.LastRun.Format(time.RFC3339))
	}

	return nil
}

// runScheduleRun executes a specific scheduled job immediately.
func runScheduleRun(cmd *cobra.Command, args []string) error {
	configDir, _ := cmd.Flags().GetString("config")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	jobName := args[0]

	log.Info().Str("job", jobName).Bool("dry_run", dryRun).Msg("Running scheduled job")

	app, err := buildApp(configDir, appOptions{withStore: !dryRun, withDB: !dryRun})
	if err != nil {
		return err
	}
	defer app.Close()

	sched, err := scheduler.NewScheduler(schedulerConfigPath(cmd), app.scans)
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if app.dbm != nil {
		if err := app.dbm.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("database schema: %w", err)
		}
	}

	result, err := sched.RunJob(ctx, jobName, dryRun)
	if err != nil {
		return fmt.Errorf("job execution failed: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("job %s failed: %s", jobName, result.Error)
	}

	fmt.Printf("✅ Job '%s' completed successfully\n", jobName)
	fmt.Printf("Duration: %s\n", result.Duration.Round(time.Millisecond))
	if len(result.Artifacts) > 0 {
		fmt.Printf("Generated artifacts:\n")
		for _, artifact := range result.Artifacts {
			fmt.Printf("  %s\n", artifact)
		}
	}

	return nil
}
