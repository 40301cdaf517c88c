package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	atomicio "github.com/sawpanic/stockrun/internal/io"
	"github.com/sawpanic/stockrun/internal/scan"
)

// JobTypeWatchlistScan sweeps the watchlist through the scan service and
// writes the resulting report as a JSON artifact.
const JobTypeWatchlistScan = "scan.watchlist"

// Job represents a scheduled job configuration
type Job struct {
	Name            string   `yaml:"name"`
	Type            string   `yaml:"type"`             // "scan.watchlist"
	IntervalMinutes int      `yaml:"interval_minutes"` // 15 when unset
	Description     string   `yaml:"description"`
	Enabled         bool     `yaml:"enabled"`
	Symbols         []string `yaml:"symbols"` // empty means the scan service's configured watchlist
}

// SchedulerConfig holds the main scheduler configuration
type SchedulerConfig struct {
	Jobs   []Job        `yaml:"jobs"`
	Global GlobalConfig `yaml:"global"`
}

// GlobalConfig holds global scheduler settings
type GlobalConfig struct {
	ArtifactsDir string `yaml:"artifacts_dir"`
	LogLevel     string `yaml:"log_level"`
	Timezone     string `yaml:"timezone"`
}

// Status represents scheduler status
type Status struct {
	Running      bool          `json:"running"`
	EnabledJobs  int           `json:"enabled_jobs"`
	DisabledJobs int           `json:"disabled_jobs"`
	NextRun      time.Time     `json:"next_run,omitempty"`
	LastRun      time.Time     `json:"last_run,omitempty"`
	Uptime       time.Duration `json:"uptime"`
}

// JobResult represents the result of a job execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Artifacts []string      `json:"artifacts"`
}

// Scheduler triggers watchlist scans on their configured intervals.
type Scheduler struct {
	config SchedulerConfig
	scans  *scan.Service

	mu        sync.Mutex
	running   bool
	startTime time.Time
	lastRun   map[string]time.Time
	nextRun   map[string]time.Time
}

// NewScheduler loads the job configuration and binds it to the scan service.
func NewScheduler(configPath string, scans *scan.Service) (*Scheduler, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &Scheduler{
		config:  config,
		scans:   scans,
		lastRun: make(map[string]time.Time),
		nextRun: make(map[string]time.Time),
	}, nil
}

// loadConfig loads scheduler configuration from YAML file
func loadConfig(configPath string) (SchedulerConfig, error) {
	var config SchedulerConfig

	data, err := os.ReadFile(configPath)
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config: %w", err)
	}

	// Set defaults
	if config.Global.ArtifactsDir == "" {
		config.Global.ArtifactsDir = "artifacts/scans"
	}
	if config.Global.LogLevel == "" {
		config.Global.LogLevel = "info"
	}
	if config.Global.Timezone == "" {
		config.Global.Timezone = "UTC"
	}
	for i := range config.Jobs {
		if config.Jobs[i].Type == "" {
			config.Jobs[i].Type = JobTypeWatchlistScan
		}
		if config.Jobs[i].IntervalMinutes <= 0 {
			config.Jobs[i].IntervalMinutes = 15
		}
	}

	return config, nil
}

// ListJobs returns all configured jobs
func (s *Scheduler) ListJobs() []Job {
	return s.config.Jobs
}

// GetStatus returns current scheduler status
func (s *Scheduler) GetStatus() *Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := &Status{Running: s.running}
	for _, job := range s.config.Jobs {
		if job.Enabled {
			status.EnabledJobs++
		} else {
			status.DisabledJobs++
		}
	}
	if s.running {
		status.Uptime = time.Since(s.startTime)
	}
	for _, at := range s.lastRun {
		if at.After(status.LastRun) {
			status.LastRun = at
		}
	}
	for _, at := range s.nextRun {
		if status.NextRun.IsZero() || at.Before(status.NextRun) {
			status.NextRun = at
		}
	}

	return status
}

// Start runs the scheduler loop until the context is cancelled. Enabled jobs
// run once immediately and then again on their configured intervals.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.startTime = time.Now()
	s.mu.Unlock()

	log.Info().Int("jobs", len(s.config.Jobs)).Msg("Scheduler starting")

	s.runDueJobs(ctx)

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			log.Info().Msg("Scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runDueJobs(ctx)
		}
	}
}

// runDueJobs executes every enabled job whose interval has elapsed.
func (s *Scheduler) runDueJobs(ctx context.Context) {
	now := time.Now()

	for _, job := range s.config.Jobs {
		if !job.Enabled {
			continue
		}

		s.mu.Lock()
		next, seen := s.nextRun[job.Name]
		s.mu.Unlock()
		if seen && now.Before(next) {
			continue
		}

		result, err := s.RunJob(ctx, job.Name, false)
		if err != nil {
			log.Error().Err(err).Str("job", job.Name).Msg("Job execution failed")
			continue
		}
		if !result.Success {
			log.Warn().Str("job", job.Name).Str("error", result.Error).Msg("Job completed with errors")
		}
	}
}

// RunJob executes a specific job immediately
func (s *Scheduler) RunJob(ctx context.Context, jobName string, dryRun bool) (*JobResult, error) {
	var job *Job
	for i, j := range s.config.Jobs {
		if j.Name == jobName {
			job = &s.config.Jobs[i]
			break
		}
	}
	if job == nil {
		return nil, fmt.Errorf("job not found: %s", jobName)
	}

	startTime := time.Now()
	result := &JobResult{
		JobName:   jobName,
		StartTime: startTime,
		Success:   true,
		Artifacts: []string{},
	}

	log.Info().Str("job", jobName).Str("type", job.Type).Bool("dry_run", dryRun).Msg("Executing job")

	switch job.Type {
	case JobTypeWatchlistScan:
		artifacts, err := s.runWatchlistScan(ctx, job, dryRun)
		if err != nil {
			result.Success = false
			result.Error = err.Error()
		} else {
			result.Artifacts = artifacts
		}
	default:
		result.Success = false
		result.Error = fmt.Sprintf("unknown job type: %s", job.Type)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	if !dryRun {
		s.mu.Lock()
		s.lastRun[jobName] = startTime
		s.nextRun[jobName] = startTime.Add(time.Duration(job.IntervalMinutes) * time.Minute)
		s.mu.Unlock()
	}

	return result, nil
}

// runWatchlistScan executes a watchlist scan job
func (s *Scheduler) runWatchlistScan(ctx context.Context, job *Job, dryRun bool) ([]string, error) {
	symbols := job.Symbols
	if len(symbols) == 0 {
		symbols = s.scans.Symbols()
	}

	log.Info().Int("symbols", len(symbols)).Msg("Running watchlist scan")

	if dryRun {
		log.Info().Strs("symbols", symbols).Msg("Dry run - would scan watchlist and write report artifact")
		return []string{
			filepath.Join(s.config.Global.ArtifactsDir, fmt.Sprintf("%s_scan_report.json", time.Now().Format("20060102_150405"))),
		}, nil
	}

	report, err := s.scans.ScanSymbols(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("watchlist scan failed: %w", err)
	}

	path := filepath.Join(s.config.Global.ArtifactsDir, fmt.Sprintf("%s_scan_report.json", report.StartedAt.Format("20060102_150405")))
	if err := s.writeReportJSON(path, report); err != nil {
		return nil, err
	}

	log.Info().
		Int("analyzed", report.Analyzed).
		Int("failed", report.Failed).
		Int("alerts", len(report.Alerts)).
		Str("path", path).
		Msg("Watchlist scan completed")

	return []string{path}, nil
}

// writeReportJSON writes a scan report artifact. The write is atomic so a
// consumer tailing the artifacts directory never sees a partial report.
func (s *Scheduler) writeReportJSON(path string, report *scan.Report) error {
	if err := atomicio.WriteJSONAtomic(path, report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
