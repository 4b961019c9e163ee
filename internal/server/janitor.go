package server

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/devroopsaha744/TexMCP/internal/logfields"
)

// Janitor periodically removes work-directory files older than a configured
// age. Sources, artifacts, and the compiler's aux files all age out together.
type Janitor struct {
	scheduler gocron.Scheduler
	workDir   string
	maxAge    time.Duration
}

// NewJanitor schedules a sweep of workDir every interval.
func NewJanitor(workDir string, maxAge, interval time.Duration) (*Janitor, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	j := &Janitor{scheduler: s, workDir: workDir, maxAge: maxAge}
	if _, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(j.sweep),
		gocron.WithName("artifact-retention"),
	); err != nil {
		return nil, fmt.Errorf("schedule retention sweep: %w", err)
	}
	return j, nil
}

// Start begins the sweep schedule.
func (j *Janitor) Start() {
	slog.Info("Starting artifact retention janitor",
		logfields.Path(j.workDir),
		slog.Duration("max_age", j.maxAge))
	j.scheduler.Start()
}

// Stop shuts the scheduler down.
func (j *Janitor) Stop() error {
	return j.scheduler.Shutdown()
}

func (j *Janitor) sweep() {
	entries, err := os.ReadDir(j.workDir)
	if err != nil {
		slog.Warn("Retention sweep could not read work directory", logfields.Error(err))
		return
	}

	cutoff := time.Now().Add(-j.maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(j.workDir, entry.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("Retention sweep failed to remove file", logfields.Path(path), logfields.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("Retention sweep removed expired files", slog.Int("removed", removed), logfields.Path(j.workDir))
	}
}
