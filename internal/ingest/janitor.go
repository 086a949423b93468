package ingest

import (
	"time"

	"github.com/go-co-op/gocron"

	"docchat-platform/internal/logger"
)

// Janitor periodically removes uploads that outlived their ingestion run,
// such as files left behind by a crash.
type Janitor struct {
	scheduler *gocron.Scheduler
	storage   *FileStorage
	maxAge    time.Duration
}

func NewJanitor(storage *FileStorage, maxAge time.Duration) *Janitor {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	return &Janitor{scheduler: s, storage: storage, maxAge: maxAge}
}

// Start sweeps every interval until Stop.
func (j *Janitor) Start(every time.Duration) error {
	if _, err := j.scheduler.Every(every).Tag("upload-sweep").Do(j.Sweep); err != nil {
		return err
	}
	j.scheduler.StartAsync()
	return nil
}

func (j *Janitor) Stop() {
	j.scheduler.Stop()
}

// Sweep runs one cleanup pass.
func (j *Janitor) Sweep() {
	removed, err := j.storage.Sweep(j.maxAge)
	if err != nil {
		logger.Warn("Upload sweep failed", "dir", j.storage.Dir(), "error", err)
		return
	}
	if removed > 0 {
		logger.Info("Removed stale uploads", "count", removed, "max_age", j.maxAge.String())
	}
}
