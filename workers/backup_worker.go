package workers

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"snackbox/utils"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BackupWorker dumps the database nightly and ships the dump to object
// storage.
type BackupWorker struct {
	DatabaseURL string
	scheduler   gocron.Scheduler
}

func NewBackupWorker(databaseURL string) *BackupWorker {
	return &BackupWorker{DatabaseURL: databaseURL}
}

// Start schedules the nightly backup job. BACKUP_TIME (HH:MM, UTC) overrides
// the default 03:00.
func (w *BackupWorker) Start() error {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return err
	}
	w.scheduler = sched

	at := os.Getenv("BACKUP_TIME")
	if at == "" {
		at = "03:00"
	}
	var hour, minute int
	if _, err := fmt.Sscanf(at, "%d:%d", &hour, &minute); err != nil {
		return fmt.Errorf("invalid BACKUP_TIME %q: %w", at, err)
	}

	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(hour), uint(minute), 0))),
		gocron.NewTask(func() {
			if err := w.runBackup(context.Background()); err != nil {
				utils.GetLogger().Error("database backup failed", zap.Error(err))
				utils.BackupRunsTotal.WithLabelValues("failure").Inc()
				return
			}
			utils.BackupRunsTotal.WithLabelValues("success").Inc()
		}),
	)
	if err != nil {
		return err
	}

	sched.Start()
	utils.GetLogger().Info("backup worker scheduled", zap.String("at", at))
	return nil
}

// Stop shuts the scheduler down.
func (w *BackupWorker) Stop() {
	if w.scheduler != nil {
		_ = w.scheduler.Shutdown()
	}
}

// runBackup shells pg_dump into a temp file and uploads it.
func (w *BackupWorker) runBackup(ctx context.Context) error {
	dumpFile := filepath.Join(os.TempDir(), fmt.Sprintf("snackbox-%s.dump", uuid.NewString()))
	defer os.Remove(dumpFile)

	cmd := exec.CommandContext(ctx, "pg_dump", "--format=custom", "--file", dumpFile, w.DatabaseURL)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pg_dump failed: %w: %s", err, string(out))
	}

	f, err := os.Open(dumpFile)
	if err != nil {
		return fmt.Errorf("failed to open dump: %w", err)
	}
	defer f.Close()

	key := fmt.Sprintf("backups/%s.dump", time.Now().UTC().Format("2006-01-02T15-04-05"))
	if err := utils.UploadObject(ctx, key, f, "application/octet-stream"); err != nil {
		return err
	}

	utils.GetLogger().Info("database backup uploaded", zap.String("key", key))
	return nil
}
