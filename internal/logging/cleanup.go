package logging

import (
	"log/slog"
	"time"

	"github.com/velora-app/auth-service/internal/models"
	"gorm.io/gorm"
)

// retentionDays bounds how long persisted error logs are kept.
const retentionDays = 30

// StartCleanup prunes system_logs past the retention window once a day,
// until done is closed.
func StartCleanup(db *gorm.DB, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -retentionDays)
				result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
				if result.Error != nil {
					slog.Error("log cleanup failed", "error", result.Error)
				} else if result.RowsAffected > 0 {
					slog.Info("log cleanup completed", "deleted", result.RowsAffected)
				}
			case <-done:
				return
			}
		}
	}()
}
