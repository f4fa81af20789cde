package notification

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"go.uber.org/fx"
)

const defaultRetentionDays = 90

// RetentionSweeper hard-deletes events past the retention window once a day.
type RetentionSweeper struct {
	service       *Service
	retentionDays int
}

func NewRetentionSweeper(service *Service) *RetentionSweeper {
	days := defaultRetentionDays
	if v := os.Getenv("NOTIFICATION_RETENTION_DAYS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			days = parsed
		}
	}
	return &RetentionSweeper{service: service, retentionDays: days}
}

// StartSweeper runs the daily purge in the background for the lifetime of the
// application.
func (s *RetentionSweeper) StartSweeper(lc fx.Lifecycle) {
	ticker := time.NewTicker(24 * time.Hour)
	done := make(chan bool)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Printf("Starting notification retention sweeper (retention %d days)...", s.retentionDays)
			go func() {
				sweepCtx := context.Background()
				for {
					select {
					case <-ticker.C:
						if _, err := s.service.PurgeOlderThan(sweepCtx, s.retentionDays); err != nil {
							log.Println("Retention sweep failed:", err)
						}
					case <-done:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("Stopping notification retention sweeper...")
			ticker.Stop()
			done <- true
			return nil
		},
	})
}
