package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/rankreport/rankreport-backend/internal/domain"
	"github.com/rankreport/rankreport-backend/internal/repository"
	"github.com/rankreport/rankreport-backend/internal/service"
	pkglogger "github.com/rankreport/rankreport-backend/pkg/logger"
	"gorm.io/gorm"
)

const backfillBatchSize = 500

// Run creates or updates the users, clients and reports tables
func Run(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.User{}, &domain.Client{}, &domain.Report{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// BackfillResult summarizes a billing cycle backfill
type BackfillResult struct {
	Scanned int  `json:"scanned"`
	Updated int  `json:"updated"`
	DryRun  bool `json:"dryRun"`
}

// BackfillBillingCycles gives every user without a stored window the window
// containing now, anchored on createdAt. It is safe to run repeatedly.
func BackfillBillingCycles(ctx context.Context, users repository.UserRepository, cycleDays int, dryRun bool, now time.Time) (*BackfillResult, error) {
	if cycleDays <= 0 {
		cycleDays = 30
	}
	length := time.Duration(cycleDays) * 24 * time.Hour
	log := pkglogger.GetLogger()
	result := &BackfillResult{DryRun: dryRun}

	after := ""
	for {
		batch, err := users.FindWithoutBillingCycle(ctx, after, backfillBatchSize)
		if err != nil {
			return result, fmt.Errorf("load users after %q: %w", after, err)
		}
		if len(batch) == 0 {
			break
		}

		for _, user := range batch {
			result.Scanned++
			start, end := service.ComputeCycle(service.CycleAnchor(user), now, length)
			if dryRun {
				log.Info().Str("user_id", user.ID).Time("cycle_start", start).Time("cycle_end", end).Msg("[dry-run] would set billing cycle")
				continue
			}
			if err := users.UpdateBillingCycle(ctx, user.ID, start, end); err != nil {
				return result, fmt.Errorf("backfill user %s: %w", user.ID, err)
			}
			result.Updated++
		}
		after = batch[len(batch)-1].ID
	}

	log.Info().Int("scanned", result.Scanned).Int("updated", result.Updated).Bool("dry_run", dryRun).Msg("billing cycle backfill complete")
	return result, nil
}
