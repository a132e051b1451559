package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rankreport/rankreport-backend/internal/common"
	"github.com/rankreport/rankreport-backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuotaGuard decides, under lock, whether one more report may be created given
// the number already created in the window. A non-nil error aborts the insert.
type QuotaGuard func(current int64) error

// ReportRepository report data access interface
type ReportRepository interface {
	CountInWindow(ctx context.Context, userID string, start, end time.Time) (int64, error)
	CreateWithinQuota(ctx context.Context, report *domain.Report, start, end time.Time, guard QuotaGuard) (int64, error)

	FindByIDForUser(ctx context.Context, id, userID string) (*domain.Report, error)
	ListByUser(ctx context.Context, userID, clientID string, limit, offset int) ([]*domain.Report, int64, error)

	ClaimPending(ctx context.Context, limit int, now time.Time) ([]*domain.Report, error)
	MarkCompleted(ctx context.Context, id string, data domain.ReportData, pdfURL, storageKey string, at time.Time) error
	MarkFailed(ctx context.Context, id, reason string, at time.Time) error
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func windowScope(userID string, start, end time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, start, end)
	}
}

// CountInWindow counts reports created in [start, end)
func (r *reportRepository) CountInWindow(ctx context.Context, userID string, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Report{}).
		Scopes(windowScope(userID, start, end)).
		Count(&count).Error
	return count, err
}

// CreateWithinQuota locks the owner row, counts the window and inserts only if guard allows.
// Concurrent creations for the same user serialize on the row lock.
// Returns the count observed before the insert.
func (r *reportRepository) CreateWithinQuota(ctx context.Context, report *domain.Report, start, end time.Time, guard QuotaGuard) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner domain.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", report.UserID).
			First(&owner).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrUserNotFound
			}
			return err
		}

		if err := tx.Model(&domain.Report{}).
			Scopes(windowScope(report.UserID, start, end)).
			Count(&count).Error; err != nil {
			return err
		}

		if err := guard(count); err != nil {
			return err
		}
		return tx.Create(report).Error
	})
	return count, err
}

func (r *reportRepository) FindByIDForUser(ctx context.Context, id, userID string) (*domain.Report, error) {
	var report domain.Report
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrReportNotFound
		}
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) ListByUser(ctx context.Context, userID, clientID string, limit, offset int) ([]*domain.Report, int64, error) {
	var reports []*domain.Report
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Report{}).Where("user_id = ?", userID)
	if clientID != "" {
		query = query.Where("client_id = ?", clientID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&reports).Error
	return reports, total, err
}

// ClaimPending moves up to limit PENDING reports to PROCESSING.
// A report claimed by another worker in between is skipped.
func (r *reportRepository) ClaimPending(ctx context.Context, limit int, now time.Time) ([]*domain.Report, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&domain.Report{}).
		Where("status = ?", domain.ReportStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}

	claimed := make([]*domain.Report, 0, len(ids))
	for _, id := range ids {
		result := r.db.WithContext(ctx).Model(&domain.Report{}).
			Where("id = ? AND status = ?", id, domain.ReportStatusPending).
			Updates(map[string]interface{}{
				"status":                domain.ReportStatusProcessing,
				"processing_started_at": now,
			})
		if result.Error != nil {
			return claimed, result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}

		var report domain.Report
		if err := r.db.WithContext(ctx).Where("id = ?", id).First(&report).Error; err != nil {
			return claimed, err
		}
		claimed = append(claimed, &report)
	}
	return claimed, nil
}

// MarkCompleted stores the generated data. Only a PROCESSING report can complete.
func (r *reportRepository) MarkCompleted(ctx context.Context, id string, data domain.ReportData, pdfURL, storageKey string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.Report{}).
		Where("id = ? AND status = ?", id, domain.ReportStatusProcessing).
		Updates(map[string]interface{}{
			"status":                  domain.ReportStatusCompleted,
			"data":                    data,
			"pdf_url":                 pdfURL,
			"storage_key":             storageKey,
			"error_message":           "",
			"processing_completed_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrReportNotFound
	}
	return nil
}

// MarkFailed records the failure reason. Completed reports are left untouched.
func (r *reportRepository) MarkFailed(ctx context.Context, id, reason string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.Report{}).
		Where("id = ? AND status <> ?", id, domain.ReportStatusCompleted).
		Updates(map[string]interface{}{
			"status":                  domain.ReportStatusFailed,
			"error_message":           reason,
			"processing_completed_at": at,
		}).Error
}
