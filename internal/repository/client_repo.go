package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rankreport/rankreport-backend/internal/common"
	"github.com/rankreport/rankreport-backend/internal/domain"
	"gorm.io/gorm"
)

// ClientRepository client data access interface
type ClientRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Client, error)
	FindByIDForUser(ctx context.Context, id, userID string) (*domain.Client, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Client, error)
	CountByUser(ctx context.Context, userID string) (int64, error)

	Create(ctx context.Context, client *domain.Client) error
	UpdateGoogleToken(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error
	DeleteWithReports(ctx context.Context, id, userID string) ([]string, error)
}

type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new ClientRepository
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) FindByID(ctx context.Context, id string) (*domain.Client, error) {
	var client domain.Client
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrClientNotFound
		}
		return nil, err
	}
	return &client, nil
}

// FindByIDForUser scopes the lookup to the owner; other tenants' clients are not found
func (r *clientRepository) FindByIDForUser(ctx context.Context, id, userID string) (*domain.Client, error) {
	var client domain.Client
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrClientNotFound
		}
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Client, error) {
	var clients []*domain.Client
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&clients).Error
	return clients, err
}

func (r *clientRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Client{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

// UpdateGoogleToken stores a refreshed token. An empty refreshToken keeps the stored one.
func (r *clientRepository) UpdateGoogleToken(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error {
	updates := map[string]interface{}{
		"google_access_token": accessToken,
		"google_token_expiry": expiry,
	}
	if refreshToken != "" {
		updates["google_refresh_token"] = refreshToken
	}
	return r.db.WithContext(ctx).Model(&domain.Client{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteWithReports removes the client and all of its reports in one transaction.
// Returns the storage keys of deleted reports so the caller can purge objects.
func (r *clientRepository) DeleteWithReports(ctx context.Context, id, userID string) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var client domain.Client
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&client).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrClientNotFound
			}
			return err
		}

		if err := tx.Model(&domain.Report{}).
			Where("client_id = ? AND storage_key <> ''", id).
			Pluck("storage_key", &keys).Error; err != nil {
			return err
		}

		if err := tx.Where("client_id = ?", id).Delete(&domain.Report{}).Error; err != nil {
			return err
		}
		return tx.Delete(&client).Error
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}
