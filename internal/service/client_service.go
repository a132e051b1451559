package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rankreport/rankreport-backend/internal/common"
	"github.com/rankreport/rankreport-backend/internal/domain"
	"github.com/rankreport/rankreport-backend/internal/repository"
	"github.com/rankreport/rankreport-backend/pkg/cache"
	pkglogger "github.com/rankreport/rankreport-backend/pkg/logger"
	"github.com/rankreport/rankreport-backend/pkg/storage"
)

// ObjectStore is the subset of pkg/storage used for rendered reports
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string, size int64) (*storage.UploadResult, error)
	DeleteMany(ctx context.Context, keys []string) error
}

// ClientService business logic for agency clients
type ClientService interface {
	CreateClient(ctx context.Context, userID string, req *domain.CreateClientRequest) (*domain.Client, error)
	GetClient(ctx context.Context, userID, clientID string) (*domain.Client, error)
	ListClients(ctx context.Context, userID string) ([]*domain.Client, error)
	DeleteClient(ctx context.Context, userID, clientID string) error
}

type clientService struct {
	plans      PlanService
	clientRepo repository.ClientRepository
	store      ObjectStore
	cache      cache.Service
	now        func() time.Time
}

// NewClientService creates a new ClientService. store may be nil when storage is disabled.
func NewClientService(plans PlanService, clientRepo repository.ClientRepository, cacheService cache.Service, store ObjectStore) ClientService {
	return &clientService{
		plans:      plans,
		clientRepo: clientRepo,
		store:      store,
		cache:      cacheService,
		now:        utcNow,
	}
}

func (s *clientService) CreateClient(ctx context.Context, userID string, req *domain.CreateClientRequest) (*domain.Client, error) {
	host, err := common.NormalizeDomain(req.Domain)
	if err != nil {
		return nil, fmt.Errorf("%w: domain", common.ErrInvalidInput)
	}

	user, err := s.plans.CheckTrialExpiry(ctx, userID)
	if err != nil {
		return nil, err
	}

	count, err := s.clientRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= int64(user.Plan.Details().Clients) {
		return nil, common.ErrClientLimitReached
	}

	siteURL := req.SearchConsoleSiteURL
	if siteURL == "" {
		siteURL = common.SearchConsolePropertyFor(host)
	}

	now := s.now()
	client := &domain.Client{
		ID:                   uuid.NewString(),
		UserID:               userID,
		Name:                 req.Name,
		Domain:               host,
		ContactEmail:         req.ContactEmail,
		SearchConsoleSiteURL: siteURL,
		AnalyticsPropertyID:  req.AnalyticsPropertyID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *clientService) GetClient(ctx context.Context, userID, clientID string) (*domain.Client, error) {
	return s.clientRepo.FindByIDForUser(ctx, clientID, userID)
}

func (s *clientService) ListClients(ctx context.Context, userID string) ([]*domain.Client, error) {
	return s.clientRepo.ListByUser(ctx, userID)
}

// DeleteClient removes the client with its reports, then purges rendered documents.
// Object removal is best effort; the rows are already gone.
func (s *clientService) DeleteClient(ctx context.Context, userID, clientID string) error {
	keys, err := s.clientRepo.DeleteWithReports(ctx, clientID, userID)
	if err != nil {
		return err
	}
	// the cycle's report count just dropped
	if err := s.cache.InvalidateUsage(ctx, userID); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Str("user_id", userID).Msg("usage cache invalidation failed")
	}
	if s.store == nil || len(keys) == 0 {
		return nil
	}
	if err := s.store.DeleteMany(ctx, keys); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Str("client_id", clientID).Int("objects", len(keys)).Msg("report object purge incomplete")
	}
	return nil
}
