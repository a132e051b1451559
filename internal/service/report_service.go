package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rankreport/rankreport-backend/internal/common"
	"github.com/rankreport/rankreport-backend/internal/domain"
	"github.com/rankreport/rankreport-backend/internal/repository"
	"github.com/rankreport/rankreport-backend/pkg/cache"
	pkglogger "github.com/rankreport/rankreport-backend/pkg/logger"
)

const periodLayout = "2006-01-02"

// QuotaExceededError rejects a creation once the cycle quota is used up
type QuotaExceededError struct {
	Usage  int64
	Limit  int
	Plan   domain.Plan
	Window domain.BillingCycleWindow
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("report limit reached: %d/%d on %s plan", e.Usage, e.Limit, e.Plan)
}

// Response renders the 403 body
func (e *QuotaExceededError) Response() domain.QuotaExceededResponse {
	return domain.QuotaExceededResponse{
		Error: "Report limit reached",
		Message: fmt.Sprintf(
			"You've used %d of %d reports on the %s plan this billing cycle. Your limit resets on %s, or upgrade now for more reports.",
			e.Usage, e.Limit, e.Plan, e.Window.End.Format("January 2, 2006"),
		),
		Upgrade:      true,
		CurrentUsage: e.Usage,
		Limit:        e.Limit,
		Plan:         e.Plan,
		BillingCycle: e.Window,
	}
}

// ReportService business logic for reports
type ReportService interface {
	CreateReport(ctx context.Context, userID string, req *domain.CreateReportRequest) (*domain.ReportCreatedResponse, error)
	GetReport(ctx context.Context, userID, reportID string) (*domain.Report, error)
	ListReports(ctx context.Context, userID string, query domain.ReportListQuery) ([]*domain.Report, *common.Meta, error)
}

type reportService struct {
	plans            PlanService
	cycles           BillingCycleService
	reportRepo       repository.ReportRepository
	clientRepo       repository.ClientRepository
	cache            cache.Service
	warningThreshold int
	now              func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(
	plans PlanService,
	cycles BillingCycleService,
	reportRepo repository.ReportRepository,
	clientRepo repository.ClientRepository,
	cacheService cache.Service,
	warningThreshold int,
) ReportService {
	if warningThreshold <= 0 {
		warningThreshold = 4
	}
	return &reportService{
		plans:            plans,
		cycles:           cycles,
		reportRepo:       reportRepo,
		clientRepo:       clientRepo,
		cache:            cacheService,
		warningThreshold: warningThreshold,
		now:              utcNow,
	}
}

// CreateReport runs the trial check, the ownership check and the quota check,
// then queues the report for generation.
func (s *reportService) CreateReport(ctx context.Context, userID string, req *domain.CreateReportRequest) (*domain.ReportCreatedResponse, error) {
	user, err := s.plans.CheckTrialExpiry(ctx, userID)
	if err != nil {
		return nil, err
	}

	client, err := s.clientRepo.FindByIDForUser(ctx, req.ClientID, userID)
	if err != nil {
		return nil, err
	}

	periodStart, periodEnd, err := parsePeriod(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	cycle, err := s.cycles.CycleFor(ctx, user)
	if err != nil {
		return nil, err
	}

	now := s.now()
	report := &domain.Report{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Status:      domain.ReportStatusPending,
		ClientID:    client.ID,
		UserID:      userID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		CreatedAt:   now,
	}
	if len(req.CustomMetrics) > 0 {
		report.Data = domain.NewReportDataV1(&domain.MetricsV1{
			Period:        domain.ReportPeriod{Start: req.StartDate, End: req.EndDate},
			CustomMetrics: req.CustomMetrics,
		})
	}

	before, err := s.reportRepo.CreateWithinQuota(ctx, report, cycle.CycleStart, cycle.CycleEnd, func(current int64) error {
		decision := CheckQuota(user.Plan, current)
		if decision.Allowed {
			return nil
		}
		return &QuotaExceededError{
			Usage:  current,
			Limit:  decision.Limit,
			Plan:   decision.Plan,
			Window: cycle.Window(),
		}
	})
	if err != nil {
		var quotaErr *QuotaExceededError
		if errors.As(err, &quotaErr) {
			quotaRejectionsTotal.WithLabelValues(string(quotaErr.Plan)).Inc()
		}
		return nil, err
	}

	reportsCreatedTotal.WithLabelValues(string(user.Plan)).Inc()
	if err := s.cache.InvalidateUsage(ctx, userID); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Str("user_id", userID).Msg("usage cache invalidation failed")
	}

	return &domain.ReportCreatedResponse{
		Report:  report,
		Warning: BuildUsageWarning(user.Plan, before+1, *cycle, s.warningThreshold),
	}, nil
}

func parsePeriod(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(periodLayout, startDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: startDate", common.ErrInvalidInput)
	}
	end, err := time.ParseInLocation(periodLayout, endDate, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: endDate", common.ErrInvalidInput)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: endDate is before startDate", common.ErrInvalidInput)
	}
	return start, end, nil
}

func (s *reportService) GetReport(ctx context.Context, userID, reportID string) (*domain.Report, error) {
	return s.reportRepo.FindByIDForUser(ctx, reportID, userID)
}

func (s *reportService) ListReports(ctx context.Context, userID string, query domain.ReportListQuery) ([]*domain.Report, *common.Meta, error) {
	page, perPage := query.Page, query.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	reports, total, err := s.reportRepo.ListByUser(ctx, userID, query.ClientID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return reports, common.NewMeta(page, perPage, total), nil
}
