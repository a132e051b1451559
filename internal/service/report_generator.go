package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rankreport/rankreport-backend/internal/domain"
	"github.com/rankreport/rankreport-backend/internal/repository"
	pkglogger "github.com/rankreport/rankreport-backend/pkg/logger"
	"github.com/rankreport/rankreport-backend/pkg/storage"
)

// ReportGenerator turns queued reports into stored documents
type ReportGenerator struct {
	reportRepo repository.ReportRepository
	clientRepo repository.ClientRepository
	source     MetricsSource
	insights   InsightWriter
	renderer   *ReportRenderer
	store      ObjectStore
	now        func() time.Time
}

// NewReportGenerator creates a new ReportGenerator. insights and store are optional.
func NewReportGenerator(
	reportRepo repository.ReportRepository,
	clientRepo repository.ClientRepository,
	source MetricsSource,
	insights InsightWriter,
	store ObjectStore,
) *ReportGenerator {
	return &ReportGenerator{
		reportRepo: reportRepo,
		clientRepo: clientRepo,
		source:     source,
		insights:   insights,
		renderer:   NewReportRenderer(),
		store:      store,
		now:        utcNow,
	}
}

// ProcessPending claims up to limit queued reports and generates each one.
// A failed report is marked FAILED and the batch continues.
func (g *ReportGenerator) ProcessPending(ctx context.Context, limit int) (int, error) {
	reports, err := g.reportRepo.ClaimPending(ctx, limit, g.now())
	if err != nil {
		return 0, fmt.Errorf("claim pending reports: %w", err)
	}

	log := pkglogger.Component("report-generator")
	completed := 0
	for _, report := range reports {
		if err := g.Generate(ctx, report); err != nil {
			reportGenerationTotal.WithLabelValues(string(domain.ReportStatusFailed)).Inc()
			log.Error().Err(err).Str("report_id", report.ID).Msg("report generation failed")
			if markErr := g.reportRepo.MarkFailed(ctx, report.ID, err.Error(), g.now()); markErr != nil {
				log.Error().Err(markErr).Str("report_id", report.ID).Msg("failed to mark report failed")
			}
			continue
		}
		reportGenerationTotal.WithLabelValues(string(domain.ReportStatusCompleted)).Inc()
		completed++
	}
	return completed, nil
}

// Generate builds and stores one claimed report
func (g *ReportGenerator) Generate(ctx context.Context, report *domain.Report) error {
	client, err := g.clientRepo.FindByIDForUser(ctx, report.ClientID, report.UserID)
	if err != nil {
		return err
	}

	period := domain.ReportPeriod{
		Start: report.PeriodStart.Format(periodLayout),
		End:   report.PeriodEnd.Format(periodLayout),
	}
	sc, ga, err := g.source.Fetch(ctx, client, period)
	if err != nil {
		return err
	}

	metrics := &domain.MetricsV1{
		Period:        period,
		SearchConsole: sc,
		Analytics:     ga,
		GeneratedAt:   g.now(),
	}
	if report.Data.Metrics != nil {
		metrics.CustomMetrics = report.Data.Metrics.CustomMetrics
	}

	if g.insights != nil {
		insights, err := g.insights.Insights(ctx, client, metrics)
		if err != nil {
			// insights are optional; the report still ships without them
			pkglogger.GetLogger().Warn().Err(err).Str("report_id", report.ID).Msg("insights unavailable")
		} else {
			metrics.Insights = insights
		}
	}

	var pdfURL, key string
	if g.store != nil {
		doc, err := g.renderer.Render(report, client, metrics)
		if err != nil {
			return err
		}
		key = storage.ReportKey(report.UserID, report.ID, report.CreatedAt)
		uploaded, err := g.store.Upload(ctx, key, bytes.NewReader(doc), "text/html; charset=utf-8", int64(len(doc)))
		if err != nil {
			return err
		}
		pdfURL, key = uploaded.URL, uploaded.Key
	}

	return g.reportRepo.MarkCompleted(ctx, report.ID, domain.NewReportDataV1(metrics), pdfURL, key, g.now())
}

// Close releases the insight writer's connection, if it holds one
func (g *ReportGenerator) Close() error {
	if closer, ok := g.insights.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
