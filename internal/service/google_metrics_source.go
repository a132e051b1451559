package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rankreport/rankreport-backend/internal/common"
	"github.com/rankreport/rankreport-backend/internal/domain"
	"golang.org/x/oauth2"
	"google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/option"
	"google.golang.org/api/searchconsole/v1"
)

const topRowLimit = 10

// MetricsSource fetches the raw figures a report is built from
type MetricsSource interface {
	Fetch(ctx context.Context, client *domain.Client, period domain.ReportPeriod) (*domain.SearchConsoleStats, *domain.AnalyticsStats, error)
}

// TokenProvider yields an OAuth token source for a client
type TokenProvider interface {
	TokenSource(ctx context.Context, client *domain.Client) (oauth2.TokenSource, error)
}

// GoogleMetricsSource reads Search Console and GA4 data with the client's grant
type GoogleMetricsSource struct {
	tokens TokenProvider
}

// NewGoogleMetricsSource creates a new GoogleMetricsSource
func NewGoogleMetricsSource(tokens TokenProvider) *GoogleMetricsSource {
	return &GoogleMetricsSource{tokens: tokens}
}

func (g *GoogleMetricsSource) Fetch(ctx context.Context, client *domain.Client, period domain.ReportPeriod) (*domain.SearchConsoleStats, *domain.AnalyticsStats, error) {
	if !client.HasGoogleConnection() {
		return nil, nil, common.ErrGoogleNotConnected
	}

	ts, err := g.tokens.TokenSource(ctx, client)
	if err != nil {
		return nil, nil, err
	}

	var sc *domain.SearchConsoleStats
	if client.SearchConsoleConnected && client.SearchConsoleSiteURL != "" {
		sc, err = fetchSearchConsole(ctx, ts, client.SearchConsoleSiteURL, period)
		if err != nil {
			return nil, nil, err
		}
	}

	var ga *domain.AnalyticsStats
	if client.AnalyticsConnected && client.AnalyticsPropertyID != "" {
		ga, err = fetchAnalytics(ctx, ts, client.AnalyticsPropertyID, period)
		if err != nil {
			return nil, nil, err
		}
	}
	return sc, ga, nil
}

func fetchSearchConsole(ctx context.Context, ts oauth2.TokenSource, siteURL string, period domain.ReportPeriod) (*domain.SearchConsoleStats, error) {
	svc, err := searchconsole.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("search console client: %w", err)
	}

	query := func(dimensions ...string) (*searchconsole.SearchAnalyticsQueryResponse, error) {
		req := &searchconsole.SearchAnalyticsQueryRequest{
			StartDate:  period.Start,
			EndDate:    period.End,
			Dimensions: dimensions,
		}
		if len(dimensions) > 0 {
			req.RowLimit = topRowLimit
		}
		return svc.Searchanalytics.Query(siteURL, req).Context(ctx).Do()
	}

	totals, err := query()
	if err != nil {
		return nil, fmt.Errorf("search console totals: %w", err)
	}
	queries, err := query("query")
	if err != nil {
		return nil, fmt.Errorf("search console queries: %w", err)
	}
	pages, err := query("page")
	if err != nil {
		return nil, fmt.Errorf("search console pages: %w", err)
	}

	stats := &domain.SearchConsoleStats{
		TopQueries: toQueryRows(queries.Rows),
		TopPages:   toQueryRows(pages.Rows),
	}
	if len(totals.Rows) > 0 {
		row := totals.Rows[0]
		stats.Clicks = row.Clicks
		stats.Impressions = row.Impressions
		stats.CTR = row.Ctr
		stats.Position = row.Position
	}
	return stats, nil
}

func toQueryRows(rows []*searchconsole.ApiDataRow) []domain.QueryRow {
	out := make([]domain.QueryRow, 0, len(rows))
	for _, r := range rows {
		key := ""
		if len(r.Keys) > 0 {
			key = r.Keys[0]
		}
		out = append(out, domain.QueryRow{
			Key:         key,
			Clicks:      r.Clicks,
			Impressions: r.Impressions,
			CTR:         r.Ctr,
			Position:    r.Position,
		})
	}
	return out
}

var analyticsMetricNames = []string{"sessions", "totalUsers", "newUsers", "bounceRate", "averageSessionDuration"}

func fetchAnalytics(ctx context.Context, ts oauth2.TokenSource, propertyID string, period domain.ReportPeriod) (*domain.AnalyticsStats, error) {
	svc, err := analyticsdata.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("analytics client: %w", err)
	}

	metrics := make([]*analyticsdata.Metric, 0, len(analyticsMetricNames))
	for _, name := range analyticsMetricNames {
		metrics = append(metrics, &analyticsdata.Metric{Name: name})
	}

	resp, err := svc.Properties.RunReport("properties/"+propertyID, &analyticsdata.RunReportRequest{
		DateRanges: []*analyticsdata.DateRange{{StartDate: period.Start, EndDate: period.End}},
		Metrics:    metrics,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("analytics report: %w", err)
	}

	values := make(map[string]string, len(analyticsMetricNames))
	if len(resp.Rows) > 0 {
		for i, mv := range resp.Rows[0].MetricValues {
			if i < len(analyticsMetricNames) {
				values[analyticsMetricNames[i]] = mv.Value
			}
		}
	}
	return analyticsStatsFrom(values), nil
}

func analyticsStatsFrom(values map[string]string) *domain.AnalyticsStats {
	asInt := func(name string) int64 {
		n, _ := strconv.ParseInt(values[name], 10, 64)
		return n
	}
	asFloat := func(name string) float64 {
		f, _ := strconv.ParseFloat(values[name], 64)
		return f
	}
	return &domain.AnalyticsStats{
		Sessions:           asInt("sessions"),
		TotalUsers:         asInt("totalUsers"),
		NewUsers:           asInt("newUsers"),
		BounceRate:         asFloat("bounceRate"),
		AvgSessionDuration: asFloat("averageSessionDuration"),
	}
}
