package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Report data schema versions. Version 0 is any blob written before versioning.
const (
	ReportDataLegacy = 0
	ReportDataV1     = 1
)

var ErrUnsupportedReportData = errors.New("unsupported report data version")

// ReportData is the stored payload of a report. Exactly one of Metrics (v1)
// or Legacy (v0) is populated for a non-empty value.
type ReportData struct {
	Version int
	Metrics *MetricsV1
	Legacy  json.RawMessage
}

// MetricsV1 is the typed report payload
type MetricsV1 struct {
	Period        ReportPeriod        `json:"period"`
	SearchConsole *SearchConsoleStats `json:"searchConsole,omitempty"`
	Analytics     *AnalyticsStats     `json:"analytics,omitempty"`
	CustomMetrics []CustomMetric      `json:"customMetrics,omitempty"`
	Insights      []string            `json:"insights,omitempty"`
	GeneratedAt   time.Time           `json:"generatedAt"`
}

type ReportPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type SearchConsoleStats struct {
	Clicks      float64    `json:"clicks"`
	Impressions float64    `json:"impressions"`
	CTR         float64    `json:"ctr"`
	Position    float64    `json:"position"`
	TopQueries  []QueryRow `json:"topQueries,omitempty"`
	TopPages    []QueryRow `json:"topPages,omitempty"`
}

type QueryRow struct {
	Key         string  `json:"key"`
	Clicks      float64 `json:"clicks"`
	Impressions float64 `json:"impressions"`
	CTR         float64 `json:"ctr"`
	Position    float64 `json:"position"`
}

type AnalyticsStats struct {
	Sessions           int64   `json:"sessions"`
	TotalUsers         int64   `json:"totalUsers"`
	NewUsers           int64   `json:"newUsers"`
	BounceRate         float64 `json:"bounceRate"`
	AvgSessionDuration float64 `json:"avgSessionDuration"`
}

// CustomMetric is a user-entered figure shown alongside fetched data
type CustomMetric struct {
	Name  string  `json:"name" binding:"required,max=100"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty" binding:"max=20"`
}

// NewReportDataV1 wraps m as the current schema version
func NewReportDataV1(m *MetricsV1) ReportData {
	return ReportData{Version: ReportDataV1, Metrics: m}
}

// IsEmpty reports whether nothing has been stored yet
func (d ReportData) IsEmpty() bool {
	return d.Metrics == nil && len(d.Legacy) == 0
}

type reportDataV1Envelope struct {
	Version int `json:"version"`
	*MetricsV1
}

// MarshalJSON writes {"version":1,...} for v1, the raw blob for legacy, null when empty
func (d ReportData) MarshalJSON() ([]byte, error) {
	switch {
	case d.IsEmpty():
		return []byte("null"), nil
	case d.Metrics != nil:
		return json.Marshal(reportDataV1Envelope{Version: ReportDataV1, MetricsV1: d.Metrics})
	default:
		return d.Legacy, nil
	}
}

// UnmarshalJSON dispatches on the version field
func (d *ReportData) UnmarshalJSON(b []byte) error {
	parsed, err := ParseReportData(b)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseReportData decodes a stored payload of any known version
func ParseReportData(raw []byte) (ReportData, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return ReportData{}, nil
	}
	if trimmed[0] != '{' {
		return legacyData(trimmed), nil
	}

	var probe struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return ReportData{}, fmt.Errorf("decode report data: %w", err)
	}

	version := ReportDataLegacy
	if probe.Version != nil {
		version = *probe.Version
	}

	switch version {
	case ReportDataLegacy:
		return legacyData(trimmed), nil
	case ReportDataV1:
		var m MetricsV1
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return ReportData{}, fmt.Errorf("decode report data v1: %w", err)
		}
		return ReportData{Version: ReportDataV1, Metrics: &m}, nil
	default:
		return ReportData{}, fmt.Errorf("%w: %d", ErrUnsupportedReportData, version)
	}
}

func legacyData(raw []byte) ReportData {
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return ReportData{Version: ReportDataLegacy, Legacy: cp}
}

// Value implements driver.Valuer
func (d ReportData) Value() (driver.Value, error) {
	if d.IsEmpty() {
		return nil, nil
	}
	b, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (d *ReportData) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*d = ReportData{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported report data column type %T", value)
	}
	parsed, err := ParseReportData(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
