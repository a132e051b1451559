package domain

import "time"

// ReportStatus is the generation state of a report
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "PENDING"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusCompleted  ReportStatus = "COMPLETED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// Report is one generated artifact for a client
type Report struct {
	CreatedAt             time.Time  `gorm:"column:created_at;index:idx_reports_user_created,priority:2" json:"createdAt"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
	PeriodStart           time.Time  `gorm:"column:period_start" json:"periodStart"`
	PeriodEnd             time.Time  `gorm:"column:period_end" json:"periodEnd"`
	ProcessingStartedAt   *time.Time `gorm:"column:processing_started_at" json:"processingStartedAt"`
	ProcessingCompletedAt *time.Time `gorm:"column:processing_completed_at" json:"processingCompletedAt"`

	ID           string       `gorm:"column:id;primaryKey;size:36" json:"id"`
	Title        string       `gorm:"column:title;size:255" json:"title"`
	Status       ReportStatus `gorm:"column:status;size:20;index;default:PENDING" json:"status"`
	PDFURL       string       `gorm:"column:pdf_url;size:1024" json:"pdfUrl"`
	StorageKey   string       `gorm:"column:storage_key;size:512" json:"-"`
	ErrorMessage string       `gorm:"column:error_message;type:text" json:"errorMessage,omitempty"`
	ClientID     string       `gorm:"column:client_id;size:36;index;not null" json:"clientId"`
	UserID       string       `gorm:"column:user_id;size:36;not null;index:idx_reports_user_created,priority:1" json:"userId"`

	Data ReportData `gorm:"column:data;type:text" json:"data"`
}

func (Report) TableName() string {
	return "reports"
}

// CreateReportRequest is the POST /reports body
type CreateReportRequest struct {
	ClientID      string         `json:"clientId" binding:"required"`
	Title         string         `json:"title" binding:"required,min=1,max=255"`
	StartDate     string         `json:"startDate" binding:"required,datetime=2006-01-02"`
	EndDate       string         `json:"endDate" binding:"required,datetime=2006-01-02"`
	CustomMetrics []CustomMetric `json:"customMetrics" binding:"omitempty,max=20,dive"`
}

// ReportListQuery filters GET /reports
type ReportListQuery struct {
	ClientID string `form:"clientId"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PerPage  int    `form:"perPage" binding:"omitempty,min=1,max=100"`
}
