package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rankreport/rankreport-backend/internal/common"
	"github.com/rankreport/rankreport-backend/internal/domain"
	"github.com/rankreport/rankreport-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockReportService is a mock implementation of service.ReportService
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) CreateReport(ctx context.Context, userID string, req *domain.CreateReportRequest) (*domain.ReportCreatedResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReportCreatedResponse), args.Error(1)
}

func (m *MockReportService) GetReport(ctx context.Context, userID, reportID string) (*domain.Report, error) {
	args := m.Called(ctx, userID, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Report), args.Error(1)
}

func (m *MockReportService) ListReports(ctx context.Context, userID string, query domain.ReportListQuery) ([]*domain.Report, *common.Meta, error) {
	args := m.Called(ctx, userID, query)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]*domain.Report), args.Get(1).(*common.Meta), args.Error(2)
}

// MockBillingCycleService is a mock implementation of service.BillingCycleService
type MockBillingCycleService struct {
	mock.Mock
}

func (m *MockBillingCycleService) GetBillingCycleInfo(ctx context.Context, userID string) (*domain.BillingCycleInfo, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillingCycleInfo), args.Error(1)
}

func (m *MockBillingCycleService) CycleFor(ctx context.Context, user *domain.User) (*domain.BillingCycleInfo, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillingCycleInfo), args.Error(1)
}

// MockCancellationProcessor is a mock implementation of CancellationProcessor
type MockCancellationProcessor struct {
	mock.Mock
}

func (m *MockCancellationProcessor) ProcessCancellations(ctx context.Context) (*domain.CancellationBatchResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CancellationBatchResult), args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
	common.RegisterJSONFieldNames()
}

// withUser stands in for JWTAuth
func withUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set("userID", userID)
		}
		c.Next()
	}
}

func newReportRouter(svc service.ReportService, userID string) *gin.Engine {
	r := gin.New()
	h := NewReportHandler(svc)
	r.Use(withUser(userID))
	r.POST("/reports", h.CreateReport)
	r.GET("/reports", h.ListReports)
	r.GET("/reports/:id", h.GetReport)
	return r
}

func postJSON(t *testing.T, r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

var validReportBody = map[string]interface{}{
	"clientId":  "c1",
	"title":     "February",
	"startDate": "2026-02-01",
	"endDate":   "2026-02-28",
}

func TestCreateReport_CreatedWithWarning(t *testing.T) {
	svc := new(MockReportService)
	resetsOn := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	svc.On("CreateReport", mock.Anything, "u1", mock.AnythingOfType("*domain.CreateReportRequest")).Return(&domain.ReportCreatedResponse{
		Report: &domain.Report{ID: "r1", Title: "February", Status: domain.ReportStatusPending, ClientID: "c1", UserID: "u1"},
		Warning: &domain.UsageWarning{
			Message:          "last one",
			ReportsRemaining: 0,
			UpgradePrompt:    true,
			CurrentPlan:      domain.PlanFree,
			BillingCycle:     domain.WarningCycle{DaysRemaining: 21, ResetsOn: resetsOn},
			UpgradeOptions:   domain.PlanFree.UpgradeOptions(),
		},
	}, nil)

	w := postJSON(t, newReportRouter(svc, "u1"), "/reports", validReportBody)
	require.Equal(t, http.StatusCreated, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "r1", body["id"], "report fields are top-level")
	assert.Equal(t, "PENDING", body["status"])

	warning := body["warning"].(map[string]interface{})
	assert.Equal(t, float64(0), warning["reportsRemaining"])
	assert.Equal(t, true, warning["upgradePrompt"])
	assert.Equal(t, "FREE", warning["currentPlan"])
	cycle := warning["billingCycle"].(map[string]interface{})
	assert.Equal(t, "2026-03-31T00:00:00Z", cycle["resetsOn"])
	starter := warning["upgradeOptions"].(map[string]interface{})["starter"].(map[string]interface{})
	assert.Equal(t, float64(25), starter["reports"])
}

func TestCreateReport_NoWarningOmitted(t *testing.T) {
	svc := new(MockReportService)
	svc.On("CreateReport", mock.Anything, "u1", mock.Anything).Return(&domain.ReportCreatedResponse{
		Report: &domain.Report{ID: "r1"},
	}, nil)

	w := postJSON(t, newReportRouter(svc, "u1"), "/reports", validReportBody)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), `"warning"`)
}

func TestCreateReport_QuotaExceeded(t *testing.T) {
	svc := new(MockReportService)
	window := domain.BillingCycleWindow{
		Start:         time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		End:           time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		DaysRemaining: 21,
	}
	svc.On("CreateReport", mock.Anything, "u1", mock.Anything).
		Return(nil, &service.QuotaExceededError{Usage: 5, Limit: 5, Plan: domain.PlanFree, Window: window})

	w := postJSON(t, newReportRouter(svc, "u1"), "/reports", validReportBody)
	require.Equal(t, http.StatusForbidden, w.Code)

	var body domain.QuotaExceededResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Report limit reached", body.Error)
	assert.True(t, body.Upgrade)
	assert.Equal(t, int64(5), body.CurrentUsage)
	assert.Equal(t, 5, body.Limit)
	assert.Equal(t, domain.PlanFree, body.Plan)
	assert.True(t, body.BillingCycle.End.Equal(window.End))
	assert.Equal(t, 21, body.BillingCycle.DaysRemaining)
	assert.NotEmpty(t, body.Message)
}

func TestCreateReport_Unauthenticated(t *testing.T) {
	svc := new(MockReportService)
	w := postJSON(t, newReportRouter(svc, ""), "/reports", validReportBody)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "CreateReport", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateReport_ForeignClientIsNotFound(t *testing.T) {
	svc := new(MockReportService)
	svc.On("CreateReport", mock.Anything, "u1", mock.Anything).Return(nil, common.ErrClientNotFound)

	w := postJSON(t, newReportRouter(svc, "u1"), "/reports", validReportBody)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateReport_ValidationDetails(t *testing.T) {
	svc := new(MockReportService)
	w := postJSON(t, newReportRouter(svc, "u1"), "/reports", map[string]interface{}{
		"title":     "February",
		"startDate": "02/01/2026",
		"endDate":   "2026-02-28",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error struct {
			Code    string              `json:"code"`
			Details []common.FieldError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "BAD_REQUEST", body.Error.Code)

	fields := map[string]string{}
	for _, d := range body.Error.Details {
		fields[d.Field] = d.Rule
	}
	assert.Equal(t, "required", fields["clientId"])
	assert.Equal(t, "datetime", fields["startDate"])
}

func TestCreateReport_InternalErrorIsGeneric(t *testing.T) {
	svc := new(MockReportService)
	svc.On("CreateReport", mock.Anything, "u1", mock.Anything).Return(nil, errors.New("pq: connection refused"))

	w := postJSON(t, newReportRouter(svc, "u1"), "/reports", validReportBody)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestListReports(t *testing.T) {
	svc := new(MockReportService)
	svc.On("ListReports", mock.Anything, "u1", domain.ReportListQuery{ClientID: "c1", Page: 2, PerPage: 10}).
		Return([]*domain.Report{{ID: "r1"}}, common.NewMeta(2, 10, 11), nil)

	w := httptest.NewRecorder()
	newReportRouter(svc, "u1").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports?clientId=c1&page=2&perPage=10", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body common.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.NotNil(t, body.Meta)
	assert.Equal(t, int64(2), body.Meta.TotalPages)
}

func TestGetReport_NotOwned(t *testing.T) {
	svc := new(MockReportService)
	svc.On("GetReport", mock.Anything, "u1", "r9").Return(nil, common.ErrReportNotFound)

	w := httptest.NewRecorder()
	newReportRouter(svc, "u1").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports/r9", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetCycle_RoundTripsTimestamps(t *testing.T) {
	cycles := new(MockBillingCycleService)
	info := &domain.BillingCycleInfo{
		CycleStart:    time.Date(2026, 3, 1, 8, 15, 30, 0, time.UTC),
		CycleEnd:      time.Date(2026, 3, 31, 8, 15, 30, 0, time.UTC),
		DaysRemaining: 21,
	}
	cycles.On("GetBillingCycleInfo", mock.Anything, "u1").Return(info, nil)

	r := gin.New()
	h := NewBillingHandler(cycles, nil, nil)
	r.GET("/billing/cycle", withUser("u1"), h.GetCycle)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/billing/cycle", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data domain.BillingCycleInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, *info, body.Data)
	assert.Contains(t, w.Body.String(), `"cycleStart":"2026-03-01T08:15:30Z"`)
}

func TestGetPlans(t *testing.T) {
	r := gin.New()
	h := NewBillingHandler(nil, nil, nil)
	r.GET("/billing/plans", h.GetPlans)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/billing/plans", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"plan":"ENTERPRISE"`)
}

func TestProcessCancellationsHandler(t *testing.T) {
	proc := new(MockCancellationProcessor)
	proc.On("ProcessCancellations", mock.Anything).Return(&domain.CancellationBatchResult{
		Processed: 2, Downgraded: 1, Failed: 1,
		Results: []domain.CancellationResult{
			{UserID: "a", Success: true, From: domain.PlanStarter},
			{UserID: "b", Success: false, Error: "boom"},
		},
	}, nil)

	r := gin.New()
	h := NewCronHandler(proc, nil)
	r.POST("/cron/process-cancellations", h.ProcessCancellations)
	r.POST("/cron/generate-reports", h.GenerateReports)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/cron/process-cancellations", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"downgraded":1`)
	assert.Contains(t, w.Body.String(), `"error":"boom"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/cron/generate-reports", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"enabled":false`)
}

func TestRespondError_Mapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{common.ErrUserNotFound, http.StatusUnauthorized},
		{common.ErrClientNotFound, http.StatusNotFound},
		{common.ErrReportNotFound, http.StatusNotFound},
		{common.ErrInvalidPlan, http.StatusBadRequest},
		{common.ErrClientLimitReached, http.StatusForbidden},
		{common.ErrTrialAlreadyUsed, http.StatusConflict},
		{common.ErrAlreadyCancelled, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			respondError(c, tt.err)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
