package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"jobdispatch-backend/middelware"
	"jobdispatch-backend/models"
	"jobdispatch-backend/utils/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(t *testing.T, w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	require.NoError(t, json.NewEncoder(w).Encode(models.APIResponse{Status: "success", Code: code, Data: data}))
}

func writePDF(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test"), 0o600))
	return path
}

func TestParseLineItem(t *testing.T) {
	name, qty, rate, err := parseLineItem("Labour:2:45.5")
	require.NoError(t, err)
	assert.Equal(t, "Labour", name)
	assert.Equal(t, 2.0, qty)
	assert.Equal(t, 45.5, rate)

	name, _, _, err = parseLineItem("Part: valve 3:1:10")
	require.NoError(t, err)
	assert.Equal(t, "Part: valve 3", name)

	_, _, _, err = parseLineItem("Labour:2")
	assert.ErrorContains(t, err, "must be name:quantity:rate")
	_, _, _, err = parseLineItem("Labour:two:3")
	assert.ErrorContains(t, err, "invalid quantity")
	_, _, _, err = parseLineItem("Labour:2:x")
	assert.ErrorContains(t, err, "invalid rate")
}

func TestBuildDraftWithInvoice(t *testing.T) {
	draft, err := buildDraft(writePDF(t), []string{"Labour:2:50", "Valve:1:26.5"}, "Gas repair", 10, "")
	require.NoError(t, err)

	form, err := draft.Submission()
	require.NoError(t, err)
	require.True(t, form.HasInvoice)
	require.Len(t, form.Invoice.Items, 2)
	assert.Equal(t, 100.0, form.Invoice.Items[0].Amount)
	assert.Equal(t, 126.5, form.Invoice.Subtotal)
	assert.Equal(t, 12.65, form.Invoice.Tax)
	assert.Equal(t, 139.15, form.Invoice.TotalCost)
}

func TestBuildDraftWithoutInvoiceOrReport(t *testing.T) {
	draft, err := buildDraft(writePDF(t), nil, "", 0, "")
	require.NoError(t, err)
	form, err := draft.Submission()
	require.NoError(t, err)
	assert.False(t, form.HasInvoice)

	// no report: the draft refuses to enable an invoice
	_, err = buildDraft("", []string{"Labour:1:1"}, "x", 0, "")
	assert.Error(t, err)

	draft, err = buildDraft("", nil, "", 0, "")
	require.NoError(t, err)
	_, err = draft.Submission()
	assert.ErrorContains(t, err, "report")
}

func TestClientDecodesData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/v1/jobs/JOB-000001", r.URL.Path)
		envelope(t, w, http.StatusOK, models.Job{ID: "j1", JobNumber: "JOB-000001", Status: models.JobStatusPending})
	}))
	defer server.Close()

	api := &APIClient{baseURL: server.URL + "/api/v1", token: "tok", http: server.Client()}
	var job models.Job
	require.NoError(t, api.get("/jobs/JOB-000001", nil, &job))
	assert.Equal(t, "j1", job.ID)
	assert.Equal(t, models.JobStatusPending, job.Status)
}

func TestClientReturnsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(models.APIResponse{
			Status:  "error",
			Code:    http.StatusConflict,
			Message: "Failed to assign job",
			Error: &models.APIError{
				Type:    "Precondition",
				Details: "technician is on leave",
				Fields:  map[string]string{"technicianId": "unavailable"},
			},
		})
	}))
	defer server.Close()

	api := &APIClient{baseURL: server.URL, token: "tok", http: server.Client()}
	err := api.postJSON("/jobs/j1/assign", models.AssignJobRequest{TechnicianID: "t1"}, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Code)
	assert.Equal(t, "Precondition", apiErr.Detail.Type)
	assert.Equal(t, "Failed to assign job (409): technician is on leave\n  technicianId: unavailable", err.Error())
}

func TestPostCompletionSendsMultipart(t *testing.T) {
	report := writePDF(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/j1/complete", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("report")
		require.NoError(t, err)
		defer file.Close()
		body, _ := io.ReadAll(file)
		assert.Equal(t, "report.pdf", header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF-1.4 test", string(body))

		assert.Equal(t, "true", r.FormValue("hasInvoice"))
		var invoice models.Invoice
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("invoice")), &invoice))
		assert.Equal(t, 110.0, invoice.TotalCost)

		envelope(t, w, http.StatusOK, models.AssignmentResult{Job: &models.Job{JobNumber: "JOB-000001", Status: models.JobStatusCompleted}})
	}))
	defer server.Close()

	draft, err := buildDraft(report, []string{"Labour:1:100"}, "Repair", 10, "")
	require.NoError(t, err)
	form, err := draft.Submission()
	require.NoError(t, err)

	api := &APIClient{baseURL: server.URL, token: "tok", http: server.Client()}
	var result models.AssignmentResult
	require.NoError(t, api.postCompletion("j1", report, form, &result))
	assert.Equal(t, models.JobStatusCompleted, result.Job.Status)
}

func TestJobsListCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		assert.Equal(t, "/jobs", r.URL.Path)
		assert.Equal(t, "Pending", query.Get("status"))
		assert.Equal(t, "priority", query.Get("sort"))
		assert.Equal(t, "2026-01-01", query.Get("fromDate"))
		assert.Equal(t, "2", query.Get("page"))
		envelope(t, w, http.StatusOK, models.JobListResponse{
			Jobs: []*models.Job{{
				JobNumber:          "JOB-000007",
				Status:             models.JobStatusPending,
				Priority:           models.JobPriorityHigh,
				JobType:            models.JobTypeGas,
				DueDate:            time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
				PropertyAddress:    "1 Main St",
				AssignedTechnician: &models.TechnicianRef{ID: "t1", Name: "Ana"},
			}},
			Pagination: models.Pagination{Page: 2, Limit: 10, Total: 11, TotalPages: 2},
			Statistics: models.JobStatistics{Total: 11, Pending: 11},
		})
	}))
	defer server.Close()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"jobs", "list", "--server", server.URL, "--token", "tok",
		"--status", "Pending", "--sort", "priority", "--from", "2026-01-01", "--page", "2"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "JOB-000007")
	assert.Contains(t, out.String(), "Ana")
	assert.Contains(t, out.String(), "2026-01-05")
	assert.Contains(t, out.String(), "page 2 of 2 (11 jobs)")
}

func TestSignToken(t *testing.T) {
	cfg := &models.Config{AppName: "dispatch", JWTSecret: "s3cret", JWTExpiresIn: time.Minute}
	identity := middelware.SessionIdentity{UserID: "u1", Role: models.UserRoleTechnician, TechnicianID: "t1"}

	token, err := signToken(cfg, identity)
	require.NoError(t, err)

	claims, err := middelware.NewJWTManager(cfg, logger.NewLoggerWithOutput("error", "json", io.Discard)).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "t1", claims.TechnicianID)
}

func TestJobsGetCommandJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/JOB-000003", r.URL.Path)
		envelope(t, w, http.StatusOK, models.Job{ID: "j3", JobNumber: "JOB-000003", Status: models.JobStatusScheduled})
	}))
	defer server.Close()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"jobs", "get", "JOB-000003", "--server", server.URL, "--token", "tok", "--json"})
	require.NoError(t, rootCmd.Execute())

	var job models.Job
	require.NoError(t, json.Unmarshal(out.Bytes(), &job))
	assert.Equal(t, "j3", job.ID)
	assert.Equal(t, models.JobStatusScheduled, job.Status)
}
