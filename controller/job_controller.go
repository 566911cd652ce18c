package controller

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"jobdispatch-backend/models"
	"jobdispatch-backend/services"
	"jobdispatch-backend/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const (
	defaultPageSize       = 10
	maxPageSize           = 100
	defaultReportMaxBytes = 20 << 20
	// room for form fields around the report file
	multipartOverhead = 1 << 20
)

type JobController struct {
	jobService        services.JobServiceInterface
	allocationService services.AllocationServiceInterface
	completionService services.CompletionServiceInterface
	maxUploadBytes    int64
	logger            logger.Logger
	validator         *requestValidator
}

func NewJobController(svc services.ServiceContainerInterface, cfg *models.Config, log logger.Logger) *JobController {
	maxReport := cfg.ReportMaxBytes
	if maxReport <= 0 {
		maxReport = defaultReportMaxBytes
	}
	return &JobController{
		jobService:        svc.GetJobService(),
		allocationService: svc.GetAllocationService(),
		completionService: svc.GetCompletionService(),
		maxUploadBytes:    maxReport + multipartOverhead,
		logger:            log,
		validator:         newRequestValidator(),
	}
}

// parseDay reads an optional YYYY-MM-DD query parameter
func parseDay(c *gin.Context, name string, fields map[string]string) time.Time {
	value := strings.TrimSpace(c.Query(name))
	if value == "" {
		return time.Time{}
	}
	day, err := time.Parse("2006-01-02", value)
	if err != nil {
		fields[name] = name + " must be a date in YYYY-MM-DD format"
	}
	return day
}

func parsePaging(c *gin.Context) (page, limit int) {
	page, limit = 1, defaultPageSize
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= maxPageSize {
		limit = l
	}
	return page, limit
}

// GetJobs handles GET /api/v1/jobs
func (h *JobController) GetJobs(c *gin.Context) {
	fields := map[string]string{}

	filter := models.JobFilter{
		Status:       models.JobStatus(c.Query("status")),
		JobType:      models.JobType(c.DefaultQuery("type", c.Query("jobType"))),
		Priority:     models.JobPriority(c.Query("priority")),
		TechnicianID: c.Query("technicianId"),
		Search:       c.Query("search"),
		FromDate:     parseDay(c, "fromDate", fields),
		ToDate:       parseDay(c, "toDate", fields),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		fields["status"] = "unknown status " + string(filter.Status)
	}
	if filter.JobType != "" && !filter.JobType.IsValid() {
		fields["type"] = "unknown job type " + string(filter.JobType)
	}
	if filter.Priority != "" && !filter.Priority.IsValid() {
		fields["priority"] = "unknown priority " + string(filter.Priority)
	}
	if len(fields) > 0 {
		respondBadRequest(c, "Invalid job filter", "one or more filters are invalid", fields)
		return
	}

	page, limit := parsePaging(c)
	result, err := h.jobService.GetJobs(c.Request.Context(), services.JobQuery{
		Filter: filter,
		Sort:   c.Query("sort"),
		Order:  c.Query("order"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondError(c, h.logger, "Failed to get jobs", err)
		return
	}

	respondOK(c, http.StatusOK, "Jobs retrieved successfully", result)
}

// GetAvailableJobs handles GET /api/v1/jobs/available
func (h *JobController) GetAvailableJobs(c *gin.Context) {
	jobs, err := h.jobService.GetAvailableJobs(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to get available jobs", err)
		return
	}

	respondOK(c, http.StatusOK, "Available jobs retrieved successfully", gin.H{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// GetJob handles GET /api/v1/jobs/:id
func (h *JobController) GetJob(c *gin.Context) {
	job, err := h.jobService.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "Failed to get job", err)
		return
	}

	respondOK(c, http.StatusOK, "Job retrieved successfully", job)
}

// CreateJob handles POST /api/v1/jobs
func (h *JobController) CreateJob(c *gin.Context) {
	actor, ok := actorOrAbort(c, h.logger)
	if !ok {
		return
	}

	var req models.CreateJobRequest
	if !bindJSON(c, h.validator, h.logger, &req) {
		return
	}

	result, err := h.jobService.CreateJob(c.Request.Context(), &req, actor)
	if err != nil {
		respondError(c, h.logger, "Failed to create job", err)
		return
	}

	respondOK(c, http.StatusCreated, "Job created successfully", result)
}

// UpdateJob handles PUT /api/v1/jobs/:id
func (h *JobController) UpdateJob(c *gin.Context) {
	actor, ok := actorOrAbort(c, h.logger)
	if !ok {
		return
	}

	var req models.UpdateJobRequest
	if !bindJSON(c, h.validator, h.logger, &req) {
		return
	}

	result, err := h.allocationService.UpdateJob(c.Request.Context(), c.Param("id"), &req, actor)
	if err != nil {
		respondError(c, h.logger, "Failed to update job", err)
		return
	}

	respondOK(c, http.StatusOK, "Job updated successfully", result)
}

// UpdateJobStatus handles PATCH /api/v1/jobs/:id/status
func (h *JobController) UpdateJobStatus(c *gin.Context) {
	actor, ok := actorOrAbort(c, h.logger)
	if !ok {
		return
	}

	var req models.UpdateJobStatusRequest
	if !bindJSON(c, h.validator, h.logger, &req) {
		return
	}

	result, err := h.allocationService.UpdateJobStatus(c.Request.Context(), c.Param("id"), req.Status, actor)
	if err != nil {
		respondError(c, h.logger, "Failed to update job status", err)
		return
	}

	respondOK(c, http.StatusOK, "Job status updated successfully", result)
}

// AssignJob handles POST /api/v1/jobs/:id/assign
func (h *JobController) AssignJob(c *gin.Context) {
	actor, ok := actorOrAbort(c, h.logger)
	if !ok {
		return
	}

	var req models.AssignJobRequest
	if !bindJSON(c, h.validator, h.logger, &req) {
		return
	}

	result, err := h.allocationService.AssignJob(c.Request.Context(), c.Param("id"), req.TechnicianID, actor)
	if err != nil {
		respondError(c, h.logger, "Failed to assign job", err)
		return
	}

	respondOK(c, http.StatusOK, "Job assigned successfully", result)
}

// ClaimJob handles POST /api/v1/jobs/:id/claim
func (h *JobController) ClaimJob(c *gin.Context) {
	actor, ok := actorOrAbort(c, h.logger)
	if !ok {
		return
	}

	result, err := h.allocationService.ClaimJob(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, h.logger, "Failed to claim job", err)
		return
	}

	respondOK(c, http.StatusOK, "Job claimed successfully", result)
}

// CompleteJob handles POST /api/v1/jobs/:id/complete. The body is
// multipart: a "report" file, a "hasInvoice" flag and an "invoice" JSON field.
func (h *JobController) CompleteJob(c *gin.Context) {
	actor, ok := actorOrAbort(c, h.logger)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	// FormFile parses the whole form, so it runs before the text fields are read
	var report *services.ReportUpload
	fileHeader, err := c.FormFile("report")
	switch {
	case err == nil:
		file, openErr := fileHeader.Open()
		if openErr != nil {
			respondError(c, h.logger, "Failed to read report", openErr)
			return
		}
		defer file.Close()
		report = reportUpload(fileHeader, file)
	case errors.Is(err, http.ErrMissingFile):
		// the service reports the missing file with the other form errors
	default:
		h.logger.Warnf("Failed to parse completion form: %v", err)
		respondBadRequest(c, "Invalid completion form", err.Error(), map[string]string{"report": uploadProblem(err)})
		return
	}

	req, fields := h.completionForm(c)
	if len(fields) > 0 {
		respondBadRequest(c, "Invalid completion form", "one or more fields are invalid", fields)
		return
	}

	submission := &services.CompletionSubmission{Report: report, Request: req}
	result, err := h.completionService.CompleteJob(c.Request.Context(), c.Param("id"), actor, submission)
	if err != nil {
		respondError(c, h.logger, "Failed to complete job", err)
		return
	}

	respondOK(c, http.StatusOK, "Job completed successfully", result)
}

// completionForm reads the non-file fields of a completion submission
func (h *JobController) completionForm(c *gin.Context) (models.CompleteJobRequest, map[string]string) {
	fields := map[string]string{}
	var req models.CompleteJobRequest

	if raw := strings.TrimSpace(c.PostForm("hasInvoice")); raw != "" {
		hasInvoice, err := strconv.ParseBool(raw)
		if err != nil {
			fields["hasInvoice"] = "hasInvoice must be true or false"
		}
		req.HasInvoice = hasInvoice
	}

	if raw := strings.TrimSpace(c.PostForm("invoice")); raw != "" && req.HasInvoice {
		var invoice models.Invoice
		if err := binding.JSON.BindBody([]byte(raw), &invoice); err != nil {
			fields["invoice"] = "invoice must be a JSON object"
		} else {
			req.Invoice = &invoice
		}
	}
	return req, fields
}

func reportUpload(header *multipart.FileHeader, body io.Reader) *services.ReportUpload {
	return &services.ReportUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        body,
	}
}

func uploadProblem(err error) string {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return "report is too large"
	}
	return "report could not be read"
}
