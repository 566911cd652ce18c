package services

import (
	"context"
	"io"

	"jobdispatch-backend/models"
)

// JobQuery is a list request: filters, ordering and paging
type JobQuery struct {
	Filter models.JobFilter
	Sort   string
	Order  string
	Page   int
	Limit  int
}

// ReportUpload is a report file on its way to storage
type ReportUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CompletionSubmission is everything a completion request carries
type CompletionSubmission struct {
	Report  *ReportUpload
	Request models.CompleteJobRequest
}

// ReconcileReport summarizes one capacity reconciliation pass
type ReconcileReport struct {
	Checked   int      `json:"checked"`
	Corrected int      `json:"corrected"`
	Skipped   int      `json:"skipped"`
	Drifted   []string `json:"drifted,omitempty"`
}

// JobServiceInterface defines the contract for job service
type JobServiceInterface interface {
	CreateJob(ctx context.Context, req *models.CreateJobRequest, actor models.Actor) (*models.AssignmentResult, error)
	GetJob(ctx context.Context, key string) (*models.Job, error)
	GetJobs(ctx context.Context, query JobQuery) (*models.JobListResponse, error)
	GetAvailableJobs(ctx context.Context) ([]*models.Job, error)
}

// AllocationServiceInterface defines the contract for binding jobs to technicians
type AllocationServiceInterface interface {
	AssignJob(ctx context.Context, jobID, technicianID string, actor models.Actor) (*models.AssignmentResult, error)
	ClaimJob(ctx context.Context, jobID string, actor models.Actor) (*models.AssignmentResult, error)
	UpdateJob(ctx context.Context, jobID string, req *models.UpdateJobRequest, actor models.Actor) (*models.AssignmentResult, error)
	UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus, actor models.Actor) (*models.AssignmentResult, error)
}

// CompletionServiceInterface defines the contract for finishing jobs
type CompletionServiceInterface interface {
	CompleteJob(ctx context.Context, jobID string, actor models.Actor, submission *CompletionSubmission) (*models.AssignmentResult, error)
}

// TechnicianServiceInterface defines the contract for technician service
type TechnicianServiceInterface interface {
	CreateTechnician(ctx context.Context, req *models.CreateTechnicianRequest) (*models.TechnicianView, error)
	GetTechnician(ctx context.Context, id string) (*models.TechnicianView, error)
	GetTechnicians(ctx context.Context, filter models.TechnicianFilter) ([]*models.TechnicianView, error)
	UpdateTechnician(ctx context.Context, id string, req *models.UpdateTechnicianRequest) (*models.TechnicianView, error)
	ReconcileCapacity(ctx context.Context) (*ReconcileReport, error)
}

// ServiceContainerInterface defines the main service container contract
type ServiceContainerInterface interface {
	GetJobService() JobServiceInterface
	GetAllocationService() AllocationServiceInterface
	GetCompletionService() CompletionServiceInterface
	GetTechnicianService() TechnicianServiceInterface
}
