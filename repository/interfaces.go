package repository

import (
	"context"
	"io"

	"jobdispatch-backend/models"
)

// JobRepositoryInterface defines the contract for job repository operations
type JobRepositoryInterface interface {
	CreateJob(ctx context.Context, job *models.Job) (*models.Job, error)
	GetJob(ctx context.Context, key string) (*models.Job, error)
	GetJobsByFilter(ctx context.Context, filter *models.JobFilter) ([]*models.Job, error)
	GetJobsByTechnician(ctx context.Context, technicianID string) ([]*models.Job, error)
}

// TechnicianRepositoryInterface defines the contract for technician repository operations
type TechnicianRepositoryInterface interface {
	CreateTechnician(ctx context.Context, technician *models.Technician) (*models.Technician, error)
	GetTechnician(ctx context.Context, id string) (*models.Technician, error)
	GetTechnicians(ctx context.Context) ([]*models.Technician, error)
	UpdateTechnician(ctx context.Context, id string, updates map[string]interface{}) (*models.Technician, error)
	SetCurrentJobs(ctx context.Context, id string, expected, actual int, availability models.AvailabilityStatus) error
}

// AssignmentRepositoryInterface commits a job write together with its
// technician counter changes
type AssignmentRepositoryInterface interface {
	Apply(ctx context.Context, mutation *JobMutation) error
}

// ReportRepositoryInterface stores completion reports
type ReportRepositoryInterface interface {
	SaveReport(ctx context.Context, jobID, fileName, contentType string, size int64, body io.Reader) (*models.ReportArtifact, error)
	DeleteReport(ctx context.Context, objectKey string) error
}

// SequenceRepositoryInterface hands out human readable job numbers
type SequenceRepositoryInterface interface {
	NextJobNumber(ctx context.Context) (string, error)
}

// RepositoryContainerInterface defines the contract for the repository container
type RepositoryContainerInterface interface {
	GetJobRepository() JobRepositoryInterface
	GetTechnicianRepository() TechnicianRepositoryInterface
	GetAssignmentRepository() AssignmentRepositoryInterface
	GetReportRepository() ReportRepositoryInterface
	GetSequenceRepository() SequenceRepositoryInterface
}
