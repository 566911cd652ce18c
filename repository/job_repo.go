package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"jobdispatch-backend/dal"
	"jobdispatch-backend/models"
	"jobdispatch-backend/utils"
	"jobdispatch-backend/utils/logger"
)

const (
	jobNumberIndex  = "jobNumber-index"
	jobStatusIndex  = "status-index"
	jobTypeIndex    = "jobType-index"
	technicianIndex = "technicianId-index"
)

// jobRecord is the stored shape of a job. technicianId is a flat copy of the
// assignment so it can back a secondary index.
type jobRecord struct {
	models.Job
	TechnicianID string `dynamodbav:"technicianId,omitempty"`
}

func toRecord(job *models.Job) jobRecord {
	return jobRecord{Job: *job, TechnicianID: job.AssignedTechnicianID()}
}

func fromRecords(records []jobRecord) []*models.Job {
	jobs := make([]*models.Job, 0, len(records))
	for i := range records {
		job := records[i].Job
		jobs = append(jobs, &job)
	}
	return jobs
}

type JobRepository struct {
	db     dal.DatabaseClientInterface
	config *models.Config
	logger logger.Logger
}

func NewJobRepository(db dal.DatabaseClientInterface, cfg *models.Config, log logger.Logger) *JobRepository {
	return &JobRepository{
		db:     db,
		config: cfg,
		logger: log,
	}
}

// CreateJob stores a new job. The id must not already exist.
func (r *JobRepository) CreateJob(ctx context.Context, job *models.Job) (*models.Job, error) {
	r.logger.Infof("Creating job %s at %s", job.JobNumber, job.PropertyAddress)

	now := time.Now().UTC()
	if job.ID == "" {
		job.ID = utils.GenerateUUID()
	}
	job.CreatedAt = now
	job.UpdatedAt = now
	job.Version = 1

	err := r.db.PutItemIf(ctx, r.config.JobsTable(), toRecord(job), dal.Condition{
		Expression: "attribute_not_exists(#id)",
		Names:      map[string]string{"#id": "id"},
	})
	if err != nil {
		if dal.IsConditionalCheckFailed(err) {
			return nil, fmt.Errorf("job %s already exists: %w", job.ID, ErrJobChanged)
		}
		r.logger.Errorf("Failed to create job: %v", err)
		return nil, err
	}

	r.logger.Infof("Job created successfully: %s (%s)", job.ID, job.JobNumber)
	return job, nil
}

// GetJob resolves key as a job number (JOB-000042) or an id
func (r *JobRepository) GetJob(ctx context.Context, key string) (*models.Job, error) {
	if key == "" {
		return nil, errors.New("job key is required")
	}

	indexName, keyName := r.determineKeyType(key)
	config := models.QueryConfig{
		TableName: r.config.JobsTable(),
		IndexName: indexName,
		KeyName:   keyName,
		KeyValue:  key,
		KeyType:   models.StringType,
	}

	var record jobRecord
	if err := r.db.GetItem(ctx, config, &record); err != nil {
		r.logger.Errorf("Failed to get job by %s: %v", keyName, err)
		return nil, fmt.Errorf("failed to get job by %s: %w", keyName, err)
	}
	if record.ID == "" {
		return nil, ErrNotFound
	}

	return &record.Job, nil
}

// GetJobsByFilter picks the narrowest index for the filter and applies the
// remaining criteria in memory
func (r *JobRepository) GetJobsByFilter(ctx context.Context, filter *models.JobFilter) ([]*models.Job, error) {
	if filter == nil {
		filter = &models.JobFilter{}
	}

	var records []jobRecord
	var err error

	switch {
	case filter.TechnicianID != "":
		err = r.db.QueryByIndex(ctx, r.config.JobsTable(), technicianIndex, "technicianId", filter.TechnicianID, &records)
	case filter.Status != "":
		err = r.db.QueryByIndex(ctx, r.config.JobsTable(), jobStatusIndex, "status", string(filter.Status), &records)
	case filter.JobType != "":
		err = r.db.QueryByIndex(ctx, r.config.JobsTable(), jobTypeIndex, "jobType", string(filter.JobType), &records)
	default:
		err = r.db.ScanTable(ctx, r.config.JobsTable(), &records)
	}
	if err != nil {
		r.logger.Errorf("Failed to get jobs: %v", err)
		return nil, err
	}

	jobs := r.applyAdditionalFilters(fromRecords(records), filter)
	r.logger.Debugf("Found %d jobs", len(jobs))
	return jobs, nil
}

// GetJobsByTechnician returns every job referencing the technician, in any status
func (r *JobRepository) GetJobsByTechnician(ctx context.Context, technicianID string) ([]*models.Job, error) {
	if technicianID == "" {
		return nil, errors.New("technician ID is required")
	}
	var records []jobRecord
	if err := r.db.QueryByIndex(ctx, r.config.JobsTable(), technicianIndex, "technicianId", technicianID, &records); err != nil {
		return nil, err
	}
	return fromRecords(records), nil
}

// jobNumberPattern matches numbers issued by FormatJobNumber. Ids are never
// routed to the index, whatever their prefix.
var jobNumberPattern = regexp.MustCompile(`^JOB-[0-9]+$`)

func (r *JobRepository) determineKeyType(key string) (indexName, keyName string) {
	if jobNumberPattern.MatchString(key) {
		return jobNumberIndex, "jobNumber"
	}
	return "", "id"
}

func (r *JobRepository) applyAdditionalFilters(jobs []*models.Job, filter *models.JobFilter) []*models.Job {
	filtered := make([]*models.Job, 0, len(jobs))
	for _, job := range jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.JobType != "" && job.JobType != filter.JobType {
			continue
		}
		if filter.Priority != "" && job.Priority != filter.Priority {
			continue
		}
		if filter.TechnicianID != "" && job.AssignedTechnicianID() != filter.TechnicianID {
			continue
		}
		if !filter.FromDate.IsZero() && job.DueDate.Before(filter.FromDate) {
			continue
		}
		if !filter.ToDate.IsZero() && job.DueDate.After(filter.ToDate) {
			continue
		}
		filtered = append(filtered, job)
	}
	return filtered
}
