package services

import (
	"context"
	"strings"
	"time"

	"jobdispatch-backend/models"
	"jobdispatch-backend/repository"
	"jobdispatch-backend/utils/logger"
)

type JobService struct {
	store    *jobStore
	sequence repository.SequenceRepositoryInterface
	logger   logger.Logger
	now      func() time.Time
}

func NewJobService(
	jobRepo repository.JobRepositoryInterface,
	techRepo repository.TechnicianRepositoryInterface,
	assignRepo repository.AssignmentRepositoryInterface,
	sequence repository.SequenceRepositoryInterface,
	logger logger.Logger,
) *JobService {
	return &JobService{
		store:    newJobStore(jobRepo, techRepo, assignRepo, logger),
		sequence: sequence,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateJob stores a new job. With a technician it is created Scheduled and
// the technician's slot is taken in the same write.
func (s *JobService) CreateJob(ctx context.Context, req *models.CreateJobRequest, actor models.Actor) (*models.AssignmentResult, error) {
	job, err := s.buildJob(req)
	if err != nil {
		return nil, err
	}
	job.CreatedBy = actor.UserID

	var technician *models.Technician
	if id := strings.TrimSpace(req.TechnicianID); id != "" {
		technician, err = s.store.technician(ctx, id)
		if KindOf(err) == KindNotFound {
			return nil, validationError("invalid job", map[string]string{"assignedTechnician": "technician " + id + " not found"})
		}
		if err != nil {
			return nil, err
		}
		if !CanAccept(technician) {
			return nil, validationError("invalid job", map[string]string{
				"assignedTechnician": "technician " + technician.Name + " is " + string(technician.Availability),
			})
		}
	}

	number, err := s.sequence.NextJobNumber(ctx)
	if err != nil {
		s.logger.Errorf("Failed to allocate job number: %v", err)
		return nil, storeError(err, "failed to allocate job number")
	}
	job.JobNumber = number

	if technician == nil {
		created, err := s.store.jobs.CreateJob(ctx, job)
		if err != nil {
			s.logger.Errorf("Failed to create job %s: %v", number, err)
			return nil, storeError(err, "failed to create job")
		}
		return &models.AssignmentResult{Job: created}, nil
	}

	job.Status = models.JobStatusScheduled
	job.AssignedTechnician = technician.Ref()
	mutation := &repository.JobMutation{
		Job:      job,
		IsNew:    true,
		Counters: []repository.CounterDelta{{TechnicianID: technician.ID, CurrentJobs: 1}},
	}
	if err := s.store.commit(ctx, mutation); err != nil {
		return nil, err
	}
	s.logger.Infof("Job %s created and assigned to %s", job.JobNumber, technician.ID)
	return s.store.snapshot(ctx, job, technician.ID), nil
}

func (s *JobService) buildJob(req *models.CreateJobRequest) (*models.Job, error) {
	if req == nil {
		return nil, validationError("job request is required", nil)
	}

	fields := FieldErrors{}
	if strings.TrimSpace(req.PropertyID) == "" {
		fields.Add("propertyId", "property is required")
	}
	if strings.TrimSpace(req.PropertyAddress) == "" {
		fields.Add("propertyAddress", "property address is required")
	}
	if !req.JobType.IsValid() {
		fields.Add("jobType", "unknown job type")
	}
	priority := req.Priority
	if priority == "" {
		priority = models.JobPriorityMedium
	} else if !priority.IsValid() {
		fields.Add("priority", "unknown priority")
	}
	due, ok := ParseDueDate(req.DueDate)
	if !ok {
		fields.Add("dueDate", "must be a date (YYYY-MM-DD) or RFC3339 timestamp")
	}
	if err := fields.Err("invalid job"); err != nil {
		return nil, err
	}

	return &models.Job{
		JobType:         req.JobType,
		Priority:        priority,
		Status:          models.JobStatusPending,
		DueDate:         due,
		Description:     strings.TrimSpace(req.Description),
		PropertyID:      strings.TrimSpace(req.PropertyID),
		PropertyAddress: strings.TrimSpace(req.PropertyAddress),
	}, nil
}

// GetJob resolves a job by id or job number
func (s *JobService) GetJob(ctx context.Context, key string) (*models.Job, error) {
	return s.store.job(ctx, strings.TrimSpace(key))
}

// GetJobs lists jobs for the dispatcher board. Statistics cover every job
// matching the filter apart from its status, so the status tabs keep their
// counts while one of them is selected.
func (s *JobService) GetJobs(ctx context.Context, query JobQuery) (*models.JobListResponse, error) {
	now := s.now()

	jobs, err := s.store.jobs.GetJobsByFilter(ctx, &models.JobFilter{
		TechnicianID: query.Filter.TechnicianID,
		JobType:      query.Filter.JobType,
	})
	if err != nil {
		return nil, storeError(err, "failed to list jobs")
	}

	withoutStatus := query.Filter
	withoutStatus.Status = ""
	scoped := FilterJobs(jobs, withoutStatus, now)
	stats := StatusCounts(scoped, now)

	matched := scoped
	if query.Filter.Status != "" {
		matched = FilterJobs(scoped, models.JobFilter{Status: query.Filter.Status}, now)
	}

	page, pagination := Paginate(SortJobs(matched, query.Sort, query.Order), query.Page, query.Limit)
	return &models.JobListResponse{
		Jobs:       page,
		Pagination: pagination,
		Statistics: stats,
	}, nil
}

// GetAvailableJobs lists jobs technicians may claim, earliest due first
func (s *JobService) GetAvailableJobs(ctx context.Context) ([]*models.Job, error) {
	jobs, err := s.store.jobs.GetJobsByFilter(ctx, &models.JobFilter{Status: models.JobStatusPending})
	if err != nil {
		return nil, storeError(err, "failed to list available jobs")
	}
	return AvailableJobs(jobs), nil
}
