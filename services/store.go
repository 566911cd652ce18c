package services

import (
	"context"
	"errors"

	"jobdispatch-backend/dal"
	"jobdispatch-backend/models"
	"jobdispatch-backend/repository"
	"jobdispatch-backend/utils/logger"
)

// jobStore bundles the reads and the transactional write every job action
// goes through, and turns repository errors into service errors
type jobStore struct {
	jobs        repository.JobRepositoryInterface
	technicians repository.TechnicianRepositoryInterface
	assignments repository.AssignmentRepositoryInterface
	logger      logger.Logger
}

func newJobStore(
	jobRepo repository.JobRepositoryInterface,
	techRepo repository.TechnicianRepositoryInterface,
	assignRepo repository.AssignmentRepositoryInterface,
	log logger.Logger,
) *jobStore {
	return &jobStore{
		jobs:        jobRepo,
		technicians: techRepo,
		assignments: assignRepo,
		logger:      log,
	}
}

// storeError classifies a persistence failure as retryable or not
func storeError(err error, message string) error {
	if dal.IsTransient(err) {
		return transientError(err, message+", please retry")
	}
	return internalError(err, message)
}

func (s *jobStore) job(ctx context.Context, key string) (*models.Job, error) {
	job, err := s.jobs.GetJob(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("job %s not found", key)
	}
	if err != nil {
		s.logger.Errorf("Failed to load job %s: %v", key, err)
		return nil, storeError(err, "failed to load job")
	}
	return job, nil
}

func (s *jobStore) technician(ctx context.Context, id string) (*models.Technician, error) {
	technician, err := s.technicians.GetTechnician(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("technician %s not found", id)
	}
	if err != nil {
		s.logger.Errorf("Failed to load technician %s: %v", id, err)
		return nil, storeError(err, "failed to load technician")
	}
	return technician, nil
}

// guardReleases drops slot releases that would push a counter below zero.
// A technician that no longer exists loses its whole delta.
func (s *jobStore) guardReleases(ctx context.Context, deltas []repository.CounterDelta) ([]repository.CounterDelta, error) {
	out := make([]repository.CounterDelta, 0, len(deltas))
	for _, delta := range deltas {
		if delta.CurrentJobs >= 0 {
			out = append(out, delta)
			continue
		}

		technician, err := s.technicians.GetTechnician(ctx, delta.TechnicianID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			s.logger.Warnf("Technician %s no longer exists, skipping its counter update", delta.TechnicianID)
			continue
		case err != nil:
			return nil, storeError(err, "failed to load technician")
		case technician.CurrentJobs <= 0:
			s.logger.Warnf("Technician %s already has no active jobs, skipping release", delta.TechnicianID)
			delta.CurrentJobs = 0
		}
		out = append(out, delta)
	}
	return out, nil
}

// commit applies mutation and reports which side rejected it
func (s *jobStore) commit(ctx context.Context, mutation *repository.JobMutation) error {
	err := s.assignments.Apply(ctx, mutation)
	if err == nil {
		return nil
	}

	var techErr *repository.TechnicianWriteError
	switch {
	case errors.Is(err, repository.ErrJobChanged):
		return conflictError(err, "job %s was changed by another request, reload and try again", mutation.Job.JobNumber)
	case errors.As(err, &techErr):
		if _, lookupErr := s.technicians.GetTechnician(ctx, techErr.TechnicianID); errors.Is(lookupErr, repository.ErrNotFound) {
			return notFoundError("technician %s not found", techErr.TechnicianID)
		}
		return conflictError(err, "technician %s changed concurrently, reload and try again", techErr.TechnicianID)
	default:
		s.logger.Errorf("Failed to save job %s: %v", mutation.Job.ID, err)
		return storeError(err, "failed to save job")
	}
}

// snapshot re-reads both sides of a committed action. fallback is returned
// when the job cannot be read back.
func (s *jobStore) snapshot(ctx context.Context, fallback *models.Job, technicianID string) *models.AssignmentResult {
	result := &models.AssignmentResult{Job: fallback}
	if job, err := s.jobs.GetJob(ctx, fallback.ID); err == nil {
		result.Job = job
	} else {
		s.logger.Warnf("Could not re-read job %s after commit: %v", fallback.ID, err)
	}
	if technicianID != "" {
		result.Technician = s.syncTechnician(ctx, technicianID)
	}
	return result
}

// syncTechnician re-reads a technician and stores the availability label
// its counter implies. Conflicts are left for the reconciler.
func (s *jobStore) syncTechnician(ctx context.Context, id string) *models.Technician {
	technician, err := s.technicians.GetTechnician(ctx, id)
	if err != nil {
		s.logger.Warnf("Could not re-read technician %s: %v", id, err)
		return nil
	}

	derived := DeriveAvailability(technician)
	if derived == technician.Availability {
		return technician
	}
	if err := s.technicians.SetCurrentJobs(ctx, id, technician.CurrentJobs, technician.CurrentJobs, derived); err != nil {
		s.logger.Warnf("Availability of technician %s left at %s: %v", id, technician.Availability, err)
		return technician
	}
	technician.Availability = derived
	return technician
}
