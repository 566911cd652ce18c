package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"jobdispatch-backend/models"
	"jobdispatch-backend/repository"
	"jobdispatch-backend/utils/logger"
)

// AllocationService binds jobs to technicians. Every action commits the job
// and the technician counters together and returns a fresh read of both.
type AllocationService struct {
	store  *jobStore
	guard  ActionGuard
	logger logger.Logger
	now    func() time.Time
}

func NewAllocationService(
	jobRepo repository.JobRepositoryInterface,
	techRepo repository.TechnicianRepositoryInterface,
	assignRepo repository.AssignmentRepositoryInterface,
	guard ActionGuard,
	logger logger.Logger,
) *AllocationService {
	return &AllocationService{
		store:  newJobStore(jobRepo, techRepo, assignRepo, logger),
		guard:  guard,
		logger: logger,
		now:    time.Now,
	}
}

// notClaimable explains why job cannot take a technician
func notClaimable(job *models.Job) error {
	if job.IsAssigned() {
		return preconditionError("job %s is no longer available: already assigned to %s",
			job.JobNumber, technicianLabel(job.AssignedTechnician))
	}
	return preconditionError("job %s is no longer available: it is %s", job.JobNumber, job.Status)
}

func technicianLabel(ref *models.TechnicianRef) string {
	if ref.Name != "" {
		return ref.Name
	}
	return ref.ID
}

// AssignJob is the dispatcher path: a Pending job goes to the chosen technician
func (s *AllocationService) AssignJob(ctx context.Context, jobID, technicianID string, actor models.Actor) (*models.AssignmentResult, error) {
	technicianID = strings.TrimSpace(technicianID)
	if technicianID == "" {
		return nil, validationError("invalid assignment", map[string]string{"technicianId": "technician is required"})
	}

	job, err := s.store.job(ctx, jobID)
	if err != nil {
		return nil, err
	}

	release, err := s.guard.Acquire(ctx, ActionAssign, job.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	if !IsClaimable(job) {
		return nil, notClaimable(job)
	}

	technician, err := s.store.technician(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if !CanAccept(technician) {
		s.logger.Warnf("Assigning job %s to technician %s who is %s", job.JobNumber, technician.ID, technician.Availability)
	}
	if IsOverCapacity(technician) {
		s.logger.Warnf("Technician %s is at capacity (%d/%d), assigning job %s anyway",
			technician.ID, technician.CurrentJobs, technician.MaxJobs, job.JobNumber)
	}

	return s.bind(ctx, job, technician, actor)
}

// ClaimJob is the technician self-service path
func (s *AllocationService) ClaimJob(ctx context.Context, jobID string, actor models.Actor) (*models.AssignmentResult, error) {
	if actor.TechnicianID == "" {
		return nil, preconditionError("only technicians can claim jobs")
	}

	job, err := s.store.job(ctx, jobID)
	if err != nil {
		return nil, err
	}

	release, err := s.guard.Acquire(ctx, ActionClaim, job.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	if !IsClaimable(job) {
		return nil, notClaimable(job)
	}

	technician, err := s.store.technician(ctx, actor.TechnicianID)
	if err != nil {
		return nil, err
	}
	if technician.Availability != models.AvailabilityAvailable && technician.Availability != models.AvailabilityBusy {
		return nil, preconditionError("technician %s is %s and cannot claim jobs", technician.Name, technician.Availability)
	}

	return s.bind(ctx, job, technician, actor)
}

// bind moves an unassigned Pending job to Scheduled under technician
func (s *AllocationService) bind(ctx context.Context, job *models.Job, technician *models.Technician, actor models.Actor) (*models.AssignmentResult, error) {
	next := *job
	next.Status = models.JobStatusScheduled
	next.AssignedTechnician = technician.Ref()
	next.UpdatedBy = actor.UserID

	mutation := &repository.JobMutation{
		Job:              &next,
		ExpectedVersion:  job.Version,
		ExpectedStatus:   job.Status,
		ExpectUnassigned: true,
		Counters:         []repository.CounterDelta{{TechnicianID: technician.ID, CurrentJobs: 1}},
	}
	if err := s.store.commit(ctx, mutation); err != nil {
		if errors.Is(err, repository.ErrJobChanged) {
			if current, readErr := s.store.job(ctx, job.ID); readErr == nil && !IsClaimable(current) {
				return nil, notClaimable(current)
			}
		}
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"job":        next.JobNumber,
		"technician": technician.ID,
		"actor":      actor.UserID,
	}).Info("Job assigned")
	return s.store.snapshot(ctx, &next, technician.ID), nil
}

// UpdateJob applies the edit form. Any status may be set; the technician may
// be changed or cleared with an explicit null.
func (s *AllocationService) UpdateJob(ctx context.Context, jobID string, req *models.UpdateJobRequest, actor models.Actor) (*models.AssignmentResult, error) {
	if req == nil {
		return nil, validationError("job update is required", nil)
	}

	existing, err := s.store.job(ctx, jobID)
	if err != nil {
		return nil, err
	}

	release, err := s.guard.Acquire(ctx, ActionUpdate, existing.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	var ref *models.TechnicianRef
	if req.AssignedTechnician.Set && req.AssignedTechnician.Ref != nil {
		ref, err = s.resolveEditTechnician(ctx, existing, req.AssignedTechnician.Ref.ID)
		if err != nil {
			return nil, err
		}
	}

	plan, err := PlanEdit(existing, req, ref, s.now())
	if err != nil {
		return nil, err
	}
	return s.applyPlan(ctx, existing, plan, actor)
}

func (s *AllocationService) resolveEditTechnician(ctx context.Context, existing *models.Job, technicianID string) (*models.TechnicianRef, error) {
	technician, err := s.store.technician(ctx, technicianID)
	if KindOf(err) == KindNotFound {
		return nil, validationError("invalid job update", map[string]string{
			"assignedTechnician": "technician " + technicianID + " not found",
		})
	}
	if err != nil {
		return nil, err
	}
	if !CanAcceptForEdit(technician, existing.AssignedTechnicianID()) {
		return nil, validationError("invalid job update", map[string]string{
			"assignedTechnician": "technician " + technician.Name + " is " + string(technician.Availability),
		})
	}
	return technician.Ref(), nil
}

// UpdateJobStatus is the narrow status endpoint. It follows the guarded
// transitions; completion has its own workflow.
func (s *AllocationService) UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus, actor models.Actor) (*models.AssignmentResult, error) {
	if !status.IsValid() {
		return nil, validationError("invalid status", map[string]string{"status": "unknown status " + string(status)})
	}

	existing, err := s.store.job(ctx, jobID)
	if err != nil {
		return nil, err
	}

	release, err := s.guard.Acquire(ctx, ActionUpdate, existing.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	if existing.Status == status {
		return &models.AssignmentResult{Job: existing}, nil
	}
	if status == models.JobStatusCompleted {
		return nil, preconditionError("use the completion workflow to complete job %s", existing.JobNumber)
	}
	if err := ValidateTransition(existing.Status, status); err != nil {
		return nil, err
	}
	if status == models.JobStatusScheduled && !existing.IsAssigned() {
		return nil, preconditionError("assign a technician before scheduling job %s", existing.JobNumber)
	}

	plan, err := PlanEdit(existing, &models.UpdateJobRequest{Status: status}, nil, s.now())
	if err != nil {
		return nil, err
	}
	return s.applyPlan(ctx, existing, plan, actor)
}

func (s *AllocationService) applyPlan(ctx context.Context, existing *models.Job, plan *EditPlan, actor models.Actor) (*models.AssignmentResult, error) {
	plan.Job.UpdatedBy = actor.UserID

	counters, err := s.store.guardReleases(ctx, plan.Counters())
	if err != nil {
		return nil, err
	}

	mutation := &repository.JobMutation{
		Job:             plan.Job,
		ExpectedVersion: existing.Version,
		ExpectedStatus:  existing.Status,
		Counters:        counters,
	}
	if err := s.store.commit(ctx, mutation); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"job":      plan.Job.JobNumber,
		"from":     existing.Status,
		"to":       plan.Job.Status,
		"released": plan.Released,
		"consumed": plan.Consumed,
		"actor":    actor.UserID,
	}).Info("Job updated")

	holder := plan.Job.AssignedTechnicianID()
	if plan.Released != "" && plan.Released != holder {
		released := s.store.syncTechnician(ctx, plan.Released)
		if holder == "" {
			result := s.store.snapshot(ctx, plan.Job, "")
			result.Technician = released
			return result, nil
		}
	}
	return s.store.snapshot(ctx, plan.Job, holder), nil
}
