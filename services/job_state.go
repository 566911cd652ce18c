package services

import (
	"strings"
	"time"

	"jobdispatch-backend/models"
	"jobdispatch-backend/repository"
)

var dueDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDueDate accepts a calendar date or a full timestamp
func ParseDueDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// civilDay drops the clock and zone, keeping the calendar date as written
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsOverdue reports whether the due calendar date is before today and the
// job is still open
func IsOverdue(job *models.Job, now time.Time) bool {
	if job == nil || job.DueDate.IsZero() {
		return false
	}
	if job.Status == models.JobStatusCompleted || job.Status == models.JobStatusCancelled {
		return false
	}
	return civilDay(job.DueDate).Before(civilDay(now))
}

// DisplayStatus is the status shown to operators. The stored status wins;
// Overdue is only derived for Pending and Scheduled jobs past their due date.
func DisplayStatus(job *models.Job, now time.Time) models.JobStatus {
	switch job.Status {
	case models.JobStatusPending, models.JobStatusScheduled:
		if IsOverdue(job, now) {
			return models.JobStatusOverdue
		}
	}
	return job.Status
}

// CompletionDateReached reports whether the due date has arrived: due today
// and past due both qualify
func CompletionDateReached(due, now time.Time) bool {
	if due.IsZero() {
		return false
	}
	y, m, d := due.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return !midnight.After(now)
}

// RequiresUnassign reports whether entering status must clear the technician
func RequiresUnassign(status models.JobStatus) bool {
	return status == models.JobStatusPending || status == models.JobStatusCancelled
}

// CountsTowardLoad reports whether job occupies a slot of its technician
func CountsTowardLoad(job *models.Job) bool {
	if job == nil || !job.IsAssigned() {
		return false
	}
	return job.Status != models.JobStatusCompleted && job.Status != models.JobStatusCancelled
}

// guardedTransitions are the moves allowed outside the edit override.
// Completed is only reachable through the completion workflow.
var guardedTransitions = map[models.JobStatus][]models.JobStatus{
	models.JobStatusPending:   {models.JobStatusScheduled, models.JobStatusCancelled},
	models.JobStatusScheduled: {models.JobStatusCompleted, models.JobStatusOverdue, models.JobStatusPending, models.JobStatusCancelled},
	models.JobStatusOverdue:   {models.JobStatusCompleted, models.JobStatusScheduled, models.JobStatusPending, models.JobStatusCancelled},
	models.JobStatusCompleted: {models.JobStatusPending, models.JobStatusCancelled},
	models.JobStatusCancelled: {models.JobStatusPending},
}

// ValidateTransition checks a guarded status move
func ValidateTransition(from, to models.JobStatus) error {
	if !to.IsValid() {
		return validationError("invalid status", map[string]string{"status": "unknown status " + string(to)})
	}
	for _, allowed := range guardedTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return preconditionError("cannot move job from %s to %s", from, to)
}

// EditPlan is the outcome of a direct edit: the job to store and the
// counter changes it implies
type EditPlan struct {
	Job      *models.Job
	Released string
	Consumed string
}

// Counters lists the technician deltas, releases first. An unchanged
// holder produces none.
func (p *EditPlan) Counters() []repository.CounterDelta {
	if p.Released != "" && p.Released == p.Consumed {
		return nil
	}
	var out []repository.CounterDelta
	if p.Released != "" {
		out = append(out, repository.CounterDelta{TechnicianID: p.Released, CurrentJobs: -1})
	}
	if p.Consumed != "" {
		out = append(out, repository.CounterDelta{TechnicianID: p.Consumed, CurrentJobs: 1})
	}
	return out
}

// PlanEdit applies an edit-form submission to existing. technician, when not
// nil, is the resolved reference for req.AssignedTechnician. Any status may be
// chosen here; entering Pending or Cancelled always clears the technician.
// Moving a job out of Completed drops its completion record (timestamp,
// report reference and invoice) so it must be completed again.
func PlanEdit(existing *models.Job, req *models.UpdateJobRequest, technician *models.TechnicianRef, now time.Time) (*EditPlan, error) {
	job := *existing
	fields := FieldErrors{}

	if req.JobType != "" {
		if !req.JobType.IsValid() {
			fields.Add("jobType", "unknown job type")
		}
		job.JobType = req.JobType
	}
	if req.Priority != "" {
		if !req.Priority.IsValid() {
			fields.Add("priority", "unknown priority")
		}
		job.Priority = req.Priority
	}
	if req.Description != nil {
		job.Description = strings.TrimSpace(*req.Description)
	}
	if req.DueDate != "" {
		due, ok := ParseDueDate(req.DueDate)
		if !ok {
			fields.Add("dueDate", "must be a date (YYYY-MM-DD) or RFC3339 timestamp")
		}
		job.DueDate = due
	}
	if req.Status != "" {
		if !req.Status.IsValid() {
			fields.Add("status", "unknown status")
		}
		job.Status = req.Status
	}
	if err := fields.Err("invalid job update"); err != nil {
		return nil, err
	}

	if req.AssignedTechnician.Set {
		switch {
		case technician != nil:
			ref := *technician
			job.AssignedTechnician = &ref
		case req.AssignedTechnician.Ref != nil:
			ref := *req.AssignedTechnician.Ref
			job.AssignedTechnician = &ref
		default:
			job.AssignedTechnician = nil
		}
	}

	if req.Status == "" && existing.Status == models.JobStatusPending && job.IsAssigned() {
		job.Status = models.JobStatusScheduled
	}
	if RequiresUnassign(job.Status) {
		job.AssignedTechnician = nil
	}

	if existing.Status == models.JobStatusCompleted && job.Status != models.JobStatusCompleted {
		job.CompletedAt = nil
		job.Report = nil
		job.HasInvoice = false
		job.Invoice = nil
	}
	if job.Status == models.JobStatusCompleted && job.CompletedAt == nil {
		completedAt := now.UTC()
		job.CompletedAt = &completedAt
	}

	plan := &EditPlan{Job: &job}
	if CountsTowardLoad(existing) {
		plan.Released = existing.AssignedTechnicianID()
	}
	if CountsTowardLoad(&job) {
		plan.Consumed = job.AssignedTechnicianID()
	}
	return plan, nil
}
