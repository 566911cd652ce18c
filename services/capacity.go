package services

import "jobdispatch-backend/models"

// Workload levels, from least to most loaded
const (
	WorkloadLow      = "low"
	WorkloadMedium   = "medium"
	WorkloadHigh     = "high"
	WorkloadCritical = "critical"
)

// CanAccept reports whether a technician may be picked for a new job
func CanAccept(t *models.Technician) bool {
	return t != nil && t.Availability == models.AvailabilityAvailable
}

// CanAcceptForEdit widens CanAccept for the edit form: Busy technicians stay
// selectable, and so does whoever already holds the job.
func CanAcceptForEdit(t *models.Technician, currentHolderID string) bool {
	if t == nil {
		return false
	}
	if currentHolderID != "" && t.ID == currentHolderID {
		return true
	}
	return t.Availability == models.AvailabilityAvailable || t.Availability == models.AvailabilityBusy
}

// WorkloadLevel buckets current/max load. A technician without capacity is critical.
func WorkloadLevel(currentJobs, maxJobs int) string {
	if maxJobs <= 0 {
		return WorkloadCritical
	}
	pct := currentJobs * 100 / maxJobs
	switch {
	case pct < 40:
		return WorkloadLow
	case pct < 70:
		return WorkloadMedium
	case pct < 90:
		return WorkloadHigh
	default:
		return WorkloadCritical
	}
}

// ApplyAssignmentDelta returns a copy of t with currentJobs moved by delta,
// never below zero. The original is not modified.
func ApplyAssignmentDelta(t *models.Technician, delta int) *models.Technician {
	if t == nil {
		return nil
	}
	out := *t
	out.CurrentJobs += delta
	if out.CurrentJobs < 0 {
		out.CurrentJobs = 0
	}
	out.Availability = DeriveAvailability(&out)
	return &out
}

// DeriveAvailability keeps operator labels (Unavailable, On Leave) and
// otherwise reflects load against capacity
func DeriveAvailability(t *models.Technician) models.AvailabilityStatus {
	switch t.Availability {
	case models.AvailabilityUnavailable, models.AvailabilityOnLeave:
		return t.Availability
	}
	if t.MaxJobs > 0 && t.CurrentJobs >= t.MaxJobs {
		return models.AvailabilityBusy
	}
	return models.AvailabilityAvailable
}

// IsOverCapacity reports whether one more job would exceed maxJobs
func IsOverCapacity(t *models.Technician) bool {
	return t.MaxJobs > 0 && t.CurrentJobs >= t.MaxJobs
}

// ViewTechnician annotates t with its workload level
func ViewTechnician(t *models.Technician) *models.TechnicianView {
	return &models.TechnicianView{
		Technician:    t,
		WorkloadLevel: WorkloadLevel(t.CurrentJobs, t.MaxJobs),
	}
}
