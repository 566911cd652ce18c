package models

import "time"

type JobStatus string

const (
	JobStatusPending   JobStatus = "Pending"
	JobStatusScheduled JobStatus = "Scheduled"
	JobStatusCompleted JobStatus = "Completed"
	JobStatusOverdue   JobStatus = "Overdue"
	JobStatusCancelled JobStatus = "Cancelled"
)

// JobStatuses lists every storable status in display order.
var JobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusScheduled,
	JobStatusCompleted,
	JobStatusOverdue,
	JobStatusCancelled,
}

func (s JobStatus) IsValid() bool {
	for _, v := range JobStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type JobType string

const (
	JobTypeGas               JobType = "Gas"
	JobTypeElectrical        JobType = "Electrical"
	JobTypeSmoke             JobType = "Smoke"
	JobTypeRepairs           JobType = "Repairs"
	JobTypePoolSafety        JobType = "Pool Safety"
	JobTypeRoutineInspection JobType = "Routine Inspection"
)

var JobTypes = []JobType{
	JobTypeGas,
	JobTypeElectrical,
	JobTypeSmoke,
	JobTypeRepairs,
	JobTypePoolSafety,
	JobTypeRoutineInspection,
}

func (t JobType) IsValid() bool {
	for _, v := range JobTypes {
		if t == v {
			return true
		}
	}
	return false
}

type JobPriority string

const (
	JobPriorityLow    JobPriority = "Low"
	JobPriorityMedium JobPriority = "Medium"
	JobPriorityHigh   JobPriority = "High"
	JobPriorityUrgent JobPriority = "Urgent"
)

var JobPriorities = []JobPriority{
	JobPriorityLow,
	JobPriorityMedium,
	JobPriorityHigh,
	JobPriorityUrgent,
}

func (p JobPriority) IsValid() bool {
	for _, v := range JobPriorities {
		if p == v {
			return true
		}
	}
	return false
}

// ReportArtifact describes the stored completion report
type ReportArtifact struct {
	FileName    string    `json:"fileName" dynamodbav:"fileName"`
	ContentType string    `json:"contentType" dynamodbav:"contentType"`
	Size        int64     `json:"size" dynamodbav:"size"`
	ObjectKey   string    `json:"objectKey" dynamodbav:"objectKey"`
	UploadedAt  time.Time `json:"uploadedAt" dynamodbav:"uploadedAt"`
}

// Job is a compliance inspection or repair attached to a property
type Job struct {
	ID                 string          `json:"id" dynamodbav:"id"`
	JobNumber          string          `json:"job_id" dynamodbav:"jobNumber"`
	JobType            JobType         `json:"jobType" dynamodbav:"jobType"`
	Priority           JobPriority     `json:"priority" dynamodbav:"priority"`
	Status             JobStatus       `json:"status" dynamodbav:"status"`
	DueDate            time.Time       `json:"dueDate" dynamodbav:"dueDate"`
	Description        string          `json:"description,omitempty" dynamodbav:"description,omitempty"`
	PropertyID         string          `json:"propertyId" dynamodbav:"propertyId"`
	PropertyAddress    string          `json:"propertyAddress" dynamodbav:"propertyAddress"`
	AssignedTechnician *TechnicianRef  `json:"assignedTechnician" dynamodbav:"assignedTechnician,omitempty"`
	CompletedAt        *time.Time      `json:"completedAt,omitempty" dynamodbav:"completedAt,omitempty"`
	Report             *ReportArtifact `json:"report,omitempty" dynamodbav:"report,omitempty"`
	HasInvoice         bool            `json:"hasInvoice" dynamodbav:"hasInvoice"`
	Invoice            *Invoice        `json:"invoice,omitempty" dynamodbav:"invoice,omitempty"`
	Version            int64           `json:"version" dynamodbav:"version"`
	CreatedAt          time.Time       `json:"createdAt" dynamodbav:"createdAt"`
	CreatedBy          string          `json:"createdBy" dynamodbav:"createdBy"`
	UpdatedAt          time.Time       `json:"updatedAt,omitempty" dynamodbav:"updatedAt,omitempty"`
	UpdatedBy          string          `json:"updatedBy,omitempty" dynamodbav:"updatedBy,omitempty"`
}

// AssignedTechnicianID returns the id of the assigned technician or ""
func (j *Job) AssignedTechnicianID() string {
	if j == nil || j.AssignedTechnician == nil {
		return ""
	}
	return j.AssignedTechnician.ID
}

// IsAssigned reports whether the job currently holds a technician
func (j *Job) IsAssigned() bool {
	return j.AssignedTechnicianID() != ""
}

type CreateJobRequest struct {
	PropertyID      string      `json:"propertyId" validate:"required"`
	PropertyAddress string      `json:"propertyAddress" validate:"required,min=3,max=300"`
	JobType         JobType     `json:"jobType" validate:"required,oneof='Gas' 'Electrical' 'Smoke' 'Repairs' 'Pool Safety' 'Routine Inspection'"`
	DueDate         string      `json:"dueDate" validate:"required"`
	TechnicianID    string      `json:"assignedTechnician,omitempty"`
	Priority        JobPriority `json:"priority" validate:"omitempty,oneof=Low Medium High Urgent"`
	Description     string      `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// UpdateJobRequest is the edit-job form payload. AssignedTechnician
// distinguishes an absent key from an explicit null (unassign).
type UpdateJobRequest struct {
	JobType            JobType               `json:"jobType,omitempty" validate:"omitempty,oneof='Gas' 'Electrical' 'Smoke' 'Repairs' 'Pool Safety' 'Routine Inspection'"`
	DueDate            string                `json:"dueDate,omitempty"`
	AssignedTechnician OptionalTechnicianRef `json:"assignedTechnician,omitzero"`
	Status             JobStatus             `json:"status,omitempty" validate:"omitempty,oneof=Pending Scheduled Completed Overdue Cancelled"`
	Priority           JobPriority           `json:"priority,omitempty" validate:"omitempty,oneof=Low Medium High Urgent"`
	Description        *string               `json:"description,omitempty" validate:"omitempty,max=2000"`
}

type UpdateJobStatusRequest struct {
	Status JobStatus `json:"status" validate:"required,oneof=Pending Scheduled Completed Overdue Cancelled"`
}

type AssignJobRequest struct {
	TechnicianID string `json:"technicianId" validate:"required"`
}

type JobFilter struct {
	Status       JobStatus   `json:"status,omitempty"`
	JobType      JobType     `json:"jobType,omitempty"`
	Priority     JobPriority `json:"priority,omitempty"`
	TechnicianID string      `json:"technicianId,omitempty"`
	Search       string      `json:"search,omitempty"`
	FromDate     time.Time   `json:"fromDate,omitempty"`
	ToDate       time.Time   `json:"toDate,omitempty"`
}

// AssignmentResult carries both sides of an allocation as read back from the store
type AssignmentResult struct {
	Job        *Job        `json:"job"`
	Technician *Technician `json:"technician,omitempty"`
}

// JobStatistics counts jobs per display status
type JobStatistics struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Scheduled int `json:"scheduled"`
	Completed int `json:"completed"`
	Overdue   int `json:"overdue"`
	Cancelled int `json:"cancelled"`
}

type Pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

type JobListResponse struct {
	Jobs       []*Job        `json:"jobs"`
	Pagination Pagination    `json:"pagination"`
	Statistics JobStatistics `json:"statistics"`
}
