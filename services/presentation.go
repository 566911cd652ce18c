package services

import (
	"sort"
	"strings"
	"time"

	"jobdispatch-backend/models"
)

// Sort keys accepted by SortJobs
const (
	SortByPriorityKey = "priority"
	SortByDueDateKey  = "dueDate"
	SortByCreatedKey  = "createdAt"
)

var priorityRank = map[models.JobPriority]int{
	models.JobPriorityUrgent: 4,
	models.JobPriorityHigh:   3,
	models.JobPriorityMedium: 2,
	models.JobPriorityLow:    1,
}

// PriorityRank maps a priority to its sort weight; unknown priorities rank 0
func PriorityRank(p models.JobPriority) int {
	return priorityRank[p]
}

func cloneJobs(jobs []*models.Job) []*models.Job {
	out := make([]*models.Job, len(jobs))
	copy(out, jobs)
	return out
}

// SortByPriority returns a stably sorted copy of jobs
func SortByPriority(jobs []*models.Job, descending bool) []*models.Job {
	out := cloneJobs(jobs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := PriorityRank(out[i].Priority), PriorityRank(out[j].Priority)
		if descending {
			return a > b
		}
		return a < b
	})
	return out
}

// SortByDueDate returns a stably sorted copy of jobs. Jobs without a usable
// due date always sort last, whichever the direction.
func SortByDueDate(jobs []*models.Job, descending bool) []*models.Job {
	out := cloneJobs(jobs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DueDate, out[j].DueDate
		switch {
		case a.IsZero() && b.IsZero():
			return false
		case a.IsZero():
			return false
		case b.IsZero():
			return true
		}
		if descending {
			return a.After(b)
		}
		return a.Before(b)
	})
	return out
}

// SortJobs dispatches on a sort key; unknown keys sort newest first
func SortJobs(jobs []*models.Job, key, order string) []*models.Job {
	descending := strings.EqualFold(order, "desc")
	switch key {
	case SortByPriorityKey:
		return SortByPriority(jobs, descending)
	case SortByDueDateKey:
		return SortByDueDate(jobs, descending)
	default:
		out := cloneJobs(jobs)
		sort.SliceStable(out, func(i, j int) bool {
			if descending || order == "" {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
		return out
	}
}

// HasSkill reports whether t lists skill; "all" and "" match everyone
func HasSkill(t *models.Technician, skill string) bool {
	skill = strings.TrimSpace(skill)
	if skill == "" || strings.EqualFold(skill, "all") {
		return true
	}
	for _, s := range t.Specialties {
		if strings.EqualFold(strings.TrimSpace(s), skill) {
			return true
		}
	}
	return false
}

// FilterTechniciansBySkill returns the technicians having skill
func FilterTechniciansBySkill(technicians []*models.Technician, skill string) []*models.Technician {
	out := make([]*models.Technician, 0, len(technicians))
	for _, t := range technicians {
		if HasSkill(t, skill) {
			out = append(out, t)
		}
	}
	return out
}

// FilterTechnicians applies availability, skill and name/email search
func FilterTechnicians(technicians []*models.Technician, filter models.TechnicianFilter) []*models.Technician {
	query := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]*models.Technician, 0, len(technicians))
	for _, t := range FilterTechniciansBySkill(technicians, filter.Skill) {
		if filter.Availability != "" && t.Availability != filter.Availability {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(t.Name), query) &&
			!strings.Contains(strings.ToLower(t.Email), query) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesSearch(job *models.Job, query string) bool {
	return strings.Contains(strings.ToLower(job.PropertyAddress), query) ||
		strings.Contains(strings.ToLower(string(job.JobType)), query) ||
		strings.Contains(strings.ToLower(job.Description), query)
}

// SearchJobs keeps jobs whose address, type or description contains query,
// ignoring case
func SearchJobs(jobs []*models.Job, query string) []*models.Job {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return cloneJobs(jobs)
	}
	out := make([]*models.Job, 0, len(jobs))
	for _, job := range jobs {
		if matchesSearch(job, query) {
			out = append(out, job)
		}
	}
	return out
}

// FilterJobs applies a list filter. Status matches the display status.
func FilterJobs(jobs []*models.Job, filter models.JobFilter, now time.Time) []*models.Job {
	out := make([]*models.Job, 0, len(jobs))
	for _, job := range SearchJobs(jobs, filter.Search) {
		if filter.Status != "" && DisplayStatus(job, now) != filter.Status {
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
		out = append(out, job)
	}
	return out
}

// IsClaimable reports whether a technician may claim job
func IsClaimable(job *models.Job) bool {
	return job.Status == models.JobStatusPending && !job.IsAssigned()
}

// AvailableJobs lists claimable jobs, earliest due first
func AvailableJobs(jobs []*models.Job) []*models.Job {
	out := make([]*models.Job, 0, len(jobs))
	for _, job := range jobs {
		if IsClaimable(job) {
			out = append(out, job)
		}
	}
	return SortByDueDate(out, false)
}

// StatusCounts counts jobs per display status
func StatusCounts(jobs []*models.Job, now time.Time) models.JobStatistics {
	stats := models.JobStatistics{Total: len(jobs)}
	for _, job := range jobs {
		switch DisplayStatus(job, now) {
		case models.JobStatusPending:
			stats.Pending++
		case models.JobStatusScheduled:
			stats.Scheduled++
		case models.JobStatusCompleted:
			stats.Completed++
		case models.JobStatusOverdue:
			stats.Overdue++
		case models.JobStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

// Paginate slices jobs to the 1-based page. limit <= 0 means 10.
func Paginate(jobs []*models.Job, page, limit int) ([]*models.Job, models.Pagination) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	total := len(jobs)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return cloneJobs(jobs[start:end]), models.Pagination{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}
