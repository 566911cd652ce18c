package services

import (
	"context"
	"errors"
	"strings"

	"jobdispatch-backend/models"
	"jobdispatch-backend/repository"
	"jobdispatch-backend/utils/logger"
)

type TechnicianService struct {
	techRepo       repository.TechnicianRepositoryInterface
	jobRepo        repository.JobRepositoryInterface
	defaultMaxJobs int
	logger         logger.Logger
}

func NewTechnicianService(
	techRepo repository.TechnicianRepositoryInterface,
	jobRepo repository.JobRepositoryInterface,
	config *models.Config,
	logger logger.Logger,
) *TechnicianService {
	maxJobs := models.DefaultMaxJobs
	if config != nil && config.DefaultMaxJobs > 0 {
		maxJobs = config.DefaultMaxJobs
	}
	return &TechnicianService{
		techRepo:       techRepo,
		jobRepo:        jobRepo,
		defaultMaxJobs: maxJobs,
		logger:         logger,
	}
}

func cleanSpecialties(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}
	return out
}

func (s *TechnicianService) CreateTechnician(ctx context.Context, req *models.CreateTechnicianRequest) (*models.TechnicianView, error) {
	if req == nil {
		return nil, validationError("technician request is required", nil)
	}

	fields := FieldErrors{}
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" {
		fields.Add("name", "name is required")
	}
	if email == "" {
		fields.Add("email", "email is required")
	}
	availability := req.Availability
	if availability == "" {
		availability = models.AvailabilityAvailable
	} else if !availability.IsValid() {
		fields.Add("availability", "unknown availability")
	}
	if req.MaxJobs < 0 {
		fields.Add("maxJobs", "must be at least 1")
	}
	if err := fields.Err("invalid technician"); err != nil {
		return nil, err
	}

	maxJobs := req.MaxJobs
	if maxJobs == 0 {
		maxJobs = s.defaultMaxJobs
	}

	technician, err := s.techRepo.CreateTechnician(ctx, &models.Technician{
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		Experience:   req.Experience,
		Availability: availability,
		MaxJobs:      maxJobs,
		Specialties:  cleanSpecialties(req.Specialties),
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, validationError("invalid technician", map[string]string{"email": "a technician with this email already exists"})
	}
	if err != nil {
		return nil, storeError(err, "failed to create technician")
	}
	return ViewTechnician(technician), nil
}

func (s *TechnicianService) GetTechnician(ctx context.Context, id string) (*models.TechnicianView, error) {
	technician, err := s.techRepo.GetTechnician(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("technician %s not found", id)
	}
	if err != nil {
		return nil, storeError(err, "failed to load technician")
	}
	return ViewTechnician(technician), nil
}

func (s *TechnicianService) GetTechnicians(ctx context.Context, filter models.TechnicianFilter) ([]*models.TechnicianView, error) {
	technicians, err := s.techRepo.GetTechnicians(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list technicians")
	}

	filtered := FilterTechnicians(technicians, filter)
	views := make([]*models.TechnicianView, 0, len(filtered))
	for _, t := range filtered {
		views = append(views, ViewTechnician(t))
	}
	return views, nil
}

// UpdateTechnician changes profile fields. Available and Busy are re-derived
// from the technician's load; Unavailable and On Leave are kept as given.
func (s *TechnicianService) UpdateTechnician(ctx context.Context, id string, req *models.UpdateTechnicianRequest) (*models.TechnicianView, error) {
	if req == nil {
		return nil, validationError("technician update is required", nil)
	}

	existing, err := s.techRepo.GetTechnician(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("technician %s not found", id)
	}
	if err != nil {
		return nil, storeError(err, "failed to load technician")
	}

	fields := FieldErrors{}
	updates := map[string]interface{}{}
	next := *existing

	if name := strings.TrimSpace(req.Name); name != "" {
		updates["name"] = name
	}
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" {
		updates["email"] = email
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Experience != nil {
		if *req.Experience < 0 {
			fields.Add("experience", "must not be negative")
		}
		updates["experience"] = *req.Experience
	}
	if req.MaxJobs != nil {
		if *req.MaxJobs < 1 {
			fields.Add("maxJobs", "must be at least 1")
		}
		next.MaxJobs = *req.MaxJobs
		updates["maxJobs"] = *req.MaxJobs
	}
	if req.Specialties != nil {
		updates["specialties"] = cleanSpecialties(req.Specialties)
	}
	if req.Availability != "" {
		if !req.Availability.IsValid() {
			fields.Add("availability", "unknown availability")
		}
		next.Availability = req.Availability
	}
	if err := fields.Err("invalid technician update"); err != nil {
		return nil, err
	}

	if req.Availability != "" || req.MaxJobs != nil {
		if derived := DeriveAvailability(&next); derived != existing.Availability {
			updates["availability"] = derived
		}
	}
	if len(updates) == 0 {
		return ViewTechnician(existing), nil
	}

	updated, err := s.techRepo.UpdateTechnician(ctx, id, updates)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("technician %s not found", id)
	}
	if err != nil {
		return nil, storeError(err, "failed to update technician")
	}
	s.logger.Infof("Technician %s updated (%d fields)", id, len(updates))
	return ViewTechnician(updated), nil
}

// ReconcileCapacity recounts every technician's active jobs and rewrites
// counters that drifted. A technician changed during the pass is skipped
// and picked up on the next run.
func (s *TechnicianService) ReconcileCapacity(ctx context.Context) (*ReconcileReport, error) {
	technicians, err := s.techRepo.GetTechnicians(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list technicians")
	}

	report := &ReconcileReport{}
	for _, t := range technicians {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		jobs, err := s.jobRepo.GetJobsByTechnician(ctx, t.ID)
		if err != nil {
			s.logger.Warnf("Skipping technician %s, jobs unavailable: %v", t.ID, err)
			report.Skipped++
			continue
		}

		active := 0
		for _, job := range jobs {
			if CountsTowardLoad(job) && job.AssignedTechnicianID() == t.ID {
				active++
			}
		}

		next := *t
		next.CurrentJobs = active
		availability := DeriveAvailability(&next)
		if active == t.CurrentJobs && availability == t.Availability {
			continue
		}

		if err := s.techRepo.SetCurrentJobs(ctx, t.ID, t.CurrentJobs, active, availability); err != nil {
			s.logger.Warnf("Technician %s changed during reconciliation: %v", t.ID, err)
			report.Skipped++
			continue
		}
		s.logger.WithFields(map[string]interface{}{
			"technician":   t.ID,
			"stored":       t.CurrentJobs,
			"actual":       active,
			"availability": availability,
		}).Warn("Corrected technician capacity drift")
		report.Corrected++
		report.Drifted = append(report.Drifted, t.ID)
	}
	return report, nil
}
