package repository

import (
	"jobdispatch-backend/dal"
	"jobdispatch-backend/models"
	"jobdispatch-backend/utils/logger"
)

type Repository struct {
	Job        *JobRepository
	Technician *TechnicianRepository
	Assignment *AssignmentRepository
	Report     *ReportRepository
	Sequence   *SequenceRepository
}

// NewRepository wires every repository over the shared clients. rdb may be
// nil when Redis is not configured.
func NewRepository(db dal.DatabaseClientInterface, store dal.ObjectStoreInterface, rdb Incrementer, cfg *models.Config, log logger.Logger) *Repository {
	return &Repository{
		Job:        NewJobRepository(db, cfg, log),
		Technician: NewTechnicianRepository(db, cfg, log),
		Assignment: NewAssignmentRepository(db, cfg, log),
		Report:     NewReportRepository(store, log),
		Sequence:   NewSequenceRepository(rdb, db, cfg, log),
	}
}

func (r *Repository) GetJobRepository() JobRepositoryInterface {
	return r.Job
}

func (r *Repository) GetTechnicianRepository() TechnicianRepositoryInterface {
	return r.Technician
}

func (r *Repository) GetAssignmentRepository() AssignmentRepositoryInterface {
	return r.Assignment
}

func (r *Repository) GetReportRepository() ReportRepositoryInterface {
	return r.Report
}

func (r *Repository) GetSequenceRepository() SequenceRepositoryInterface {
	return r.Sequence
}
