package services

import (
	"jobdispatch-backend/models"
	"jobdispatch-backend/repository"
	"jobdispatch-backend/utils/logger"
)

// Service implements ServiceContainerInterface
type Service struct {
	jobService        JobServiceInterface
	allocationService AllocationServiceInterface
	completionService CompletionServiceInterface
	technicianService TechnicianServiceInterface
}

// NewService creates a new service container with all dependencies injected
func NewService(
	repoContainer repository.RepositoryContainerInterface,
	guard ActionGuard,
	logger logger.Logger,
	config *models.Config,
) ServiceContainerInterface {
	jobRepo := repoContainer.GetJobRepository()
	techRepo := repoContainer.GetTechnicianRepository()
	assignRepo := repoContainer.GetAssignmentRepository()

	return &Service{
		jobService:        NewJobService(jobRepo, techRepo, assignRepo, repoContainer.GetSequenceRepository(), logger),
		allocationService: NewAllocationService(jobRepo, techRepo, assignRepo, guard, logger),
		completionService: NewCompletionService(jobRepo, techRepo, assignRepo, repoContainer.GetReportRepository(), guard, config, logger),
		technicianService: NewTechnicianService(techRepo, jobRepo, config, logger),
	}
}

// GetJobService returns the job service interface
func (s *Service) GetJobService() JobServiceInterface {
	return s.jobService
}

// GetAllocationService returns the allocation service interface
func (s *Service) GetAllocationService() AllocationServiceInterface {
	return s.allocationService
}

// GetCompletionService returns the completion service interface
func (s *Service) GetCompletionService() CompletionServiceInterface {
	return s.completionService
}

// GetTechnicianService returns the technician service interface
func (s *Service) GetTechnicianService() TechnicianServiceInterface {
	return s.technicianService
}
