package worker

import (
	"fmt"

	"jobdispatch-backend/utils/logger"
)

// Service wraps the maintenance worker for main and the health endpoint
type Service struct {
	worker *Worker
	logger logger.Logger
}

func NewService(w *Worker, log logger.Logger) *Service {
	return &Service{worker: w, logger: log}
}

// StartInBackground starts the scheduler; cron runs tasks on its own goroutines
func (s *Service) StartInBackground() error {
	s.logger.Info("Starting maintenance worker service in background")
	if err := s.worker.Start(); err != nil {
		return fmt.Errorf("failed to start maintenance worker: %w", err)
	}
	return nil
}

func (s *Service) Stop() error {
	s.logger.Info("Stopping maintenance worker service")
	return s.worker.Stop()
}

// GetHealthStatus returns a health status for monitoring
func (s *Service) GetHealthStatus() map[string]interface{} {
	status := s.worker.Status()
	return map[string]interface{}{
		"healthy":        status.Healthy(),
		"worker_running": s.worker.IsRunning(),
		"tasks":          status.Snapshot(),
	}
}
