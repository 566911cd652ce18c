package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"jobdispatch-backend/models"
	"jobdispatch-backend/repository"
	"jobdispatch-backend/utils/logger"

	"github.com/stretchr/testify/mock"
)

// MockLogger implements the logger interface for testing
type MockLogger struct {
	mock.Mock
}

func newMockLogger() *MockLogger {
	m := &MockLogger{}
	for _, method := range []string{"Debug", "Info", "Warn", "Error"} {
		m.On(method, mock.Anything).Return().Maybe()
		m.On(method+"f", mock.AnythingOfType("string"), mock.Anything).Return().Maybe()
	}
	m.On("WithFields", mock.Anything).Return().Maybe()
	return m
}

func (m *MockLogger) Debug(args ...interface{}) {
	m.Called(args...)
}

func (m *MockLogger) Debugf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Info(args ...interface{}) {
	m.Called(args...)
}

func (m *MockLogger) Infof(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(args ...interface{}) {
	m.Called(args...)
}

func (m *MockLogger) Warnf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Error(args ...interface{}) {
	m.Called(args...)
}

func (m *MockLogger) Errorf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Fatal(args ...interface{}) {
	m.Called(args...)
}

func (m *MockLogger) Fatalf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) WithFields(fields map[string]interface{}) logger.Logger {
	m.Called(fields)
	return m
}

// MockSequenceRepository implements repository.SequenceRepositoryInterface for testing
type MockSequenceRepository struct {
	mock.Mock
}

func (m *MockSequenceRepository) NextJobNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockReportRepository implements repository.ReportRepositoryInterface for testing
type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) SaveReport(ctx context.Context, jobID, fileName, contentType string, size int64, body io.Reader) (*models.ReportArtifact, error) {
	args := m.Called(ctx, jobID, fileName, contentType, size, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReportArtifact), args.Error(1)
}

func (m *MockReportRepository) DeleteReport(ctx context.Context, objectKey string) error {
	args := m.Called(ctx, objectKey)
	return args.Error(0)
}

// memoryStore keeps jobs and technicians in memory and enforces the same
// conditional writes as the DynamoDB repositories
type memoryStore struct {
	mu          sync.Mutex
	jobs        map[string]*models.Job
	technicians map[string]*models.Technician
	seq         int
	applyErr    error
	applies     int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		jobs:        map[string]*models.Job{},
		technicians: map[string]*models.Technician{},
	}
}

func cloneJob(job *models.Job) *models.Job {
	out := *job
	if job.AssignedTechnician != nil {
		ref := *job.AssignedTechnician
		out.AssignedTechnician = &ref
	}
	return &out
}

func cloneTechnician(t *models.Technician) *models.Technician {
	out := *t
	out.Specialties = append([]string(nil), t.Specialties...)
	return &out
}

func (s *memoryStore) putJob(job *models.Job) *models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.Version == 0 {
		job.Version = 1
	}
	s.jobs[job.ID] = cloneJob(job)
	return job
}

func (s *memoryStore) putTechnician(t *models.Technician) *models.Technician {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.technicians[t.ID] = cloneTechnician(t)
	return t
}

func (s *memoryStore) job(id string) *models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneJob(s.jobs[id])
}

func (s *memoryStore) technician(id string) *models.Technician {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTechnician(s.technicians[id])
}

func (s *memoryStore) CreateJob(ctx context.Context, job *models.Job) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == "" {
		s.seq++
		job.ID = fmt.Sprintf("job-%d", s.seq)
	}
	if _, exists := s.jobs[job.ID]; exists {
		return nil, repository.ErrJobChanged
	}
	job.Version = 1
	job.CreatedAt = time.Now().UTC()
	s.jobs[job.ID] = cloneJob(job)
	return job, nil
}

func (s *memoryStore) GetJob(ctx context.Context, key string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[key]; ok {
		return cloneJob(job), nil
	}
	for _, job := range s.jobs {
		if job.JobNumber == key {
			return cloneJob(job), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memoryStore) GetJobsByFilter(ctx context.Context, filter *models.JobFilter) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Job{}
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.JobType != "" && job.JobType != filter.JobType {
			continue
		}
		if filter.TechnicianID != "" && job.AssignedTechnicianID() != filter.TechnicianID {
			continue
		}
		out = append(out, cloneJob(job))
	}
	return out, nil
}

func (s *memoryStore) GetJobsByTechnician(ctx context.Context, technicianID string) ([]*models.Job, error) {
	return s.GetJobsByFilter(ctx, &models.JobFilter{TechnicianID: technicianID})
}

func (s *memoryStore) CreateTechnician(ctx context.Context, t *models.Technician) (*models.Technician, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.technicians {
		if existing.Email == t.Email {
			return nil, fmt.Errorf("technician with email %s: %w", t.Email, repository.ErrDuplicate)
		}
	}
	s.seq++
	t.ID = fmt.Sprintf("tech-%d", s.seq)
	t.CurrentJobs = 0
	s.technicians[t.ID] = cloneTechnician(t)
	return t, nil
}

func (s *memoryStore) GetTechnician(ctx context.Context, id string) (*models.Technician, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.technicians[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTechnician(t), nil
}

func (s *memoryStore) GetTechnicians(ctx context.Context) ([]*models.Technician, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Technician, 0, len(s.technicians))
	for _, t := range s.technicians {
		out = append(out, cloneTechnician(t))
	}
	return out, nil
}

func (s *memoryStore) UpdateTechnician(ctx context.Context, id string, updates map[string]interface{}) (*models.Technician, error) {
	s.mu.Lock()
	t, ok := s.technicians[id]
	if !ok {
		s.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	for key, value := range updates {
		switch key {
		case "name":
			t.Name = value.(string)
		case "email":
			t.Email = value.(string)
		case "phone":
			t.Phone = value.(string)
		case "experience":
			t.Experience = value.(int)
		case "maxJobs":
			t.MaxJobs = value.(int)
		case "availability":
			t.Availability = value.(models.AvailabilityStatus)
		case "specialties":
			t.Specialties = value.([]string)
		}
	}
	s.mu.Unlock()
	return s.GetTechnician(ctx, id)
}

func (s *memoryStore) SetCurrentJobs(ctx context.Context, id string, expected, actual int, availability models.AvailabilityStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.technicians[id]
	if !ok || t.CurrentJobs != expected {
		return &repository.TechnicianWriteError{TechnicianID: id}
	}
	t.CurrentJobs = actual
	if availability != "" {
		t.Availability = availability
	}
	return nil
}

func (s *memoryStore) Apply(ctx context.Context, mutation *repository.JobMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applies++
	if s.applyErr != nil {
		return s.applyErr
	}

	job := cloneJob(mutation.Job)
	if mutation.IsNew {
		if job.ID == "" {
			s.seq++
			job.ID = fmt.Sprintf("job-%d", s.seq)
		}
		if _, exists := s.jobs[job.ID]; exists {
			return repository.ErrJobChanged
		}
		job.Version = 1
	} else {
		stored, ok := s.jobs[job.ID]
		if !ok || stored.Version != mutation.ExpectedVersion || stored.Status != mutation.ExpectedStatus {
			return repository.ErrJobChanged
		}
		if mutation.ExpectUnassigned && stored.IsAssigned() {
			return repository.ErrJobChanged
		}
		job.Version = mutation.ExpectedVersion + 1
	}

	for _, delta := range mutation.Counters {
		if delta.CurrentJobs == 0 && delta.CompletedJobs == 0 {
			continue
		}
		t, ok := s.technicians[delta.TechnicianID]
		if !ok || (delta.CurrentJobs < 0 && int64(t.CurrentJobs) < -delta.CurrentJobs) {
			return &repository.TechnicianWriteError{TechnicianID: delta.TechnicianID}
		}
	}

	for _, delta := range mutation.Counters {
		if t, ok := s.technicians[delta.TechnicianID]; ok {
			t.CurrentJobs += int(delta.CurrentJobs)
			t.CompletedJobs += int(delta.CompletedJobs)
		}
	}
	s.jobs[job.ID] = cloneJob(job)
	*mutation.Job = *job
	return nil
}
