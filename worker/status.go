package worker

import (
	"sync"
	"time"
)

// TaskStatus is the outcome of a scheduled task's most recent runs
type TaskStatus struct {
	Name         string                 `json:"name"`
	Schedule     string                 `json:"schedule"`
	Running      bool                   `json:"running"`
	Runs         int                    `json:"runs"`
	Failures     int                    `json:"failures"`
	Skipped      int                    `json:"skipped"`
	LastStart    *time.Time             `json:"lastStart,omitempty"`
	LastEnd      *time.Time             `json:"lastEnd,omitempty"`
	LastDuration string                 `json:"lastDuration,omitempty"`
	LastError    string                 `json:"lastError,omitempty"`
	LastResult   map[string]interface{} `json:"lastResult,omitempty"`
}

// StatusTracker records task runs for the health endpoint
type StatusTracker struct {
	mu    sync.RWMutex
	tasks map[string]*TaskStatus
	now   func() time.Time
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{tasks: map[string]*TaskStatus{}, now: time.Now}
}

func (s *StatusTracker) task(name string) *TaskStatus {
	t, ok := s.tasks[name]
	if !ok {
		t = &TaskStatus{Name: name}
		s.tasks[name] = t
	}
	return t
}

// Register records a task and its schedule before the first run
func (s *StatusTracker) Register(name, schedule string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.task(name).Schedule = schedule
}

func (s *StatusTracker) Started(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	t := s.task(name)
	t.Running = true
	t.LastStart = &now
}

// Finished closes the run opened by Started
func (s *StatusTracker) Finished(name string, result map[string]interface{}, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	t := s.task(name)
	t.Running = false
	t.Runs++
	t.LastEnd = &now
	if t.LastStart != nil {
		t.LastDuration = now.Sub(*t.LastStart).String()
	}
	t.LastResult = result
	t.LastError = ""
	if err != nil {
		t.Failures++
		t.LastError = err.Error()
	}
}

func (s *StatusTracker) Skipped(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.task(name).Skipped++
}

// Snapshot returns copies of every task status
func (s *StatusTracker) Snapshot() map[string]TaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]TaskStatus, len(s.tasks))
	for name, t := range s.tasks {
		out[name] = *t
	}
	return out
}

// Healthy is false when any task's latest run failed
func (s *StatusTracker) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.LastError != "" {
			return false
		}
	}
	return true
}
