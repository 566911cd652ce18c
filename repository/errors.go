package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a key does not resolve to an item
	ErrNotFound = errors.New("item not found")
	// ErrJobChanged means the job no longer matches what the caller read
	ErrJobChanged = errors.New("job changed since it was read")
	// ErrDuplicate is returned when a unique attribute is already taken
	ErrDuplicate = errors.New("already exists")
)

// TechnicianWriteError reports a technician counter update whose condition
// failed: the technician was removed or its counter would go negative.
type TechnicianWriteError struct {
	TechnicianID string
}

func (e *TechnicianWriteError) Error() string {
	return fmt.Sprintf("technician %s rejected the counter update", e.TechnicianID)
}
