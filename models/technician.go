package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AvailabilityStatus is the operator-facing availability label of a technician
type AvailabilityStatus string

const (
	AvailabilityAvailable   AvailabilityStatus = "Available"
	AvailabilityBusy        AvailabilityStatus = "Busy"
	AvailabilityUnavailable AvailabilityStatus = "Unavailable"
	AvailabilityOnLeave     AvailabilityStatus = "On Leave"
)

func (a AvailabilityStatus) IsValid() bool {
	switch a {
	case AvailabilityAvailable, AvailabilityBusy, AvailabilityUnavailable, AvailabilityOnLeave:
		return true
	}
	return false
}

// DefaultMaxJobs is used when a technician is created without a capacity
const DefaultMaxJobs = 5

type Technician struct {
	ID            string             `json:"id" dynamodbav:"id"`
	Name          string             `json:"name" dynamodbav:"name"`
	Email         string             `json:"email" dynamodbav:"email"`
	Phone         string             `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
	Experience    int                `json:"experience" dynamodbav:"experience"`
	Availability  AvailabilityStatus `json:"availability" dynamodbav:"availability"`
	CurrentJobs   int                `json:"currentJobs" dynamodbav:"currentJobs"`
	MaxJobs       int                `json:"maxJobs" dynamodbav:"maxJobs"`
	CompletedJobs int                `json:"completedJobs" dynamodbav:"completedJobs"`
	AverageRating float64            `json:"averageRating" dynamodbav:"averageRating"`
	TotalRatings  int                `json:"totalRatings" dynamodbav:"totalRatings"`
	Specialties   []string           `json:"specialties" dynamodbav:"specialties"`
	CreatedAt     time.Time          `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt,omitempty" dynamodbav:"updatedAt,omitempty"`
}

// Ref returns the canonical reference stored on jobs
func (t *Technician) Ref() *TechnicianRef {
	return &TechnicianRef{ID: t.ID, Name: t.Name}
}

// TechnicianView is a technician annotated with its workload bucket
type TechnicianView struct {
	*Technician
	WorkloadLevel string `json:"workloadLevel"`
}

type CreateTechnicianRequest struct {
	Name         string             `json:"name" validate:"required,min=2,max=100"`
	Email        string             `json:"email" validate:"required,email"`
	Phone        string             `json:"phone,omitempty" validate:"omitempty,max=30"`
	Experience   int                `json:"experience" validate:"min=0,max=80"`
	Availability AvailabilityStatus `json:"availability,omitempty" validate:"omitempty,oneof=Available Busy Unavailable 'On Leave'"`
	MaxJobs      int                `json:"maxJobs,omitempty" validate:"omitempty,min=1,max=50"`
	Specialties  []string           `json:"specialties,omitempty"`
}

type UpdateTechnicianRequest struct {
	Name         string             `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Email        string             `json:"email,omitempty" validate:"omitempty,email"`
	Phone        *string            `json:"phone,omitempty" validate:"omitempty,max=30"`
	Experience   *int               `json:"experience,omitempty" validate:"omitempty,min=0,max=80"`
	Availability AvailabilityStatus `json:"availability,omitempty" validate:"omitempty,oneof=Available Busy Unavailable 'On Leave'"`
	MaxJobs      *int               `json:"maxJobs,omitempty" validate:"omitempty,min=1,max=50"`
	Specialties  []string           `json:"specialties,omitempty"`
}

type TechnicianFilter struct {
	Availability AvailabilityStatus `json:"availability,omitempty"`
	Skill        string             `json:"skill,omitempty"`
	Search       string             `json:"search,omitempty"`
}

// TechnicianRef is the canonical {id, displayName} pair a job holds for its
// technician. It accepts either a bare id string or an embedded technician
// object on input.
type TechnicianRef struct {
	ID   string `json:"id" dynamodbav:"id"`
	Name string `json:"name,omitempty" dynamodbav:"name,omitempty"`
}

func (r *TechnicianRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = TechnicianRef{}
		return nil
	}

	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = TechnicianRef{ID: strings.TrimSpace(id)}
		return nil
	}

	var obj struct {
		ID        string `json:"id"`
		MongoID   string `json:"_id"`
		Name      string `json:"name"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid technician reference: %w", err)
	}

	id := obj.ID
	if id == "" {
		id = obj.MongoID
	}
	name := obj.Name
	if name == "" {
		name = strings.TrimSpace(obj.FirstName + " " + obj.LastName)
	}
	*r = TechnicianRef{ID: strings.TrimSpace(id), Name: name}
	return nil
}

// OptionalTechnicianRef tracks whether the key was present in a partial
// update, and whether it was an explicit null.
type OptionalTechnicianRef struct {
	Set bool
	Ref *TechnicianRef
}

func (o *OptionalTechnicianRef) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Ref = nil
		return nil
	}

	var ref TechnicianRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return err
	}
	if ref.ID == "" {
		o.Ref = nil
		return nil
	}
	o.Ref = &ref
	return nil
}

func (o OptionalTechnicianRef) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Ref == nil {
		return []byte("null"), nil
	}
	return json.Marshal(o.Ref)
}

// Unassign builds an explicit null reference
func Unassign() OptionalTechnicianRef {
	return OptionalTechnicianRef{Set: true}
}

// AssignTo builds an explicit reference to technicianID
func AssignTo(technicianID string) OptionalTechnicianRef {
	return OptionalTechnicianRef{Set: true, Ref: &TechnicianRef{ID: technicianID}}
}
