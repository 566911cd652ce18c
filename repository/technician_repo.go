package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobdispatch-backend/dal"
	"jobdispatch-backend/models"
	"jobdispatch-backend/utils"
	"jobdispatch-backend/utils/logger"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const technicianEmailIndex = "email-index"

type TechnicianRepository struct {
	db     dal.DatabaseClientInterface
	config *models.Config
	logger logger.Logger
}

// NewTechnicianRepository creates a new technician repository
func NewTechnicianRepository(db dal.DatabaseClientInterface, cfg *models.Config, log logger.Logger) *TechnicianRepository {
	return &TechnicianRepository{
		db:     db,
		config: cfg,
		logger: log,
	}
}

func (r *TechnicianRepository) CreateTechnician(ctx context.Context, technician *models.Technician) (*models.Technician, error) {
	var existing []*models.Technician
	err := r.db.QueryByIndex(ctx, r.config.TechniciansTable(), technicianEmailIndex, "email", technician.Email, &existing)
	if err == nil && len(existing) > 0 {
		return nil, fmt.Errorf("technician with email %s: %w", technician.Email, ErrDuplicate)
	}

	now := time.Now().UTC()
	technician.ID = utils.GenerateUUID()
	technician.CreatedAt = now
	technician.UpdatedAt = now
	technician.CurrentJobs = 0
	if technician.Specialties == nil {
		technician.Specialties = []string{}
	}

	if err := r.db.PutItem(ctx, r.config.TechniciansTable(), technician); err != nil {
		r.logger.Errorf("Failed to create technician: %v", err)
		return nil, err
	}

	r.logger.Infof("Technician created successfully: %s", technician.ID)
	return technician, nil
}

func (r *TechnicianRepository) GetTechnician(ctx context.Context, id string) (*models.Technician, error) {
	if id == "" {
		return nil, errors.New("technician ID is required")
	}

	technician := models.Technician{}
	err := r.db.GetItem(ctx, models.QueryConfig{
		TableName: r.config.TechniciansTable(),
		KeyName:   "id",
		KeyValue:  id,
		KeyType:   models.StringType,
	}, &technician)
	if err != nil {
		return nil, fmt.Errorf("failed to get technician %s: %w", id, err)
	}
	if technician.ID == "" {
		return nil, ErrNotFound
	}
	return &technician, nil
}

func (r *TechnicianRepository) GetTechnicians(ctx context.Context) ([]*models.Technician, error) {
	var technicians []*models.Technician
	if err := r.db.ScanTable(ctx, r.config.TechniciansTable(), &technicians); err != nil {
		r.logger.Errorf("Failed to list technicians: %v", err)
		return nil, err
	}
	return technicians, nil
}

// UpdateTechnician sets profile attributes. currentJobs is owned by the
// assignment transactions and is rejected here.
func (r *TechnicianRepository) UpdateTechnician(ctx context.Context, id string, updates map[string]interface{}) (*models.Technician, error) {
	if _, ok := updates["currentJobs"]; ok {
		return nil, errors.New("currentJobs cannot be updated directly")
	}
	updates["updatedAt"] = time.Now().UTC()

	if err := r.db.UpdateItem(ctx, r.config.TechniciansTable(), "id", id, updates); err != nil {
		if dal.IsConditionalCheckFailed(err) {
			return nil, ErrNotFound
		}
		r.logger.Errorf("Failed to update technician %s: %v", id, err)
		return nil, err
	}
	return r.GetTechnician(ctx, id)
}

// SetCurrentJobs overwrites the counter when it still holds expected. An
// empty availability leaves the label untouched.
func (r *TechnicianRepository) SetCurrentJobs(ctx context.Context, id string, expected, actual int, availability models.AvailabilityStatus) error {
	set := map[string]interface{}{
		"currentJobs": actual,
		"updatedAt":   time.Now().UTC(),
	}
	if availability != "" {
		set["availability"] = availability
	}

	item, err := dal.BuildCounterUpdate(r.config.TechniciansTable(), "id", id, nil, set, dal.Condition{
		Expression: "#expected = :expected",
		Names:      map[string]string{"#expected": "currentJobs"},
		Values:     map[string]interface{}{":expected": expected},
	})
	if err != nil {
		return err
	}

	if err := r.db.TransactWrite(ctx, []types.TransactWriteItem{item}); err != nil {
		if failed, ok := dal.ConditionFailures(err); ok && len(failed) > 0 {
			return &TechnicianWriteError{TechnicianID: id}
		}
		return err
	}
	return nil
}
