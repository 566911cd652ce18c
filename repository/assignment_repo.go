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

// CounterDelta is a change to one technician's counters
type CounterDelta struct {
	TechnicianID  string
	CurrentJobs   int64
	CompletedJobs int64
}

// JobMutation is a job write plus the counter changes it implies. The job
// write only succeeds if the stored job still has ExpectedVersion and
// ExpectedStatus, and no technician when ExpectUnassigned is set. IsNew
// instead requires that no job with the id exists yet.
type JobMutation struct {
	Job              *models.Job
	IsNew            bool
	ExpectedVersion  int64
	ExpectedStatus   models.JobStatus
	ExpectUnassigned bool
	Counters         []CounterDelta
}

type AssignmentRepository struct {
	db     dal.DatabaseClientInterface
	config *models.Config
	logger logger.Logger
}

func NewAssignmentRepository(db dal.DatabaseClientInterface, cfg *models.Config, log logger.Logger) *AssignmentRepository {
	return &AssignmentRepository{
		db:     db,
		config: cfg,
		logger: log,
	}
}

// Apply writes the job and every counter change in one transaction. On
// success mutation.Job carries the new version.
func (r *AssignmentRepository) Apply(ctx context.Context, mutation *JobMutation) error {
	if mutation == nil || mutation.Job == nil {
		return errors.New("mutation requires a job")
	}

	job := *mutation.Job
	job.Version = mutation.ExpectedVersion + 1
	job.UpdatedAt = time.Now().UTC()
	if mutation.IsNew {
		if job.ID == "" {
			job.ID = utils.GenerateUUID()
		}
		job.Version = 1
		job.CreatedAt = job.UpdatedAt
	}

	items, err := r.buildItems(&job, mutation)
	if err != nil {
		return err
	}

	if err := r.db.TransactWrite(ctx, items); err != nil {
		return r.decodeFailure(err, mutation)
	}

	*mutation.Job = job
	r.logger.WithFields(map[string]interface{}{
		"job_id":   job.ID,
		"status":   job.Status,
		"version":  job.Version,
		"counters": len(mutation.Counters),
	}).Info("Job mutation committed")
	return nil
}

func (r *AssignmentRepository) buildItems(job *models.Job, mutation *JobMutation) ([]types.TransactWriteItem, error) {
	cond := dal.Condition{
		Expression: "#version = :version AND #status = :status",
		Names:      map[string]string{"#version": "version", "#status": "status"},
		Values: map[string]interface{}{
			":version": mutation.ExpectedVersion,
			":status":  string(mutation.ExpectedStatus),
		},
	}
	if mutation.IsNew {
		cond = dal.Condition{
			Expression: "attribute_not_exists(#id)",
			Names:      map[string]string{"#id": "id"},
		}
	} else if mutation.ExpectUnassigned {
		cond.Expression += " AND attribute_not_exists(#tech)"
		cond.Names["#tech"] = "assignedTechnician"
	}

	put, err := dal.BuildPut(r.config.JobsTable(), toRecord(job), cond)
	if err != nil {
		return nil, err
	}
	items := []types.TransactWriteItem{put}

	for _, delta := range mutation.Counters {
		if delta.CurrentJobs == 0 && delta.CompletedJobs == 0 {
			continue
		}

		deltas := map[string]int64{}
		if delta.CurrentJobs != 0 {
			deltas["currentJobs"] = delta.CurrentJobs
		}
		if delta.CompletedJobs != 0 {
			deltas["completedJobs"] = delta.CompletedJobs
		}

		var counterCond dal.Condition
		if delta.CurrentJobs < 0 {
			counterCond = dal.Condition{
				Expression: "#cur >= :need",
				Names:      map[string]string{"#cur": "currentJobs"},
				Values:     map[string]interface{}{":need": -delta.CurrentJobs},
			}
		}

		update, err := dal.BuildCounterUpdate(r.config.TechniciansTable(), "id", delta.TechnicianID, deltas,
			map[string]interface{}{"updatedAt": job.UpdatedAt}, counterCond)
		if err != nil {
			return nil, err
		}
		items = append(items, update)
	}
	return items, nil
}

// decodeFailure maps cancelled transaction items back to the job or the
// technician they belong to
func (r *AssignmentRepository) decodeFailure(err error, mutation *JobMutation) error {
	failed, ok := dal.ConditionFailures(err)
	if !ok || len(failed) == 0 {
		return err
	}

	// item 0 is the job; the rest follow the non-empty counters in order
	technicians := make([]string, 0, len(mutation.Counters))
	for _, delta := range mutation.Counters {
		if delta.CurrentJobs != 0 || delta.CompletedJobs != 0 {
			technicians = append(technicians, delta.TechnicianID)
		}
	}

	for _, idx := range failed {
		if idx == 0 {
			r.logger.Warnf("Job %s changed concurrently (expected version %d)", mutation.Job.ID, mutation.ExpectedVersion)
			return ErrJobChanged
		}
	}
	idx := failed[0] - 1
	if idx >= 0 && idx < len(technicians) {
		r.logger.Warnf("Counter update rejected for technician %s", technicians[idx])
		return &TechnicianWriteError{TechnicianID: technicians[idx]}
	}
	return fmt.Errorf("transaction cancelled: %w", err)
}
