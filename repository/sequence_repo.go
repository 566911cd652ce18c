package repository

import (
	"context"
	"fmt"

	"jobdispatch-backend/dal"
	"jobdispatch-backend/models"
	"jobdispatch-backend/utils/logger"

	"github.com/redis/go-redis/v9"
)

const jobSequenceKey = "seq:job"

// Incrementer is the slice of the Redis client used for sequences
type Incrementer interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// SequenceRepository numbers jobs from Redis when available, otherwise from
// an atomic counter item in DynamoDB
type SequenceRepository struct {
	redis  Incrementer
	db     dal.DatabaseClientInterface
	config *models.Config
	logger logger.Logger
}

func NewSequenceRepository(rdb Incrementer, db dal.DatabaseClientInterface, cfg *models.Config, log logger.Logger) *SequenceRepository {
	return &SequenceRepository{
		redis:  rdb,
		db:     db,
		config: cfg,
		logger: log,
	}
}

func (r *SequenceRepository) NextJobNumber(ctx context.Context) (string, error) {
	var seq int64
	var err error

	if r.redis != nil {
		seq, err = r.redis.Incr(ctx, jobSequenceKey).Result()
	} else {
		seq, err = r.db.IncrementCounter(ctx, r.config.CountersTable(), "name", "job", "value", 1)
	}
	if err != nil {
		r.logger.Errorf("Failed to allocate job number: %v", err)
		return "", fmt.Errorf("failed to allocate job number: %w", err)
	}

	return FormatJobNumber(seq), nil
}

// FormatJobNumber renders a sequence value as JOB-000042
func FormatJobNumber(seq int64) string {
	return fmt.Sprintf("JOB-%06d", seq)
}
