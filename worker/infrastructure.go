package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobdispatch-backend/infrastructure"
	"jobdispatch-backend/models"
	"jobdispatch-backend/utils/logger"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// TableClient is the part of the DynamoDB client table setup needs
type TableClient interface {
	CreateTable(ctx context.Context, input *dynamodb.CreateTableInput) error
	DescribeTable(ctx context.Context, tableName string) (*dynamodb.DescribeTableOutput, error)
}

// TableSetup creates the jobs, technicians and counters tables when missing
type TableSetup struct {
	db     TableClient
	config *models.Config
	logger logger.Logger

	maxRetries   int
	retryDelay   time.Duration
	pollInterval time.Duration
	activeWait   time.Duration
}

func NewTableSetup(db TableClient, cfg *models.Config, log logger.Logger) *TableSetup {
	return &TableSetup{
		db:           db,
		config:       cfg,
		logger:       log,
		maxRetries:   3,
		retryDelay:   5 * time.Second,
		pollInterval: 2 * time.Second,
		activeWait:   2 * time.Minute,
	}
}

// TableNames returns the prefixed names of every configured table
func (ts *TableSetup) TableNames() []string {
	bases := ts.config.Tables
	if len(bases) == 0 {
		bases = infrastructure.SchemaNames()
	}
	names := make([]string, 0, len(bases))
	for _, base := range bases {
		names = append(names, fmt.Sprintf("%s_%s", ts.config.DynamoDBTablePrefix, base))
	}
	return names
}

// EnsureTables creates every missing table and waits for it to become
// active. It returns the names of the tables it created.
func (ts *TableSetup) EnsureTables(ctx context.Context) ([]string, error) {
	var created []string
	for _, name := range ts.TableNames() {
		made, err := ts.createTableWithRetry(ctx, name)
		if err != nil {
			return created, err
		}
		if made {
			created = append(created, name)
		}
	}
	if len(created) > 0 {
		ts.logger.Infof("Created tables: %s", strings.Join(created, ", "))
	}
	return created, nil
}

func (ts *TableSetup) createTableWithRetry(ctx context.Context, tableName string) (bool, error) {
	input, err := infrastructure.GetTables(tableName)
	if err != nil {
		return false, err
	}

	var lastErr error
	for attempt := 0; attempt <= ts.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * ts.retryDelay
			ts.logger.Infof("Retrying table creation for %s in %v (attempt %d/%d)", tableName, delay, attempt+1, ts.maxRetries+1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return false, ctx.Err()
			}
		}

		exists, err := ts.tableExists(ctx, tableName)
		if err != nil {
			ts.logger.Errorf("Failed to check if table %s exists: %v", tableName, err)
			lastErr = err
			continue
		}
		if exists {
			ts.logger.Debugf("Table %s already exists", tableName)
			return false, nil
		}

		if err := ts.db.CreateTable(ctx, input); err != nil {
			if isResourceInUse(err) {
				// another replica got there first
				return false, ts.waitForActive(ctx, tableName)
			}
			ts.logger.Errorf("Attempt %d failed to create table %s: %v", attempt+1, tableName, err)
			lastErr = err
			continue
		}

		ts.logger.Infof("Table %s created, waiting for it to become active", tableName)
		return true, ts.waitForActive(ctx, tableName)
	}

	return false, fmt.Errorf("failed to create table %s after %d attempts: %w", tableName, ts.maxRetries+1, lastErr)
}

func (ts *TableSetup) waitForActive(ctx context.Context, tableName string) error {
	deadline := time.Now().Add(ts.activeWait)
	for {
		out, err := ts.db.DescribeTable(ctx, tableName)
		if err != nil && !isTableNotFoundError(err) {
			return fmt.Errorf("failed to describe table %s: %w", tableName, err)
		}
		if err == nil && out.Table != nil && out.Table.TableStatus == types.TableStatusActive {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("table %s not active after %s", tableName, ts.activeWait)
		}
		select {
		case <-time.After(ts.pollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (ts *TableSetup) tableExists(ctx context.Context, tableName string) (bool, error) {
	_, err := ts.db.DescribeTable(ctx, tableName)
	if err != nil {
		if isTableNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// isTableNotFoundError checks if error indicates table not found
func isTableNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if apiErrorCode(err) == "ResourceNotFoundException" {
		return true
	}

	// DynamoDB Local does not always return a typed error
	errorStr := err.Error()
	return strings.Contains(errorStr, "ResourceNotFoundException") ||
		strings.Contains(errorStr, "Cannot do operations on a non-existent table")
}

func isResourceInUse(err error) bool {
	return apiErrorCode(err) == "ResourceInUseException"
}
