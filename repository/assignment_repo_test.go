package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobdispatch-backend/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// AssignmentRepositoryTestSuite defines a test suite for AssignmentRepository
type AssignmentRepositoryTestSuite struct {
	suite.Suite
	ctx  context.Context
	db   *MockDatabaseClient
	repo *AssignmentRepository
}

func (suite *AssignmentRepositoryTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.db = &MockDatabaseClient{}
	suite.repo = NewAssignmentRepository(suite.db, &models.Config{DynamoDBTablePrefix: "test"}, newMockLogger())
}

func (suite *AssignmentRepositoryTestSuite) TearDownTest() {
	suite.db.AssertExpectations(suite.T())
}

func cancelled(codes ...string) error {
	reasons := make([]types.CancellationReason, len(codes))
	for i, code := range codes {
		reasons[i] = types.CancellationReason{Code: aws.String(code)}
	}
	return &types.TransactionCanceledException{Message: aws.String("cancelled"), CancellationReasons: reasons}
}

func (suite *AssignmentRepositoryTestSuite) assignMutation() *JobMutation {
	job := sampleJob("job-1", models.JobStatusScheduled, time.Now())
	job.AssignedTechnician = &models.TechnicianRef{ID: "t1", Name: "Alex"}
	return &JobMutation{
		Job:              job,
		ExpectedVersion:  4,
		ExpectedStatus:   models.JobStatusPending,
		ExpectUnassigned: true,
		Counters:         []CounterDelta{{TechnicianID: "t1", CurrentJobs: 1}},
	}
}

func (suite *AssignmentRepositoryTestSuite) TestApplyBuildsOneTransaction() {
	var captured []types.TransactWriteItem
	suite.db.On("TransactWrite", suite.ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).([]types.TransactWriteItem)
		}).Return(nil)

	mutation := suite.assignMutation()
	require.NoError(suite.T(), suite.repo.Apply(suite.ctx, mutation))

	require.Len(suite.T(), captured, 2)
	put := captured[0].Put
	require.NotNil(suite.T(), put)
	assert.Equal(suite.T(), "test_jobs", aws.ToString(put.TableName))
	assert.Equal(suite.T(),
		"#version = :version AND #status = :status AND attribute_not_exists(#tech)",
		aws.ToString(put.ConditionExpression))
	assert.Equal(suite.T(), &types.AttributeValueMemberN{Value: "4"}, put.ExpressionAttributeValues[":version"])
	assert.Equal(suite.T(), &types.AttributeValueMemberN{Value: "5"}, put.Item["version"])
	assert.Equal(suite.T(), &types.AttributeValueMemberS{Value: "t1"}, put.Item["technicianId"])

	update := captured[1].Update
	require.NotNil(suite.T(), update)
	assert.Equal(suite.T(), "test_technicians", aws.ToString(update.TableName))
	assert.Equal(suite.T(), "attribute_exists(#pk)", aws.ToString(update.ConditionExpression))

	assert.Equal(suite.T(), int64(5), mutation.Job.Version)
}

func (suite *AssignmentRepositoryTestSuite) TestApplyDecrementIsGuarded() {
	var captured []types.TransactWriteItem
	suite.db.On("TransactWrite", suite.ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).([]types.TransactWriteItem)
		}).Return(nil)

	job := sampleJob("job-1", models.JobStatusPending, time.Now())
	err := suite.repo.Apply(suite.ctx, &JobMutation{
		Job:             job,
		ExpectedVersion: 2,
		ExpectedStatus:  models.JobStatusScheduled,
		Counters: []CounterDelta{
			{TechnicianID: "t1", CurrentJobs: -1},
			{TechnicianID: "noop"},
		},
	})
	require.NoError(suite.T(), err)

	require.Len(suite.T(), captured, 2)
	assert.Equal(suite.T(), "attribute_exists(#pk) AND (#cur >= :need)", aws.ToString(captured[1].Update.ConditionExpression))
	assert.Equal(suite.T(), &types.AttributeValueMemberN{Value: "1"}, captured[1].Update.ExpressionAttributeValues[":need"])
	_, hasTech := captured[0].Put.Item["technicianId"]
	assert.False(suite.T(), hasTech)
}

func (suite *AssignmentRepositoryTestSuite) TestApplyNewJob() {
	var captured []types.TransactWriteItem
	suite.db.On("TransactWrite", suite.ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).([]types.TransactWriteItem)
		}).Return(nil)

	job := &models.Job{JobNumber: "JOB-000010", Status: models.JobStatusScheduled,
		AssignedTechnician: &models.TechnicianRef{ID: "t1", Name: "Alex"}}
	err := suite.repo.Apply(suite.ctx, &JobMutation{
		Job:      job,
		IsNew:    true,
		Counters: []CounterDelta{{TechnicianID: "t1", CurrentJobs: 1}},
	})
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "attribute_not_exists(#id)", aws.ToString(captured[0].Put.ConditionExpression))
	assert.NotEmpty(suite.T(), job.ID)
	assert.Equal(suite.T(), int64(1), job.Version)
	assert.False(suite.T(), job.CreatedAt.IsZero())
}

func (suite *AssignmentRepositoryTestSuite) TestApplyJobConditionFailed() {
	suite.db.On("TransactWrite", suite.ctx, mock.Anything).Return(cancelled("ConditionalCheckFailed", "None"))

	mutation := suite.assignMutation()
	err := suite.repo.Apply(suite.ctx, mutation)
	assert.ErrorIs(suite.T(), err, ErrJobChanged)
	assert.Equal(suite.T(), int64(1), mutation.Job.Version)
}

func (suite *AssignmentRepositoryTestSuite) TestApplyTechnicianConditionFailed() {
	suite.db.On("TransactWrite", suite.ctx, mock.Anything).Return(cancelled("None", "None", "ConditionalCheckFailed"))

	err := suite.repo.Apply(suite.ctx, &JobMutation{
		Job:             sampleJob("job-1", models.JobStatusScheduled, time.Now()),
		ExpectedVersion: 1,
		ExpectedStatus:  models.JobStatusScheduled,
		Counters: []CounterDelta{
			{TechnicianID: "old", CurrentJobs: -1},
			{TechnicianID: "new", CurrentJobs: 1},
		},
	})

	var techErr *TechnicianWriteError
	require.ErrorAs(suite.T(), err, &techErr)
	assert.Equal(suite.T(), "new", techErr.TechnicianID)
}

func (suite *AssignmentRepositoryTestSuite) TestApplyPassesThroughOtherErrors() {
	suite.db.On("TransactWrite", suite.ctx, mock.Anything).Return(errors.New("network down"))

	err := suite.repo.Apply(suite.ctx, suite.assignMutation())
	require.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "network down")
}

func (suite *AssignmentRepositoryTestSuite) TestApplyRequiresJob() {
	assert.Error(suite.T(), suite.repo.Apply(suite.ctx, &JobMutation{}))
}

func TestAssignmentRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(AssignmentRepositoryTestSuite))
}
