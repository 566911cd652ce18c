package dal

import (
	"errors"
	"fmt"
	"testing"

	"jobdispatch-backend/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// DALTestSuite defines a test suite for DAL request building and error decoding
type DALTestSuite struct {
	suite.Suite
}

type testItem struct {
	ID      string `dynamodbav:"id"`
	Status  string `dynamodbav:"status"`
	Version int64  `dynamodbav:"version"`
}

func (suite *DALTestSuite) TestKeyAttribute() {
	av, err := keyAttribute(models.QueryConfig{KeyName: "id", KeyValue: "abc", KeyType: models.StringType})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), &types.AttributeValueMemberS{Value: "abc"}, av)

	av, err = keyAttribute(models.QueryConfig{KeyName: "seq", KeyValue: "42", KeyType: models.NumberType})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), &types.AttributeValueMemberN{Value: "42"}, av)

	_, err = keyAttribute(models.QueryConfig{KeyName: "blob", KeyType: models.BinaryType})
	assert.Error(suite.T(), err)
}

func (suite *DALTestSuite) TestBuildSetExpressionIsDeterministic() {
	expr, names, values, err := buildSetExpression(map[string]interface{}{
		"status":  "Scheduled",
		"version": 3,
	})
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "SET #u0 = :u0, #u1 = :u1", expr)
	assert.Equal(suite.T(), "status", names["#u0"])
	assert.Equal(suite.T(), "version", names["#u1"])
	assert.Equal(suite.T(), &types.AttributeValueMemberS{Value: "Scheduled"}, values[":u0"])
	assert.Equal(suite.T(), &types.AttributeValueMemberN{Value: "3"}, values[":u1"])
}

func (suite *DALTestSuite) TestBuildSetExpressionEmpty() {
	_, _, _, err := buildSetExpression(nil)
	assert.Error(suite.T(), err)
}

func (suite *DALTestSuite) TestBuildPutWithoutCondition() {
	item, err := BuildPut("dev_jobs", testItem{ID: "j1", Status: "Pending", Version: 1}, Condition{})
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), item.Put)

	assert.Equal(suite.T(), "dev_jobs", aws.ToString(item.Put.TableName))
	assert.Nil(suite.T(), item.Put.ConditionExpression)
	assert.Equal(suite.T(), &types.AttributeValueMemberS{Value: "j1"}, item.Put.Item["id"])
}

func (suite *DALTestSuite) TestBuildPutWithCondition() {
	cond := Condition{
		Expression: "#v = :v AND #s = :s",
		Names:      map[string]string{"#v": "version", "#s": "status"},
		Values:     map[string]interface{}{":v": int64(1), ":s": "Pending"},
	}
	item, err := BuildPut("dev_jobs", testItem{ID: "j1", Status: "Scheduled", Version: 2}, cond)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "#v = :v AND #s = :s", aws.ToString(item.Put.ConditionExpression))
	assert.Equal(suite.T(), "version", item.Put.ExpressionAttributeNames["#v"])
	assert.Equal(suite.T(), &types.AttributeValueMemberN{Value: "1"}, item.Put.ExpressionAttributeValues[":v"])
	assert.Equal(suite.T(), &types.AttributeValueMemberS{Value: "Pending"}, item.Put.ExpressionAttributeValues[":s"])
}

func (suite *DALTestSuite) TestBuildCounterUpdate() {
	item, err := BuildCounterUpdate("dev_technicians", "id", "t1",
		map[string]int64{"currentJobs": -1, "completedJobs": 1},
		nil,
		Condition{
			Expression: "#cur > :zero",
			Names:      map[string]string{"#cur": "currentJobs"},
			Values:     map[string]interface{}{":zero": 0},
		})
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), item.Update)

	u := item.Update
	assert.Equal(suite.T(), "ADD #c0 :c0, #c1 :c1", aws.ToString(u.UpdateExpression))
	assert.Equal(suite.T(), "completedJobs", u.ExpressionAttributeNames["#c0"])
	assert.Equal(suite.T(), "currentJobs", u.ExpressionAttributeNames["#c1"])
	assert.Equal(suite.T(), &types.AttributeValueMemberN{Value: "1"}, u.ExpressionAttributeValues[":c0"])
	assert.Equal(suite.T(), &types.AttributeValueMemberN{Value: "-1"}, u.ExpressionAttributeValues[":c1"])
	assert.Equal(suite.T(), "attribute_exists(#pk) AND (#cur > :zero)", aws.ToString(u.ConditionExpression))
	assert.Equal(suite.T(), "id", u.ExpressionAttributeNames["#pk"])
	assert.Equal(suite.T(), &types.AttributeValueMemberS{Value: "t1"}, u.Key["id"])
}

func (suite *DALTestSuite) TestBuildCounterUpdateWithSet() {
	item, err := BuildCounterUpdate("dev_technicians", "id", "t1",
		map[string]int64{"currentJobs": 1},
		map[string]interface{}{"availability": "Busy"},
		Condition{})
	require.NoError(suite.T(), err)

	u := item.Update
	assert.Equal(suite.T(), "SET #u0 = :u0 ADD #c0 :c0", aws.ToString(u.UpdateExpression))
	assert.Equal(suite.T(), "attribute_exists(#pk)", aws.ToString(u.ConditionExpression))
	assert.Equal(suite.T(), &types.AttributeValueMemberS{Value: "Busy"}, u.ExpressionAttributeValues[":u0"])
}

func (suite *DALTestSuite) TestBuildCounterUpdateRequiresChanges() {
	_, err := BuildCounterUpdate("dev_technicians", "id", "t1", nil, nil, Condition{})
	assert.Error(suite.T(), err)
}

func (suite *DALTestSuite) TestConditionFailures() {
	err := fmt.Errorf("transact: %w", &types.TransactionCanceledException{
		Message: aws.String("Transaction cancelled"),
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("ConditionalCheckFailed")},
			{Code: aws.String("ConditionalCheckFailed")},
		},
	})

	failed, ok := ConditionFailures(err)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), []int{1, 2}, failed)

	_, ok = ConditionFailures(errors.New("boom"))
	assert.False(suite.T(), ok)
}

func (suite *DALTestSuite) TestIsConditionalCheckFailed() {
	err := fmt.Errorf("put: %w", &types.ConditionalCheckFailedException{Message: aws.String("failed")})
	assert.True(suite.T(), IsConditionalCheckFailed(err))
	assert.False(suite.T(), IsConditionalCheckFailed(errors.New("other")))
}

func (suite *DALTestSuite) TestIsTransient() {
	testCases := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"throttled", &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}, true},
		{"server fault", &smithy.GenericAPIError{Code: "Unknown", Fault: smithy.FaultServer}, true},
		{"client fault", &smithy.GenericAPIError{Code: "ValidationException", Fault: smithy.FaultClient}, false},
		{"conflicting transaction", &types.TransactionCanceledException{
			CancellationReasons: []types.CancellationReason{{Code: aws.String("TransactionConflict")}},
		}, true},
		{"condition failed", &types.TransactionCanceledException{
			CancellationReasons: []types.CancellationReason{{Code: aws.String("ConditionalCheckFailed")}},
		}, false},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			assert.Equal(suite.T(), tc.expected, IsTransient(tc.err))
		})
	}
}

func TestDALTestSuite(t *testing.T) {
	suite.Run(t, new(DALTestSuite))
}
