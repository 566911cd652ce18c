package dal

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

const codeConditionalCheckFailed = "ConditionalCheckFailed"

// transientCodes are DynamoDB error codes worth retrying
var transientCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"ThrottlingException":                    true,
	"RequestLimitExceeded":                   true,
	"InternalServerError":                    true,
	"ServiceUnavailable":                     true,
	"TransactionConflictException":           true,
	"TransactionInProgressException":         true,
}

// IsConditionalCheckFailed reports whether a single-item write failed its condition
func IsConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// ConditionFailures returns the indexes of transaction items whose condition
// failed. ok is false when err is not a cancelled transaction.
func ConditionFailures(err error) (failed []int, ok bool) {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return nil, false
	}
	for i, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) == codeConditionalCheckFailed {
			failed = append(failed, i)
		}
	}
	return failed, true
}

// IsTransient reports whether err is a throttling or service side failure,
// including transactions cancelled only because of a concurrent transaction.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			code := aws.ToString(reason.Code)
			if code == "TransactionConflict" || code == "ThrottlingError" || code == "ProvisionedThroughputExceeded" {
				return true
			}
		}
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if transientCodes[apiErr.ErrorCode()] {
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}
	return false
}
