package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/liberandum/internal/common"
)

var throttlingCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"ThrottlingException":                    true,
	"RequestLimitExceeded":                   true,
	"InternalServerError":                    true,
	"ServiceUnavailable":                     true,
}

// Translate maps SDK errors onto the common error taxonomy so services can
// match them with errors.Is. The original error stays wrapped.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(common.ErrorServiceUnavailable, err)
	}

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%w: %v", ErrConditionFailed, err)
	}
	var rnf *types.ResourceNotFoundException
	if errors.As(err, &rnf) {
		return errors.Join(common.ErrorNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if throttlingCodes[apiErr.ErrorCode()] || apiErr.ErrorFault() == smithy.FaultServer {
			return errors.Join(common.ErrorServiceUnavailable, err)
		}
		return err
	}

	// transport level failures never produced an API response
	return errors.Join(common.ErrorServiceUnavailable, err)
}

// ErrConditionFailed reports a failed conditional write.
var ErrConditionFailed = errors.New("condition check failed")

// ErrUnprocessed reports batch items DynamoDB kept rejecting.
var ErrUnprocessed = errors.Join(common.ErrorServiceUnavailable, errors.New("unprocessed batch items"))
