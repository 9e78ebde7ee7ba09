package dynamodb

import (
	"errors"

	appErrors "pulse-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// classify maps a DynamoDB failure onto the application error taxonomy.
// Throttling and service errors become unavailable errors so callers see a
// 503 instead of a 500.
func classify(operation string, err error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return appErrors.ErrConcurrentModification
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException":
			return appErrors.NewUnavailableError("dynamodb").WithCause(err).WithCode(ae.ErrorCode())
		case "ServiceUnavailable", "InternalServerError":
			return appErrors.NewUnavailableError("dynamodb").WithCause(err).WithCode(ae.ErrorCode())
		case "ValidationException":
			return appErrors.NewValidationError(ae.ErrorMessage()).WithCause(err)
		}
	}

	return appErrors.NewDatabaseError(operation, err)
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
