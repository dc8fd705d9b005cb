package aws

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// ErrStackNotFound is returned when a stack does not exist.
var ErrStackNotFound = errors.New("stack not found")

// errorCode returns the API error code of err, or "".
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// errorMessage returns the API error message of err, or "".
func errorMessage(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorMessage()
	}
	return ""
}

// isStackNotFound checks if CloudFormation reported a missing stack. It has
// no dedicated error type: missing stacks are a ValidationError.
func isStackNotFound(err error) bool {
	return errorCode(err) == "ValidationError" && strings.Contains(errorMessage(err), "does not exist")
}

// isNoUpdates checks if an update was rejected because nothing changed.
func isNoUpdates(err error) bool {
	return errorCode(err) == "ValidationError" && strings.Contains(errorMessage(err), "No updates are to be performed")
}

// isThrottled checks if the call was rate limited and is worth retrying.
func isThrottled(err error) bool {
	switch errorCode(err) {
	case "Throttling", "ThrottlingException", "TooManyRequestsException", "RequestLimitExceeded":
		return true
	}
	return false
}
