package shipping

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// StageCode identifies a machine-readable outcome of one orchestration stage.
type StageCode string

const (
	CodeThrottled            StageCode = "SPAPI_THROTTLED"
	CodeOptionsProcessing    StageCode = "PACKING_OPTIONS_PROCESSING"
	CodeOptionsNotAvailable  StageCode = "PACKING_OPTIONS_NOT_AVAILABLE"
	CodeGroupsProcessing     StageCode = "PACKING_GROUPS_PROCESSING"
	CodeGroupsNotReady       StageCode = "PACKING_GROUPS_NOT_READY"
	CodeQuantityMismatch     StageCode = "PACKING_QTY_MISMATCH"
	CodePlacementConfirmed   StageCode = "PLACEMENT_ALREADY_CONFIRMED"
	CodeBoxesNotReady        StageCode = "BOXES_NOT_READY"
	CodeListPackingFailed    StageCode = "SPAPI_LIST_PACKING_FAILED"
	CodePlanCheckFailed      StageCode = "SPAPI_PLAN_CHECK_FAILED"
	CodeInvalidPackaging     StageCode = "PACKING_INVALID_PACKAGING"
	CodeCredentialExchange   StageCode = "SPAPI_CREDENTIAL_EXCHANGE_FAILED"
	CodeIntegrationMissing   StageCode = "SELLER_INTEGRATION_MISSING"
	CodeSubmitPackingFailed  StageCode = "SPAPI_SUBMIT_PACKING_FAILED"
)

// StageError is the typed result every orchestration stage returns on a
// non-success path. Callers branch on Code; Message is human-readable.
type StageError struct {
	Code       StageCode
	Message    string
	RetryAfter time.Duration
	Mismatches []QuantityMismatch
	Hint       string
	cause      error
}

func (e *StageError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StageError) Unwrap() error { return e.cause }

// Retryable reports whether the caller may re-invoke the same stage after
// a delay and expect a different outcome.
func (e *StageError) Retryable() bool {
	switch e.Code {
	case CodeThrottled, CodeOptionsProcessing, CodeGroupsProcessing, CodeBoxesNotReady:
		return true
	case CodeListPackingFailed, CodePlanCheckFailed, CodeSubmitPackingFailed:
		return true
	default:
		return false
	}
}

// NewStageError creates a StageError with the given code and message.
func NewStageError(code StageCode, message string) *StageError {
	return &StageError{Code: code, Message: message}
}

// WrapStageError creates a StageError that preserves the underlying cause.
func WrapStageError(code StageCode, message string, cause error) *StageError {
	return &StageError{Code: code, Message: message, cause: cause}
}

// NewThrottled creates the throttled signal with the server-suggested delay.
// A non-positive delay falls back to one second so callers always receive a
// positive wait.
func NewThrottled(retryAfter time.Duration) *StageError {
	if retryAfter <= 0 {
		retryAfter = time.Second
	}
	return &StageError{
		Code:       CodeThrottled,
		Message:    "remote platform is rate limiting this plan",
		RetryAfter: retryAfter,
	}
}

// NewQuantityMismatch creates the blocking reconciliation failure naming
// every offending SKU.
func NewQuantityMismatch(mismatches []QuantityMismatch) *StageError {
	skus := make([]string, 0, len(mismatches))
	for _, m := range mismatches {
		skus = append(skus, m.SKU)
	}
	return &StageError{
		Code:       CodeQuantityMismatch,
		Message:    fmt.Sprintf("assembled quantities do not match confirmed intake for: %s", strings.Join(skus, ", ")),
		Mismatches: mismatches,
	}
}

// NewPlacementConfirmed creates the terminal conflict for packing submitted
// after placement was locked on the remote side.
func NewPlacementConfirmed() *StageError {
	return &StageError{
		Code:    CodePlacementConfirmed,
		Message: "placement is already confirmed for this plan; packing information must be set before placement confirmation",
		Hint:    "start a new inbound plan to change packing",
	}
}

// NewOptionsNotAvailable creates the terminal condition for a plan the
// platform declines to offer packing options for.
func NewOptionsNotAvailable() *StageError {
	return &StageError{
		Code:    CodeOptionsNotAvailable,
		Message: "the platform does not offer packing options for this plan",
		Hint:    "start a new inbound plan",
	}
}

// AsStageError extracts a StageError from an error chain.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
