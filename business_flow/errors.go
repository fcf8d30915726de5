// Package businessflow contains the core business logic and use cases for content orchestration workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Trend and opportunity errors
	ErrInsufficientSignal     = errors.New("trend signal below scoring floor")
	ErrTrendNotFound          = errors.New("trend not found")
	ErrOpportunityNotFound    = errors.New("opportunity not found")
	ErrOpportunityNotPending  = errors.New("opportunity is not pending")
	ErrOpportunityExpired     = errors.New("opportunity has expired")
	ErrOpportunityInProgress  = errors.New("opportunity already has an active job")
	ErrTargetPlatformRequired = errors.New("at least one target platform is required")

	// Generation job errors
	ErrJobNotFound     = errors.New("generation job not found")
	ErrJobNotTerminal  = errors.New("generation job has not finished")
	ErrJobNotFailed    = errors.New("generation job is not in a failed state")
	ErrJobInterrupted  = errors.New("generation job was interrupted")
	ErrQueueFull       = errors.New("generation queue is full")
	ErrInvalidTier     = errors.New("invalid quality tier")
	ErrContentNotFound = errors.New("content item not found")

	// Upload errors
	ErrUploadNotFound       = errors.New("upload task not found")
	ErrBatchNotFound        = errors.New("upload batch not found")
	ErrPlatformNotSupported = errors.New("platform is not supported")
	ErrNoPlatformVariant    = errors.New("content has no variant for the platform")
	ErrScheduleInPast       = errors.New("scheduled time is in the past")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")

	ErrCacheNotAvailable = errors.New("cache not available")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsInsufficientSignal(err error) bool {
	return errors.Is(err, ErrInsufficientSignal)
}

func IsTrendNotFound(err error) bool {
	return errors.Is(err, ErrTrendNotFound)
}

func IsOpportunityNotFound(err error) bool {
	return errors.Is(err, ErrOpportunityNotFound)
}

func IsOpportunityNotPending(err error) bool {
	return errors.Is(err, ErrOpportunityNotPending)
}

func IsOpportunityExpired(err error) bool {
	return errors.Is(err, ErrOpportunityExpired)
}

func IsOpportunityInProgress(err error) bool {
	return errors.Is(err, ErrOpportunityInProgress)
}

func IsJobNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound)
}

func IsJobNotTerminal(err error) bool {
	return errors.Is(err, ErrJobNotTerminal)
}

func IsJobNotFailed(err error) bool {
	return errors.Is(err, ErrJobNotFailed)
}

func IsQueueFull(err error) bool {
	return errors.Is(err, ErrQueueFull)
}

func IsInvalidTier(err error) bool {
	return errors.Is(err, ErrInvalidTier)
}

func IsContentNotFound(err error) bool {
	return errors.Is(err, ErrContentNotFound)
}

func IsUploadNotFound(err error) bool {
	return errors.Is(err, ErrUploadNotFound)
}

func IsBatchNotFound(err error) bool {
	return errors.Is(err, ErrBatchNotFound)
}

func IsPlatformNotSupported(err error) bool {
	return errors.Is(err, ErrPlatformNotSupported)
}

func IsNoPlatformVariant(err error) bool {
	return errors.Is(err, ErrNoPlatformVariant)
}

func IsScheduleInPast(err error) bool {
	return errors.Is(err, ErrScheduleInPast)
}
