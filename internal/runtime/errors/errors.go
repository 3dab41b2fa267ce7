package errors

import (
	sterrors "errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidState       = sterrors.New("resourcewatch: no active watch session")
	ErrSessionActive      = sterrors.New("resourcewatch: watch session already established")
	ErrTargetRequired     = sterrors.New("resourcewatch: target is required")
	ErrCallbackRequired   = sterrors.New("resourcewatch: onAvailable callback is required")
	ErrSinkRequired       = sterrors.New("resourcewatch: delivery sink is required")
	ErrHubRequired        = sterrors.New("resourcewatch: event hub is required")
	ErrPublisherRequired  = sterrors.New("resourcewatch: publisher is required")
	ErrTopicRequired      = sterrors.New("resourcewatch: topic is required")
	ErrAlreadyInitialized = sterrors.New("resourcewatch: adapter already initialized")
	ErrAdapterDestroyed   = sterrors.New("resourcewatch: adapter destroyed")
	ErrConfigRequired     = sterrors.New("resourcewatch: config is required")
	ErrLoggerRequired     = sterrors.New("resourcewatch: logger is required")
	ErrUnknownCodec       = sterrors.New("resourcewatch: unknown codec")
	ErrTargetNotWatched   = sterrors.New("resourcewatch: target is not being watched")
	ErrServiceClosed      = sterrors.New("resourcewatch: service closed")
)

// ConfigValidationError lists every problem found while validating a config.
type ConfigValidationError struct {
	Problems []string
}

func (e *ConfigValidationError) Error() string {
	if e == nil || len(e.Problems) == 0 {
		return "resourcewatch: invalid config"
	}
	return fmt.Sprintf("resourcewatch: invalid config: %s", strings.Join(e.Problems, "; "))
}

// NewConfigValidationError collects the messages of errs. Nil entries are skipped
// and nil is returned when nothing remains.
func NewConfigValidationError(errs ...error) error {
	var problems []string
	for _, err := range errs {
		if err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return &ConfigValidationError{Problems: problems}
}
