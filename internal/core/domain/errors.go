package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRateLimited          = errors.New("origin exceeded the request limit for the current window")
	ErrAPIDisabled          = errors.New("api disabled by kill switch")
	ErrTransientStore       = errors.New("store unavailable")
	ErrAlertDelivery        = errors.New("alert delivery failed")
	ErrSchemaNotInitialized = errors.New("database schema not initialized, run migrations")
	ErrSchemaOutdated       = errors.New("database schema outdated, run migrations")
)

// StoreError wraps a collaborator failure so callers can degrade without
// knowing which driver produced it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrTransientStore }

// NewStoreError returns nil when err is nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// SchemaError reports why the schema gate refused to serve.
type SchemaError struct {
	Reason   error
	Current  int
	Required int
}

func (e *SchemaError) Error() string {
	if errors.Is(e.Reason, ErrSchemaOutdated) {
		return fmt.Sprintf("%v (current=%d required=%d)", e.Reason, e.Current, e.Required)
	}
	return e.Reason.Error()
}

func (e *SchemaError) Unwrap() error { return e.Reason }

func IsRateLimitedError(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

func IsTransientStoreError(err error) bool {
	return errors.Is(err, ErrTransientStore)
}

func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
