package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

// Error codes exposed to callers.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeProvisioningFailed = "PROVISIONING_FAILED"
	CodePartialConversion  = "PARTIAL_CONVERSION"
	CodeNotificationFailed = "NOTIFICATION_FAILED"
)

// DomainError is a business rule violation with a stable code. Err carries
// the entity error class (ErrInvalid, ErrConflict, ...).
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// TechnicalError is an infrastructure failure (tenant store, billing API).
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error { return e.Err }

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

// ValidationErrors collects field errors. It unwraps to entity.ErrInvalid.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() error { return entity.ErrInvalid }

// ProvisioningFailedError means the tenant could not be created. Nothing was
// linked to the lead and the conversion may be attempted again.
type ProvisioningFailedError struct {
	IntentID string
	Err      error
}

func (e *ProvisioningFailedError) Error() string {
	return fmt.Sprintf("tenant provisioning failed: %v", e.Err)
}

func (e *ProvisioningFailedError) Unwrap() error { return e.Err }

// PartialConversionError means a tenant exists but the lead could not be
// linked to it. Credentials are carried so the operator still receives them.
// Resume the intent; never provision again.
type PartialConversionError struct {
	IntentID       string
	OrganizationID string
	Credentials    entity.Credentials
	Err            error
}

func (e *PartialConversionError) Error() string {
	return fmt.Sprintf("organization %s provisioned but lead not linked (intent %s): %v",
		e.OrganizationID, e.IntentID, e.Err)
}

func (e *PartialConversionError) Unwrap() error { return e.Err }
