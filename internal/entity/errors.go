package entity

import "errors"

// Error classes. Every sentinel below unwraps to exactly one of them, so the
// HTTP layer can map a whole class at once with errors.Is.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
)

type classError struct {
	msg   string
	class error
}

func (e *classError) Error() string { return e.msg }
func (e *classError) Unwrap() error { return e.class }

func newError(class error, msg string) error {
	return &classError{msg: msg, class: class}
}

var (
	ErrLeadNotFound         = newError(ErrNotFound, "lead not found")
	ErrSlotNotFound         = newError(ErrNotFound, "demo slot not found")
	ErrBookingNotFound      = newError(ErrNotFound, "demo booking not found")
	ErrIntentNotFound       = newError(ErrNotFound, "conversion intent not found")
	ErrCheckpointNotFound   = newError(ErrNotFound, "checkpoint not found")
	ErrPlanNotFound         = newError(ErrNotFound, "plan not found")
	ErrOrganizationNotFound = newError(ErrNotFound, "organization not found")

	ErrSlotUnavailable      = newError(ErrConflict, "demo slot is unavailable")
	ErrLeadAlreadyBooked    = newError(ErrConflict, "lead already has a confirmed demo booking")
	ErrInvalidBookingState  = newError(ErrConflict, "demo booking is not confirmed")
	ErrAlreadyConverted     = newError(ErrConflict, "lead already converted")
	ErrConversionInProgress = newError(ErrConflict, "a conversion is already in progress for this lead")
	ErrIntentNotResumable   = newError(ErrConflict, "conversion intent cannot be resumed")
	ErrIntentNotAbandonable = newError(ErrConflict, "only a stale PENDING conversion intent can be abandoned")
	ErrTenantExists         = newError(ErrConflict, "an organization was already provisioned for this lead; resume the intent")
	ErrSlugTaken            = newError(ErrConflict, "organization slug already taken")
	ErrConvertedLeadLocked  = newError(ErrConflict, "converted lead must stay WON")
	ErrConvertedLeadDelete  = newError(ErrConflict, "converted lead cannot be deleted")

	ErrInvalidStatus        = newError(ErrInvalid, "unknown lead status")
	ErrInvalidQualification = newError(ErrInvalid, "unknown qualification")
	ErrInvalidInteraction   = newError(ErrInvalid, "unknown interaction type")
	ErrInvalidBookingType   = newError(ErrInvalid, "unknown demo booking type")
	ErrInvalidPlan          = newError(ErrInvalid, "unknown plan")
	ErrTerminalStatus       = newError(ErrInvalid, "lead is in a terminal status; reopen it explicitly")
	ErrScoreOutOfRange      = newError(ErrInvalid, "score and probability must be between 0 and 100")
)
