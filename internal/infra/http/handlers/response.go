package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/xavierca1/institut-pipeline/internal/entity"
	"github.com/xavierca1/institut-pipeline/internal/infra/http/middleware"
	"github.com/xavierca1/institut-pipeline/internal/logger"
	"github.com/xavierca1/institut-pipeline/internal/usecase"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code           string                    `json:"code"`
	Message        string                    `json:"message"`
	Errors         []usecase.ValidationError `json:"errors,omitempty"`
	IntentID       string                    `json:"intent_id,omitempty"`
	OrganizationID string                    `json:"organization_id,omitempty"`
	Credentials    *entity.Credentials       `json:"credentials,omitempty"`
}

// sentinel error -> API code
var errorCodes = []struct {
	err  error
	code string
}{
	{entity.ErrSlotUnavailable, "SLOT_UNAVAILABLE"},
	{entity.ErrLeadAlreadyBooked, "LEAD_ALREADY_BOOKED"},
	{entity.ErrInvalidBookingState, "INVALID_BOOKING_STATE"},
	{entity.ErrAlreadyConverted, "ALREADY_CONVERTED"},
	{entity.ErrConversionInProgress, "CONVERSION_IN_PROGRESS"},
	{entity.ErrIntentNotResumable, "INTENT_NOT_RESUMABLE"},
	{entity.ErrIntentNotAbandonable, "INTENT_NOT_ABANDONABLE"},
	{entity.ErrTenantExists, "TENANT_EXISTS"},
	{entity.ErrConvertedLeadLocked, "CONVERTED_LEAD_LOCKED"},
	{entity.ErrConvertedLeadDelete, "CONVERTED_LEAD_LOCKED"},
	{entity.ErrTerminalStatus, "TERMINAL_STATUS"},
	{entity.ErrSlotNotFound, "SLOT_NOT_FOUND"},
	{entity.ErrLeadNotFound, "LEAD_NOT_FOUND"},
	{entity.ErrBookingNotFound, "BOOKING_NOT_FOUND"},
	{entity.ErrIntentNotFound, "INTENT_NOT_FOUND"},
	{entity.ErrCheckpointNotFound, "CHECKPOINT_NOT_FOUND"},
	{entity.ErrPlanNotFound, "PLAN_NOT_FOUND"},
}

func codeFor(err error, fallback string) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// writeError maps use-case and domain errors to HTTP answers. Anything
// unrecognised is logged and hidden behind a 500.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var (
		verrs   usecase.ValidationErrors
		partial *usecase.PartialConversionError
		failed  *usecase.ProvisioningFailedError
		domain  *usecase.DomainError
	)

	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Code:    usecase.CodeValidation,
			Message: "validation failed",
			Errors:  verrs,
		})
	case errors.As(err, &partial):
		creds := partial.Credentials
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Code:           usecase.CodePartialConversion,
			Message:        "organization created but the lead could not be linked; resume the conversion",
			IntentID:       partial.IntentID,
			OrganizationID: partial.OrganizationID,
			Credentials:    &creds,
		})
	case errors.As(err, &failed):
		logger.FromContext(r.Context(), log).Error("tenant provisioning failed",
			"intent_id", failed.IntentID, "error", failed.Err)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Code:     usecase.CodeProvisioningFailed,
			Message:  "the organization could not be created; nothing was changed on the lead, try again later",
			IntentID: failed.IntentID,
		})
	case errors.As(err, &domain):
		writeErrorResponse(w, statusFor(domain.Err), domain.Code, domain.Message)
	case errors.Is(err, entity.ErrInvalid):
		writeErrorResponse(w, http.StatusUnprocessableEntity, codeFor(err, usecase.CodeValidation), err.Error())
	case errors.Is(err, entity.ErrNotFound):
		writeErrorResponse(w, http.StatusNotFound, codeFor(err, "NOT_FOUND"), err.Error())
	case errors.Is(err, entity.ErrConflict):
		writeErrorResponse(w, http.StatusConflict, codeFor(err, "CONFLICT"), err.Error())
	default:
		logger.FromContext(r.Context(), log).Error("unhandled error",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

func statusFor(class error) int {
	switch {
	case errors.Is(class, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(class, entity.ErrConflict):
		return http.StatusConflict
	case errors.Is(class, entity.ErrInvalid):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// badQuery reports an unusable query parameter.
func badQuery(param, msg string) error {
	return &usecase.DomainError{Code: "INVALID_QUERY", Message: param + ": " + msg, Err: entity.ErrInvalid}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badQuery(key, "must be a non-negative integer")
	}
	return n, nil
}

// decodeJSON reads the request body into v. An empty body leaves v as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON body: "+err.Error())
	return false
}

func actor(r *http.Request) string {
	return middleware.OperatorID(r.Context())
}

// queryList accepts both ?status=A&status=B and ?status=A,B.
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
