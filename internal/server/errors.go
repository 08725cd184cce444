package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	agentdomain "github.com/smallbiznis/salesdesk/internal/agent/domain"
	appointmentdomain "github.com/smallbiznis/salesdesk/internal/appointment/domain"
	auditdomain "github.com/smallbiznis/salesdesk/internal/audit/domain"
	"github.com/smallbiznis/salesdesk/internal/authorization"
	earningsdomain "github.com/smallbiznis/salesdesk/internal/earnings/domain"
	incentivedomain "github.com/smallbiznis/salesdesk/internal/incentive/domain"
	paycycledomain "github.com/smallbiznis/salesdesk/internal/paycycle/domain"
	"github.com/smallbiznis/salesdesk/internal/pipeline"
	referraldomain "github.com/smallbiznis/salesdesk/internal/referral/domain"
	"github.com/smallbiznis/salesdesk/internal/referral/ledger"
	settingsdomain "github.com/smallbiznis/salesdesk/internal/settings/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")

	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrTooManyRequests    = errors.New("too_many_requests")
	ErrImportInProgress   = errors.New("import_in_progress")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    conflictCode(err),
			Message: "conflict",
		}
	case errors.Is(err, referraldomain.ErrReportTooLarge):
		return http.StatusRequestEntityTooLarge, errorPayload{
			Type:    "payload_too_large",
			Code:    referraldomain.ErrReportTooLarge.Error(),
			Message: "report has too many rows",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code written to the request log.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Code
	if code == "" && len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if code == "" && status < http.StatusInternalServerError {
		code = err.Error()
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isAgentValidationError(err),
		isAppointmentValidationError(err),
		isPayCycleValidationError(err),
		isIncentiveValidationError(err),
		isReferralValidationError(err),
		errors.Is(err, settingsdomain.ErrInvalidRate),
		errors.Is(err, earningsdomain.ErrInvalidScope),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrImportInProgress),
		errors.Is(err, ledger.ErrNoActiveCycle),
		errors.Is(err, pipeline.ErrInvalidTransition),
		errors.Is(err, referraldomain.ErrNotOnboarded):
		return true
	default:
		return false
	}
}

func conflictCode(err error) string {
	switch {
	case errors.Is(err, ledger.ErrNoActiveCycle):
		return ledger.ErrNoActiveCycle.Error()
	case errors.Is(err, pipeline.ErrInvalidTransition):
		return pipeline.ErrInvalidTransition.Error()
	case errors.Is(err, referraldomain.ErrNotOnboarded):
		return referraldomain.ErrNotOnboarded.Error()
	case errors.Is(err, ErrImportInProgress):
		return ErrImportInProgress.Error()
	default:
		return ""
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, agentdomain.ErrNotFound),
		errors.Is(err, appointmentdomain.ErrNotFound),
		errors.Is(err, paycycledomain.ErrNotFound),
		errors.Is(err, incentivedomain.ErrNotFound),
		errors.Is(err, incentivedomain.ErrRuleNotFound),
		errors.Is(err, referraldomain.ErrNotFound),
		errors.Is(err, earningsdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case ledger.ErrInvalidReferralCount.Error():
		return "referral count cannot be negative"
	case referraldomain.ErrEmptyReport.Error():
		return "report has no rows"
	default:
		return "invalid value"
	}
}

func isAgentValidationError(err error) bool {
	switch err {
	case agentdomain.ErrInvalidName,
		agentdomain.ErrInvalidEmail,
		agentdomain.ErrInvalidRole,
		agentdomain.ErrInvalidID,
		agentdomain.ErrInvalidScope:
		return true
	default:
		return false
	}
}

func isAppointmentValidationError(err error) bool {
	switch err {
	case appointmentdomain.ErrInvalidID,
		appointmentdomain.ErrInvalidOwner,
		appointmentdomain.ErrInvalidName,
		appointmentdomain.ErrInvalidStage,
		appointmentdomain.ErrInvalidScheduledAt,
		appointmentdomain.ErrInvalidAmount:
		return true
	default:
		return false
	}
}

func isPayCycleValidationError(err error) bool {
	switch err {
	case paycycledomain.ErrInvalidID,
		paycycledomain.ErrInvalidPeriod:
		return true
	default:
		return false
	}
}

func isIncentiveValidationError(err error) bool {
	switch err {
	case incentivedomain.ErrInvalidID,
		incentivedomain.ErrInvalidTarget,
		incentivedomain.ErrInvalidKind,
		incentivedomain.ErrInvalidValue,
		incentivedomain.ErrInvalidLabel,
		incentivedomain.ErrInvalidWindow,
		incentivedomain.ErrInvalidTargetCount:
		return true
	default:
		return false
	}
}

func isReferralValidationError(err error) bool {
	switch {
	case errors.Is(err, referraldomain.ErrInvalidID),
		errors.Is(err, referraldomain.ErrEmptyReport),
		errors.Is(err, ledger.ErrInvalidReferralCount):
		return true
	default:
		return false
	}
}
