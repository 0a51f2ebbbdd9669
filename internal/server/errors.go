package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	equipmentdomain "github.com/obralog/fleetmeter/internal/equipment/domain"
	fuelingdomain "github.com/obralog/fleetmeter/internal/fueling/domain"
	gapsdomain "github.com/obralog/fleetmeter/internal/gaps/domain"
	readingdomain "github.com/obralog/fleetmeter/internal/reading/domain"
	sheetsdomain "github.com/obralog/fleetmeter/internal/sheets/domain"
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
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
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
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, sheetsdomain.ErrSheetUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
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
	case isEquipmentValidationError(err),
		isReadingValidationError(err),
		isFuelingValidationError(err),
		isGapsValidationError(err):
		return true
	default:
		return false
	}
}

func isEquipmentValidationError(err error) bool {
	return errors.Is(err, equipmentdomain.ErrInvalidID) ||
		errors.Is(err, equipmentdomain.ErrInvalidCode) ||
		errors.Is(err, equipmentdomain.ErrAmbiguousCode)
}

func isReadingValidationError(err error) bool {
	return errors.Is(err, readingdomain.ErrInvalidID) ||
		errors.Is(err, readingdomain.ErrInvalidEquipment) ||
		errors.Is(err, readingdomain.ErrInvalidDate) ||
		errors.Is(err, readingdomain.ErrNegativeValue)
}

func isFuelingValidationError(err error) bool {
	return errors.Is(err, fuelingdomain.ErrInvalidCode) ||
		errors.Is(err, fuelingdomain.ErrInvalidDate) ||
		errors.Is(err, fuelingdomain.ErrInvalidLiters) ||
		errors.Is(err, fuelingdomain.ErrNegativeValue)
}

func isGapsValidationError(err error) bool {
	return errors.Is(err, gapsdomain.ErrInvalidWindow) ||
		errors.Is(err, sheetsdomain.ErrInvalidSheet)
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, equipmentdomain.ErrNotFound),
		errors.Is(err, readingdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
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
	default:
		return "invalid value"
	}
}

// classifyErrorForLog buckets handler errors for the request log so the
// middleware can keep expected client mistakes at a lower level.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case asValidationErrors(err) != nil:
		return "validation_error", "invalid_request"
	case isValidationError(err):
		return "validation_error", validationErrorCode(err)
	case isNotFoundError(err):
		return "not_found", "not_found"
	case errors.Is(err, sheetsdomain.ErrSheetUnavailable), errors.Is(err, ErrServiceUnavailable):
		return "service_unavailable", "sheet_unavailable"
	default:
		return "internal_error", "internal_error"
	}
}
