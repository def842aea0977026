package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/domain/appointment"
	"github.com/gin-gonic/gin"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string             `json:"error"`
	Code   string             `json:"code"`
	Rules  []appointment.Rule `json:"rules"`
	Fields []string           `json:"fields"`
}

// StatusClientClosedRequest is the nginx convention for a request the
// client abandoned before the response was written.
const StatusClientClosedRequest = 499

const (
	CodeValidation = "VALIDATION_FAILED"
	CodeConflict   = "APPOINTMENT_CONFLICT"
	CodeNotFound   = "APPOINTMENT_NOT_FOUND"
	CodeBadRequest = "BAD_REQUEST"
	CodeTimeout    = "TIMEOUT"
	CodeCancelled  = "REQUEST_CANCELLED"
)

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *appointment.ValidationError
	if errors.As(err, &validErr) {
		fields := make([]string, 0, len(validErr.Violations))
		for _, v := range validErr.Violations {
			fields = append(fields, v.Message)
		}
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Code:   CodeValidation,
			Rules:  validErr.Rules(),
			Fields: fields,
		})
		return
	}

	var conflictErr *appointment.ConflictError
	if errors.As(err, &conflictErr) {
		resp := ErrorResponse{Error: conflictErr.Error(), Code: CodeConflict}
		if conflictErr.ConflictingID != 0 {
			resp.Details = map[string]string{"conflictingId": strconv.FormatInt(conflictErr.ConflictingID, 10)}
		}
		c.JSON(http.StatusConflict, resp)
		return
	}

	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: CodeNotFound})

	case errors.Is(err, appointment.ErrAppointmentConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: CodeConflict})

	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "request timed out", Code: CodeTimeout})

	// The client went away; nobody reads this response and it is not a
	// server fault.
	case errors.Is(err, context.Canceled):
		c.JSON(StatusClientClosedRequest, ErrorResponse{Error: "request cancelled", Code: CodeCancelled})

	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error(), Code: CodeBadRequest})
		return false
	}

	return true
}

func parseID(c *gin.Context, param string) (int64, bool) {
	raw := c.Param(param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid " + param + ": must be a positive integer",
			Code:  CodeBadRequest,
		})
		return 0, false
	}
	return id, true
}
