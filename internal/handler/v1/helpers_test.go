package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/domain/appointment"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRespondServiceError_StatusAndLogging(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		recorded   bool
	}{
		{"client cancelled", context.Canceled, StatusClientClosedRequest, CodeCancelled, false},
		{"wrapped cancel", fmt.Errorf("list: %w", context.Canceled), StatusClientClosedRequest, CodeCancelled, false},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout, false},
		{"not found", appointment.ErrAppointmentNotFound, http.StatusNotFound, CodeNotFound, false},
		{"store failure", &appointment.StoreError{Op: "list", Err: errors.New("disk")}, http.StatusInternalServerError, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			respondServiceError(c, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Contains(t, rec.Body.String(), `"code":"`+tt.wantCode+`"`)
			}
			assert.Equal(t, tt.recorded, len(c.Errors) > 0)
		})
	}
}
