package v1

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/domain/appointment"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AppointmentService is the scheduling surface the handler drives.
type AppointmentService interface {
	Create(ctx context.Context, cmd *appointment.CreateAppointmentCommand) (*appointment.Appointment, error)
	Update(ctx context.Context, id int64, cmd *appointment.UpdateAppointmentCommand) (*appointment.Appointment, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*appointment.AppointmentView, error)
	List(ctx context.Context) ([]*appointment.AppointmentView, error)
	Summary(ctx context.Context) (*appointment.Summary, error)
}

type AppointmentHandler struct {
	svc AppointmentService
	log *zap.Logger
}

func NewAppointmentHandler(svc AppointmentService, log *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, log: log}
}

type AppointmentRequest struct {
	// ID is optional on update; when present it must match the path id.
	ID          *int64    `json:"id,omitempty"`
	PatientName string    `json:"patientName"`
	DoctorName  string    `json:"doctorName"`
	StartTime   time.Time `json:"startTime" binding:"required"`
	EndTime     time.Time `json:"endTime" binding:"required"`
}

func (h *AppointmentHandler) Register(rg *gin.RouterGroup) {
	appts := rg.Group("/appointments")
	appts.GET("", h.List)
	appts.GET("/summary", h.Summary)
	appts.GET("/:id", h.Get)
	appts.POST("", h.Create)
	appts.PUT("/:id", h.Update)
	appts.DELETE("/:id", h.Delete)
}

func (h *AppointmentHandler) List(c *gin.Context) {
	views, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.log.Error("error retrieving appointments", zap.Error(err))
		respondServiceError(c, err)
		return
	}
	respondOK(c, views)
}

func (h *AppointmentHandler) Summary(c *gin.Context) {
	sum, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		h.log.Error("error summarizing appointments", zap.Error(err))
		respondServiceError(c, err)
		return
	}
	respondOK(c, sum)
}

func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	view, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, view)
}

func (h *AppointmentHandler) Create(c *gin.Context) {
	var req AppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.svc.Create(c.Request.Context(), &appointment.CreateAppointmentCommand{
		PatientName: req.PatientName,
		DoctorName:  req.DoctorName,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("%s/%d", c.FullPath(), a.ID))
	respondCreated(c, a)
}

func (h *AppointmentHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req AppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.ID != nil && *req.ID != id {
		respondError(c, http.StatusBadRequest, CodeBadRequest, "ID mismatch")
		return
	}

	a, err := h.svc.Update(c.Request.Context(), id, &appointment.UpdateAppointmentCommand{
		PatientName: req.PatientName,
		DoctorName:  req.DoctorName,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

func (h *AppointmentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
