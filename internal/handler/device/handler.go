package device

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/carelink-api/internal/handler"
	"github.com/jwalitptl/carelink-api/internal/service/device"
	"github.com/jwalitptl/carelink-api/pkg/httputil"
)

const entity = "Device"

type Handler struct {
	service device.DeviceServicer
}

func NewHandler(service device.DeviceServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	devices := r.Group("/devices")
	{
		devices.GET("", h.ListDevices)
		devices.GET("/unassigned", h.ListUnassigned)
		devices.GET("/patient/:patient_id", h.GetPatientDevice)
		devices.GET("/:id", h.GetDevice)
		devices.POST("", h.CreateDevice)
		devices.PUT("/:id/assign", h.AssignDevice)
		devices.DELETE("/:id", h.DeleteDevice)
	}
}

func (h *Handler) ListDevices(c *gin.Context) {
	devices, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, devices)
}

func (h *Handler) ListUnassigned(c *gin.Context) {
	devices, err := h.service.ListUnassigned(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, devices)
}

func (h *Handler) GetDevice(c *gin.Context) {
	id, ok := httputil.ParseID(c, "id", entity)
	if !ok {
		return
	}
	d, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, d)
}

func (h *Handler) GetPatientDevice(c *gin.Context) {
	patientID, ok := httputil.ParseID(c, "patient_id", "Patient")
	if !ok {
		return
	}
	d, err := h.service.GetByPatient(c.Request.Context(), patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, d)
}

// CreateDevice registers an unassigned device. No body is read.
func (h *Handler) CreateDevice(c *gin.Context) {
	d, err := h.service.Create(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, d)
}

func (h *Handler) AssignDevice(c *gin.Context) {
	id, ok := httputil.ParseID(c, "id", entity)
	if !ok {
		return
	}
	var req device.AssignRequest
	if !handler.BindJSON(c, &req, "") {
		return
	}
	d, err := h.service.Assign(c.Request.Context(), id, req.PatientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, d)
}

func (h *Handler) DeleteDevice(c *gin.Context) {
	id, ok := httputil.ParseID(c, "id", entity)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "Device deleted successfully")
}
