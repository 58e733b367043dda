package medication

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/carelink-api/internal/handler"
	"github.com/jwalitptl/carelink-api/internal/middleware"
	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/service/medication"
	"github.com/jwalitptl/carelink-api/pkg/httputil"
)

const entity = "Medication"

type Handler struct {
	service medication.MedicationServicer
	auth    *middleware.AuthMiddleware
}

func NewHandler(service medication.MedicationServicer, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	meds := r.Group("/medications", h.auth.RequireRoles(model.RolePatient, model.RolePhysician))
	{
		meds.GET("/patient/:patient_id", h.ListPatientMedications)
		meds.GET("/:id", h.GetMedication)
		meds.POST("", h.CreateMedication)
		meds.PUT("/:id", h.UpdateMedication)
		meds.POST("/:id/log", h.LogMedication)
		meds.DELETE("/:id", h.DeleteMedication)
	}
}

func (h *Handler) ListPatientMedications(c *gin.Context) {
	patientID, ok := httputil.ParseID(c, "patient_id", "Patient")
	if !ok {
		return
	}
	meds, err := h.service.ListByPatient(c.Request.Context(), patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, meds)
}

func (h *Handler) GetMedication(c *gin.Context) {
	id, ok := httputil.ParseID(c, "id", entity)
	if !ok {
		return
	}
	med, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, med)
}

func (h *Handler) CreateMedication(c *gin.Context) {
	var req medication.CreateRequest
	if !handler.BindJSON(c, &req, "") {
		return
	}
	med, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, med)
}

func (h *Handler) UpdateMedication(c *gin.Context) {
	id, ok := httputil.ParseID(c, "id", entity)
	if !ok {
		return
	}
	var patch model.MedicationPatch
	if !handler.BindJSON(c, &patch, "") {
		return
	}
	med, err := h.service.Update(c.Request.Context(), id, patch)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, med)
}

// LogMedication records that the medication was taken now.
func (h *Handler) LogMedication(c *gin.Context) {
	id, ok := httputil.ParseID(c, "id", entity)
	if !ok {
		return
	}
	med, err := h.service.LogTaken(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, med)
}

func (h *Handler) DeleteMedication(c *gin.Context) {
	id, ok := httputil.ParseID(c, "id", entity)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "Medication deleted successfully")
}
