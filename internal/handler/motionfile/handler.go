package motionfile

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/carelink-api/internal/handler"
	"github.com/jwalitptl/carelink-api/internal/middleware"
	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/service/motionfile"
	"github.com/jwalitptl/carelink-api/pkg/httputil"
)

const entity = "Motion_File"

// Handler serves motion files and their readings.
type Handler struct {
	service motionfile.MotionFileServicer
	auth    *middleware.AuthMiddleware
}

func NewHandler(service motionfile.MotionFileServicer, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{service: service, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	clinical := h.auth.RequireRoles(model.RolePatient, model.RolePhysician)

	files := r.Group("/motion_files", clinical)
	{
		files.GET("", h.ListMotionFiles)
		files.GET("/:id", h.GetMotionFile)
		files.GET("/patient/:patient_id", h.ListPatientMotionFiles)
		files.GET("/patient/:patient_id/after/:date", h.ListPatientMotionFilesAfter)
		files.POST("/create", h.CreateMotionFile)
		files.PUT("/:id/assign", h.AssignMotionFile)
		files.DELETE("/delete/:id", h.DeleteMotionFile)
	}

	r.GET("/motion_readings/:motion_file_id", clinical, h.ListReadings)
}

func (h *Handler) ListMotionFiles(c *gin.Context) {
	files, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, files)
}

func (h *Handler) GetMotionFile(c *gin.Context) {
	id, ok := httputil.ParseID(c, "id", entity)
	if !ok {
		return
	}
	file, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, file)
}

func (h *Handler) ListPatientMotionFiles(c *gin.Context) {
	patientID, ok := httputil.ParseID(c, "patient_id", "Patient")
	if !ok {
		return
	}
	files, err := h.service.ListByPatient(c.Request.Context(), patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, files)
}

func (h *Handler) ListPatientMotionFilesAfter(c *gin.Context) {
	patientID, ok := httputil.ParseID(c, "patient_id", "Patient")
	if !ok {
		return
	}
	after, ok := httputil.ParseDate(c, "date")
	if !ok {
		return
	}
	files, err := h.service.ListByPatientAfter(c.Request.Context(), patientID, after)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, files)
}

func (h *Handler) CreateMotionFile(c *gin.Context) {
	var req motionfile.CreateRequest
	if !handler.BindJSON(c, &req, motionfile.MissingFieldsMessage) {
		return
	}
	file, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, file)
}

func (h *Handler) AssignMotionFile(c *gin.Context) {
	id, ok := httputil.ParseID(c, "id", entity)
	if !ok {
		return
	}
	var req motionfile.AssignRequest
	if !handler.BindJSON(c, &req, motionfile.MissingPatientMessage) {
		return
	}
	file, err := h.service.Assign(c.Request.Context(), id, *req.PatientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, file)
}

func (h *Handler) DeleteMotionFile(c *gin.Context) {
	id, ok := httputil.ParseID(c, "id", entity)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "Motion_File deleted successfully")
}

func (h *Handler) ListReadings(c *gin.Context) {
	fileID, ok := httputil.ParseID(c, "motion_file_id", entity)
	if !ok {
		return
	}
	readings, err := h.service.Readings(c.Request.Context(), fileID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, readings)
}
