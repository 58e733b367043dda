package document

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/carelink-api/internal/handler"
	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/service/document"
	"github.com/jwalitptl/carelink-api/pkg/httputil"
)

const entity = "Patient document"

type Handler struct {
	service document.DocumentServicer
}

func NewHandler(service document.DocumentServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	docs := r.Group("/patient_documents")
	{
		docs.GET("", h.ListDocuments)
		docs.GET("/:id", h.GetDocument)
		docs.GET("/patient/:patient_id", h.ListPatientDocuments)
		docs.GET("/patient/:patient_id/type/:type", h.ListPatientDocumentsByType)
		docs.GET("/patient/:patient_id/after/:date", h.ListPatientDocumentsAfter)
		docs.POST("/create", h.CreateDocument)
		docs.PUT("/:id", h.UpdateDocument)
		docs.DELETE("/:id", h.DeleteDocument)
	}
}

func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, docs)
}

func (h *Handler) GetDocument(c *gin.Context) {
	id, ok := httputil.ParseID(c, "id", entity)
	if !ok {
		return
	}
	doc, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, doc)
}

func (h *Handler) ListPatientDocuments(c *gin.Context) {
	patientID, ok := httputil.ParseID(c, "patient_id", "Patient")
	if !ok {
		return
	}
	docs, err := h.service.ListByPatient(c.Request.Context(), patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, docs)
}

func (h *Handler) ListPatientDocumentsByType(c *gin.Context) {
	patientID, ok := httputil.ParseID(c, "patient_id", "Patient")
	if !ok {
		return
	}
	docs, err := h.service.ListByType(c.Request.Context(), patientID, c.Param("type"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, docs)
}

func (h *Handler) ListPatientDocumentsAfter(c *gin.Context) {
	patientID, ok := httputil.ParseID(c, "patient_id", "Patient")
	if !ok {
		return
	}
	after, ok := httputil.ParseDate(c, "date")
	if !ok {
		return
	}
	docs, err := h.service.ListByPatientAfter(c.Request.Context(), patientID, after)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, docs)
}

func (h *Handler) CreateDocument(c *gin.Context) {
	var req document.CreateRequest
	if !handler.BindJSON(c, &req, document.MissingFieldsMessage) {
		return
	}
	doc, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, doc)
}

func (h *Handler) UpdateDocument(c *gin.Context) {
	id, ok := httputil.ParseID(c, "id", entity)
	if !ok {
		return
	}
	var patch model.DocumentPatch
	if !handler.BindJSON(c, &patch, "") {
		return
	}
	doc, err := h.service.Update(c.Request.Context(), id, patch)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, doc)
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	id, ok := httputil.ParseID(c, "id", entity)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "Patient document deleted successfully")
}
