package ingest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/carelink-api/internal/handler"
	"github.com/jwalitptl/carelink-api/internal/service/ingest"
	"github.com/jwalitptl/carelink-api/pkg/httputil"
)

// Handler accepts notifications that a device finished uploading a raw
// recording.
type Handler struct {
	service ingest.IngestServicer
}

func NewHandler(service ingest.IngestServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/motion_files/ingest", h.Ingest)
}

// Ingest runs the pipeline and answers 201 with the stored file and its
// readings. A recording whose data cannot be parsed is a 400, not a 500.
// Storage and converter failures are 502.
func (h *Handler) Ingest(c *gin.Context) {
	var req ingest.Request
	if !handler.BindJSON(c, &req, "") {
		return
	}
	result, err := h.service.Ingest(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, result)
}
