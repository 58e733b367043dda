package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/carelink-api/internal/service/chat"
	"github.com/jwalitptl/carelink-api/pkg/httputil"
)

// Handler serves chat history. New messages arrive over the socket.
type Handler struct {
	service chat.ChatServicer
}

func NewHandler(service chat.ChatServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/chat_messages/:patient_id/:physician_id", h.ListMessages)
}

func (h *Handler) ListMessages(c *gin.Context) {
	patientID, ok := httputil.ParseID(c, "patient_id", "Patient")
	if !ok {
		return
	}
	physicianID, ok := httputil.ParseID(c, "physician_id", "Physician")
	if !ok {
		return
	}

	messages, err := h.service.Messages(c.Request.Context(), chat.Participants{
		PatientID:   patientID,
		PhysicianID: physicianID,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, messages)
}
