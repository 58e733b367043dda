// Package socket serves the realtime websocket: identity sync on connect,
// chat room membership and chat messages.
package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/service/chat"
	"github.com/jwalitptl/carelink-api/internal/service/identity"
	"github.com/jwalitptl/carelink-api/pkg/auth"
	"github.com/jwalitptl/carelink-api/pkg/errors"
	"github.com/jwalitptl/carelink-api/pkg/httputil"
	"github.com/jwalitptl/carelink-api/pkg/metrics"
	"github.com/jwalitptl/carelink-api/pkg/realtime"
	"github.com/jwalitptl/carelink-api/pkg/validator"
)

const (
	EventJoin    = "join"
	EventLeave   = "leave"
	EventMessage = "message"
	EventError   = "error"

	eventTimeout = 10 * time.Second
)

type Config struct {
	// AllowedOrigin is the frontend origin. Empty or "*" accepts any.
	AllowedOrigin string
}

type Handler struct {
	verifier  auth.TokenVerifier
	sync      identity.SyncServicer
	chats     chat.ChatServicer
	hub       *realtime.Hub
	publisher realtime.Publisher
	metrics   *metrics.Metrics
	upgrader  websocket.Upgrader
}

// NewHandler wires the socket endpoint. Messages are published through
// publisher, which is the hub itself or a relay in front of it.
func NewHandler(
	cfg Config,
	verifier auth.TokenVerifier,
	sync identity.SyncServicer,
	chats chat.ChatServicer,
	hub *realtime.Hub,
	publisher realtime.Publisher,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		verifier:  verifier,
		sync:      sync,
		chats:     chats,
		hub:       hub,
		publisher: publisher,
		metrics:   m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(cfg.AllowedOrigin),
		},
	}
}

func checkOrigin(allowed string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if allowed == "" || allowed == "*" {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || strings.EqualFold(origin, allowed)
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ws", h.Connect)
}

// Connect authenticates the caller before upgrading. Browsers cannot set
// headers on websocket requests, so the token may come as a query param.
func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		var err error
		token, err = auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			httputil.RespondWithError(c, errors.Unauthorized("Authorization header is expected", err))
			return
		}
	}

	ctx := c.Request.Context()
	principal, err := h.verifier.Verify(ctx, token)
	if err != nil {
		httputil.RespondWithError(c, errors.Unauthorized("Invalid token", err))
		return
	}

	outcome, err := h.sync.Sync(ctx, principal)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("subject", principal.Subject).Msg("Websocket upgrade failed")
		return
	}

	client := realtime.NewClient(h.hub, conn, outcome.User)
	logger := log.With().Str("client_id", client.ID).Str("subject", principal.Subject).Logger()
	logger.Info().Str("event", outcome.Event).Msg("Websocket connected")

	done := h.metrics.SocketOpened()
	defer done()

	h.hub.Register(client)
	client.Emit(outcome.Event, outcome.Data)
	client.Run(h.onMessage)

	logger.Info().Msg("Websocket disconnected")
}

func (h *Handler) onMessage(client *realtime.Client, msg realtime.Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	var err error
	switch msg.Event {
	case EventJoin, EventLeave:
		err = h.membership(ctx, client, msg)
	case EventMessage:
		err = h.message(ctx, client, msg)
	default:
		err = errors.Validation("Unknown event: " + msg.Event)
	}
	if err != nil {
		h.fail(client, msg.Event, err)
	}
}

func (h *Handler) membership(ctx context.Context, client *realtime.Client, msg realtime.Envelope) error {
	var p chat.Participants
	if err := decode(msg.Data, &p); err != nil {
		return err
	}
	if err := authorize(client, p); err != nil {
		return err
	}

	room, err := h.chats.Find(ctx, p)
	if err != nil {
		return err
	}
	if msg.Event == EventJoin {
		h.hub.Join(client, room.Room())
	} else {
		h.hub.Leave(client, room.Room())
	}
	return nil
}

// message stores the message, then sends it to everyone in the chat room,
// the sender included.
func (h *Handler) message(ctx context.Context, client *realtime.Client, msg realtime.Envelope) error {
	var req chat.SendRequest
	if err := decode(msg.Data, &req); err != nil {
		return err
	}
	if err := authorize(client, req.Participants); err != nil {
		return err
	}
	if u := sessionUser(client); u.ID != req.Sender {
		return errors.Validation("Sender does not match the connected user")
	}

	room, stored, err := h.chats.Send(ctx, req)
	if err != nil {
		return err
	}
	if err := h.publisher.Publish(ctx, room.Room(), EventMessage, stored); err != nil {
		return errors.Internal(err)
	}
	h.metrics.EventPublished(EventMessage)
	return nil
}

// authorize lets a connected user act only on their own chats.
func authorize(client *realtime.Client, p chat.Participants) error {
	u := sessionUser(client)
	if u == nil {
		return errors.Unauthorized("Not authorized", nil)
	}
	if u.ID != p.PatientID && u.ID != p.PhysicianID {
		return errors.Unauthorized("Not a participant of this chat", nil)
	}
	return nil
}

func sessionUser(client *realtime.Client) *model.User {
	u, _ := client.Session.(*model.User)
	return u
}

func decode(data json.RawMessage, dst interface{}) error {
	if len(data) == 0 {
		return errors.Validation("Missing event data")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.Validation("Invalid event data")
	}
	if err := binding.Validator.ValidateStruct(dst); err != nil {
		return errors.Validation(validator.Message(err))
	}
	return nil
}

func (h *Handler) fail(client *realtime.Client, event string, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.Internal(err)
	}
	log.Warn().Err(err).Str("client_id", client.ID).Str("event", event).Msg("Realtime event rejected")
	client.Emit(EventError, httputil.ErrorBody{Error: appErr.Message})
}
