package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/carelink-api/internal/handler/handlertest"
	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/repository/mocks"
	"github.com/jwalitptl/carelink-api/internal/service/chat"
	"github.com/jwalitptl/carelink-api/internal/service/identity"
	"github.com/jwalitptl/carelink-api/pkg/auth"
	"github.com/jwalitptl/carelink-api/pkg/realtime"
)

type fakeSync struct {
	outcome *identity.Outcome
}

func (f fakeSync) Sync(context.Context, *auth.Principal) (*identity.Outcome, error) {
	return f.outcome, nil
}

func startServer(t *testing.T, outcome *identity.Outcome) (*mocks.ChatRepository, *httptest.Server) {
	t.Helper()
	chats := new(mocks.ChatRepository)
	hub := realtime.NewHub()
	h := NewHandler(Config{AllowedOrigin: "https://app.example.org"}, handlertest.Verifier(),
		fakeSync{outcome: outcome}, chat.NewService(chats), hub, hub, nil)

	srv := httptest.NewServer(handlertest.PublicEngine(h))
	t.Cleanup(srv.Close)
	return chats, srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func read(t *testing.T, ws *websocket.Conn) realtime.Envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env realtime.Envelope
	require.NoError(t, ws.ReadJSON(&env))
	return env
}

func send(t *testing.T, ws *websocket.Conn, event string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(realtime.Envelope{Event: event, Data: raw}))
}

func patientOutcome() *identity.Outcome {
	patient := &model.User{ID: 7, FirstName: "Pat", Roles: model.RoleSet{model.RolePatient}}
	return &identity.Outcome{Event: identity.EventUserInfo, Data: patient, User: patient}
}

func TestConnectRequiresToken(t *testing.T) {
	_, srv := startServer(t, patientOutcome())

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/ws?token=forged")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConnectRejectsForeignOrigin(t *testing.T) {
	_, srv := startServer(t, patientOutcome())

	header := http.Header{"Origin": []string{"https://evil.example.org"}}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + handlertest.PatientToken
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestConnectSendsSyncOutcome(t *testing.T) {
	_, srv := startServer(t, patientOutcome())
	ws := dial(t, srv, handlertest.PatientToken)

	env := read(t, ws)
	assert.Equal(t, identity.EventUserInfo, env.Event)

	var u model.User
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.Equal(t, int64(7), u.ID)
}

func TestJoinThenMessage(t *testing.T) {
	chats, srv := startServer(t, patientOutcome())
	chats.On("GetByParticipants", mock.Anything, int64(7), int64(2)).
		Return(&model.Chat{ID: 5, PatientID: 7, PhysicianID: 2}, nil)
	chats.On("AddMessage", mock.Anything, mock.AnythingOfType("*model.ChatMessage")).
		Run(func(args mock.Arguments) {
			m := args.Get(1).(*model.ChatMessage)
			m.ID = 41
			m.Timestamp = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
		}).
		Return(nil)

	ws := dial(t, srv, handlertest.PatientToken)
	read(t, ws)

	send(t, ws, EventJoin, map[string]int64{"patient_id": 7, "physician_id": 2})
	send(t, ws, EventMessage, map[string]interface{}{
		"patient_id": 7, "physician_id": 2, "sender": 7, "content": "  my knee hurts ",
	})

	env := read(t, ws)
	require.Equal(t, EventMessage, env.Event)
	assert.JSONEq(t,
		`{"id":41,"chat_id":5,"sender":7,"content":"my knee hurts","timestamp":"2024-05-01T09:30:00Z"}`,
		string(env.Data))
}

func TestJoinForeignChat(t *testing.T) {
	chats, srv := startServer(t, patientOutcome())
	ws := dial(t, srv, handlertest.PatientToken)
	read(t, ws)

	send(t, ws, EventJoin, map[string]int64{"patient_id": 8, "physician_id": 2})

	env := read(t, ws)
	assert.Equal(t, EventError, env.Event)
	assert.JSONEq(t, `{"error":"Not a participant of this chat"}`, string(env.Data))
	chats.AssertNotCalled(t, "GetByParticipants", mock.Anything, mock.Anything, mock.Anything)
}

func TestWaitingUserCannotJoin(t *testing.T) {
	_, srv := startServer(t, &identity.Outcome{
		Event: identity.EventWait,
		Data:  identity.Message{Message: "Wait to be added to the system."},
	})
	ws := dial(t, srv, handlertest.NoRoleToken)

	env := read(t, ws)
	assert.Equal(t, identity.EventWait, env.Event)

	send(t, ws, EventJoin, map[string]int64{"patient_id": 7, "physician_id": 2})
	env = read(t, ws)
	assert.Equal(t, EventError, env.Event)
}

func TestMessageValidation(t *testing.T) {
	_, srv := startServer(t, patientOutcome())
	ws := dial(t, srv, handlertest.PatientToken)
	read(t, ws)

	send(t, ws, EventMessage, map[string]interface{}{"patient_id": 7, "physician_id": 2, "sender": 7})

	env := read(t, ws)
	assert.Equal(t, EventError, env.Event)
	assert.JSONEq(t, `{"error":"Missing required fields: content"}`, string(env.Data))
}
