package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub) *Client {
	c := &Client{ID: "c", hub: hub, send: make(chan []byte, 4)}
	hub.Register(c)
	return c
}

func decode(t *testing.T, frame []byte) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	return env
}

func TestHubRoomDelivery(t *testing.T) {
	hub := NewHub()
	member := newTestClient(hub)
	outsider := newTestClient(hub)

	hub.Join(member, "chat:1")
	assert.Equal(t, 1, hub.RoomCount("chat:1"))

	require.NoError(t, hub.Publish(context.Background(), "chat:1", "message", map[string]string{"content": "hi"}))

	env := decode(t, <-member.send)
	assert.Equal(t, "message", env.Event)
	assert.JSONEq(t, `{"content":"hi"}`, string(env.Data))
	assert.Len(t, outsider.send, 0)
}

func TestHubLeaveAndUnregister(t *testing.T) {
	hub := NewHub()
	c := newTestClient(hub)

	hub.Join(c, "chat:1")
	hub.Join(c, "chat:2")
	hub.Leave(c, "chat:1")
	assert.Equal(t, 0, hub.RoomCount("chat:1"))
	assert.Equal(t, 1, hub.RoomCount("chat:2"))

	hub.Unregister(c)
	assert.Equal(t, 0, hub.RoomCount("chat:2"))
	assert.Equal(t, 0, hub.ClientCount())

	_, open := <-c.send
	assert.False(t, open)

	// Safe after unregister.
	hub.Unregister(c)
	c.Emit("x", nil)
	hub.Join(c, "chat:3")
	assert.Equal(t, 0, hub.RoomCount("chat:3"))
}

func TestHubDropsForFullQueue(t *testing.T) {
	hub := NewHub()
	c := &Client{ID: "slow", hub: hub, send: make(chan []byte, 1)}
	hub.Register(c)
	hub.Join(c, "r")

	hub.BroadcastRaw("r", []byte(`{"event":"a"}`))
	hub.BroadcastRaw("r", []byte(`{"event":"b"}`))

	assert.Len(t, c.send, 1)
	assert.Equal(t, "a", decode(t, <-c.send).Event)
}

type memoryBroker struct {
	mu      sync.Mutex
	subs    []chan []byte
	failing bool
}

func (b *memoryBroker) Publish(_ context.Context, _ string, message interface{}) error {
	if b.failing {
		return errors.New("broker down")
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		s <- payload
	}
	return nil
}

func (b *memoryBroker) Subscribe(ctx context.Context, _ string) (<-chan []byte, error) {
	ch := make(chan []byte, 8)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

func (b *memoryBroker) Close() error { return nil }

func TestRelayDeliversAcrossHubs(t *testing.T) {
	broker := &memoryBroker{}
	hubA, hubB := NewHub(), NewHub()
	relayA := NewRelay(hubA, broker, "rt")
	relayB := NewRelay(hubB, broker, "rt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = relayA.Run(ctx) }()
	go func() { _ = relayB.Run(ctx) }()

	require.Eventually(t, func() bool {
		broker.mu.Lock()
		defer broker.mu.Unlock()
		return len(broker.subs) == 2
	}, time.Second, 10*time.Millisecond)

	onA, onB := newTestClient(hubA), newTestClient(hubB)
	hubA.Join(onA, "chat:7")
	hubB.Join(onB, "chat:7")

	require.NoError(t, relayA.Publish(ctx, "chat:7", "new_file", map[string]int{"id": 3}))

	for _, c := range []*Client{onA, onB} {
		select {
		case frame := <-c.send:
			assert.Equal(t, "new_file", decode(t, frame).Event)
		case <-time.After(time.Second):
			t.Fatal("frame not delivered")
		}
	}
}

func TestRelayFallsBackToLocal(t *testing.T) {
	hub := NewHub()
	relay := NewRelay(hub, &memoryBroker{failing: true}, "rt")
	c := newTestClient(hub)
	hub.Join(c, "chat:1")

	require.NoError(t, relay.Publish(context.Background(), "chat:1", "message", "hi"))
	assert.Equal(t, "message", decode(t, <-c.send).Event)
}

func TestClientOverWebsocket(t *testing.T) {
	hub := NewHub()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(hub, conn, "session").Run(func(c *Client, msg Envelope) {
			switch msg.Event {
			case "join":
				var room string
				_ = json.Unmarshal(msg.Data, &room)
				hub.Join(c, room)
				c.Emit("joined", room)
			}
		})
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(Envelope{Event: "join", Data: json.RawMessage(`"chat:1"`)}))

	var env Envelope
	require.NoError(t, ws.ReadJSON(&env))
	assert.Equal(t, "joined", env.Event)

	require.NoError(t, hub.Publish(context.Background(), "chat:1", "message", map[string]string{"content": "hello"}))
	require.NoError(t, ws.ReadJSON(&env))
	assert.Equal(t, "message", env.Event)
	assert.JSONEq(t, `{"content":"hello"}`, string(env.Data))

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, ws.ReadJSON(&env))
	assert.Equal(t, "error", env.Event)
}
