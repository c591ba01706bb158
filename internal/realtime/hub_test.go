package realtime

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToOwnerOnly(t *testing.T) {
	hub := NewHub(zerolog.New(io.Discard))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("user"))
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	alice, _, err := websocket.DefaultDialer.Dial(wsURL+"?user=alice", nil)
	require.NoError(t, err)
	defer alice.Close()
	bob, _, err := websocket.DefaultDialer.Dial(wsURL+"?user=bob", nil)
	require.NoError(t, err)
	defer bob.Close()

	require.Eventually(t, func() bool {
		return hub.Subscribers("alice") == 1 && hub.Subscribers("bob") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Publish("alice", Event{Table: "transactions", Action: ActionInsert, Record: map[string]string{"id": "t1"}})

	alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	require.NoError(t, alice.ReadJSON(&ev))
	assert.Equal(t, "transactions", ev.Table)
	assert.Equal(t, ActionInsert, ev.Action)
	assert.False(t, ev.Timestamp.IsZero())

	bob.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = bob.ReadMessage()
	assert.Error(t, err, "bob must not receive alice's events")
}

func TestPublishDropsSlowSubscriber(t *testing.T) {
	hub := NewHub(zerolog.New(io.Discard))
	c := hub.register("u1")

	for i := 0; i < sendBuffer; i++ {
		hub.Publish("u1", Event{Table: "bills", Action: ActionUpdate})
	}
	assert.Equal(t, 1, hub.Subscribers("u1"))

	hub.Publish("u1", Event{Table: "bills", Action: ActionUpdate})
	assert.Equal(t, 0, hub.Subscribers("u1"))

	// channel is closed after the buffered events drain
	for range c.send {
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(zerolog.New(io.Discard))
	hub.Publish("nobody", Event{Table: "accounts", Action: ActionDelete})
	assert.Equal(t, 0, hub.Subscribers("nobody"))
}
