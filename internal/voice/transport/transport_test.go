package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"q-pipecat/internal/observability"
	"q-pipecat/internal/voice/audio"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// fakeBridge runs script against each connection after reading the join message.
func fakeBridge(t *testing.T, script func(conn *websocket.Conn, join message)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var join message
		if err := conn.ReadJSON(&join); err != nil {
			return
		}
		script(conn, join)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func nextEvent(t *testing.T, b *MediaBridge) Event {
	t.Helper()
	select {
	case ev, ok := <-b.Events():
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestConnect_SendsJoinAndRelaysEvents(t *testing.T) {
	joined := make(chan message, 1)
	agentAudio := make(chan message, 1)

	url := fakeBridge(t, func(conn *websocket.Conn, join message) {
		joined <- join
		_ = conn.WriteJSON(message{Type: EventJoined})
		_ = conn.WriteJSON(message{Type: EventParticipantJoined, Participant: &Participant{ID: "p1", UserName: "+15551234567"}})
		_ = conn.WriteJSON(message{Type: EventAudio, Audio: audio.BytesToBase64([]byte{1, 0, 2, 0})})
		_ = conn.WriteJSON(message{Type: EventDialinReady, SIPEndpoint: "sip:r1@daily.sip"})

		var msg message
		if err := conn.ReadJSON(&msg); err == nil {
			agentAudio <- msg
		}
		_ = conn.WriteJSON(message{Type: EventParticipantLeft, Participant: &Participant{ID: "p1"}, Reason: "hangup"})
		var leave message
		_ = conn.ReadJSON(&leave)
	})

	b, err := Connect(context.Background(), url, JoinRequest{
		RoomURL: "https://example.daily.co/r1",
		Token:   "tok",
		Params:  DefaultParams("Q Concierge"),
		Dialin:  &DialinSettings{CallID: "abc123", CallDomain: "dom1"},
	}, observability.NewLogger())
	require.NoError(t, err)
	defer b.Close()

	join := <-joined
	assert.Equal(t, EventType("join"), join.Type)
	assert.Equal(t, "https://example.daily.co/r1", join.RoomURL)
	assert.Equal(t, "tok", join.Token)
	require.NotNil(t, join.Params)
	assert.Equal(t, 24000, join.Params.SampleRate)
	assert.True(t, join.Params.AudioIn)
	assert.False(t, join.Params.CameraOut)
	assert.Equal(t, &DialinSettings{CallID: "abc123", CallDomain: "dom1"}, join.DialinSettings)

	ev := nextEvent(t, b)
	assert.Equal(t, EventParticipantJoined, ev.Type)
	assert.Equal(t, "p1", ev.Participant.ID)

	select {
	case pcm := <-b.AudioIn():
		assert.Equal(t, []byte{1, 0, 2, 0}, pcm)
	case <-time.After(2 * time.Second):
		t.Fatal("no caller audio")
	}

	ev = nextEvent(t, b)
	assert.Equal(t, EventDialinReady, ev.Type)
	assert.Equal(t, "sip:r1@daily.sip", ev.SIPEndpoint)

	b.AudioOut() <- []byte{7, 0}
	msg := <-agentAudio
	assert.Equal(t, EventAudio, msg.Type)
	assert.Equal(t, audio.BytesToBase64([]byte{7, 0}), msg.Audio)

	ev = nextEvent(t, b)
	assert.Equal(t, EventParticipantLeft, ev.Type)
	assert.Equal(t, "hangup", ev.Reason)
}

func TestConnect_JoinRejected(t *testing.T) {
	url := fakeBridge(t, func(conn *websocket.Conn, _ message) {
		_ = conn.WriteJSON(message{Type: EventError, Message: "token expired"})
	})

	_, err := Connect(context.Background(), url, JoinRequest{RoomURL: "https://example.daily.co/r1"}, observability.NewLogger())
	require.ErrorIs(t, err, ErrJoinFailed)
	assert.Contains(t, err.Error(), "token expired")
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(context.Background(), "ws://127.0.0.1:1/bridge", JoinRequest{}, observability.NewLogger())
	assert.ErrorIs(t, err, ErrJoinFailed)
}

func TestMediaBridge_ServerCloseEndsEvents(t *testing.T) {
	url := fakeBridge(t, func(conn *websocket.Conn, _ message) {
		_ = conn.WriteJSON(message{Type: EventJoined})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	})

	b, err := Connect(context.Background(), url, JoinRequest{}, observability.NewLogger())
	require.NoError(t, err)
	defer b.Close()

	select {
	case _, ok := <-b.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed")
	}
	_, ok := <-b.AudioIn()
	assert.False(t, ok)
}

func TestMediaBridge_CloseTwice(t *testing.T) {
	url := fakeBridge(t, func(conn *websocket.Conn, _ message) {
		_ = conn.WriteJSON(message{Type: EventJoined})
		var msg message
		for conn.ReadJSON(&msg) == nil {
		}
	})

	b, err := Connect(context.Background(), url, JoinRequest{}, observability.NewLogger())
	require.NoError(t, err)

	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())
	assert.ErrorIs(t, b.Interrupt(), ErrClosed)
}
