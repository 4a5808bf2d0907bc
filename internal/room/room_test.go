package room

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/ovida/internal/audio"
	"github.com/nadzzz/ovida/internal/soundstage"
)

func TestRespond(t *testing.T) {
	tests := []struct {
		name string
		in   ClientEvent
		want string
		ok   bool
	}{
		{"join", ClientEvent{Type: TypeJoin, GuestID: "g"}, `{"type":"room.state","state":"joined"}`, true},
		{"leave", ClientEvent{Type: TypeLeave}, `{"type":"room.state","state":"left"}`, true},
		{"vote", ClientEvent{Type: TypeVote, ChoiceID: "reflect", BeatIdx: 0}, `{"type":"room.result","choice_id":"reflect","beat_idx":0}`, true},
		{"unknown", ClientEvent{Type: "room.shout"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := Respond(tt.in)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestAudioEvent(t *testing.T) {
	plan := soundstage.PlanFor("The ghost drifts.", 1)
	narrator := audio.NarratorProfile{Voice: "v"}

	files := AudioEvent(audio.MockResult(plan, narrator), 1)
	assert.Equal(t, TypeAudioStart, files.Type)
	assert.Equal(t, "mock", files.Provider)
	assert.Len(t, files.URLs, 2)
	assert.Equal(t, audio.MockMIME, files.MIME)
	assert.Nil(t, files.Session)
	require.NotNil(t, files.BeatIdx)
	assert.Equal(t, 1, *files.BeatIdx)

	stream := AudioEvent(&audio.StreamResult{
		Provider:   "openai-realtime",
		Session:    audio.Session{Model: "m", Voice: "verse"},
		Soundstage: plan,
		Narrator:   narrator,
	}, 2)
	assert.Equal(t, TypeAudioStreamStart, stream.Type)
	require.NotNil(t, stream.Session)
	assert.Equal(t, "verse", stream.Session.Voice)
	assert.Empty(t, stream.URLs)
	assert.Equal(t, "Ethereal Whisper", stream.Soundstage.Cues[0].Label)
	assert.Equal(t, "v", stream.Narrator.Voice)
}

func TestDirectory(t *testing.T) {
	d := NewDirectory()
	r := d.Create("haunted-shore", "", ModeParty)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, int64(12000), r.VoteWindowMs)

	got, err := d.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)

	_, err = d.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeParty, m)

	m, err = ParseMode("duo")
	require.NoError(t, err)
	assert.Equal(t, ModeDuo, m)

	_, err = ParseMode("stadium")
	assert.Error(t, err)
}

func dial(t *testing.T, srv *httptest.Server, roomID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + roomID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func newHubServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub()
	hub.Bind(NewLocalBroker(hub))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, strings.TrimPrefix(r.URL.Path, "/"))
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func waitClients(t *testing.T, hub *Hub, roomID string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Clients(roomID) == n }, 5*time.Second, 10*time.Millisecond)
}

func TestHub_VoteReachesRoomOnly(t *testing.T) {
	hub, srv := newHubServer(t)

	a := dial(t, srv, "r1")
	b := dial(t, srv, "r1")
	other := dial(t, srv, "r2")
	waitClients(t, hub, "r1", 2)
	waitClients(t, hub, "r2", 1)

	require.NoError(t, a.WriteJSON(ClientEvent{Type: TypeVote, RoomID: "r1", ChoiceID: "continue", BeatIdx: 3}))

	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		assert.Equal(t, TypeResult, ev.Type)
		assert.Equal(t, "continue", ev.ChoiceID)
		require.NotNil(t, ev.BeatIdx)
		assert.Equal(t, 3, *ev.BeatIdx)
	}

	hub.Deliver("r2", Event{Type: TypeState, State: "joined"})
	assert.Equal(t, TypeState, readEvent(t, other).Type)
}

func TestHub_RejectsBadFrames(t *testing.T) {
	hub, srv := newHubServer(t)
	conn := dial(t, srv, "r1")
	waitClients(t, hub, "r1", 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	assert.Equal(t, TypeError, readEvent(t, conn).Type)

	require.NoError(t, conn.WriteJSON(ClientEvent{Type: TypeJoin, RoomID: "elsewhere"}))
	assert.Equal(t, TypeError, readEvent(t, conn).Type)

	require.NoError(t, conn.WriteJSON(ClientEvent{Type: "room.dance"}))
	ev := readEvent(t, conn)
	assert.Equal(t, TypeError, ev.Type)
	assert.Contains(t, ev.Message, "room.dance")
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, srv := newHubServer(t)
	conn := dial(t, srv, "r1")
	waitClients(t, hub, "r1", 1)

	require.NoError(t, conn.Close())
	waitClients(t, hub, "r1", 0)
	hub.Deliver("r1", Event{Type: TypeBeat})
}

type recorder struct {
	mu     sync.Mutex
	events map[string][]Event
}

func (r *recorder) Deliver(roomID string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = make(map[string][]Event)
	}
	r.events[roomID] = append(r.events[roomID], ev)
}

func (r *recorder) get(roomID string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events[roomID]...)
}

func TestRedisBroker_Relay(t *testing.T) {
	rec := &recorder{}
	b, err := NewRedisBroker("redis://127.0.0.1:6379/0", rec)
	require.NoError(t, err)
	defer b.Close()

	b.relay(&redis.Message{Channel: Channel("abc"), Payload: `{"type":"room.state","state":"joined"}`})
	b.relay(&redis.Message{Channel: Channel("abc"), Payload: `not json`})

	got := rec.get("abc")
	require.Len(t, got, 1)
	assert.Equal(t, "joined", got[0].State)
	assert.Equal(t, "ovida:room:abc", Channel("abc"))

	_, err = NewRedisBroker("://bad", rec)
	assert.Error(t, err)
}

// Needs a Redis server; set OVIDA_TEST_REDIS_URL to run.
func TestRedisBroker_RoundTrip(t *testing.T) {
	url := os.Getenv("OVIDA_TEST_REDIS_URL")
	if url == "" {
		t.Skip("OVIDA_TEST_REDIS_URL not set")
	}

	rec := &recorder{}
	b, err := NewRedisBroker(url, rec)
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Run(ctx) }()

	require.Eventually(t, func() bool {
		_ = b.Publish(ctx, "room-1", BeatEvent(4))
		return len(rec.get("room-1")) > 0
	}, 5*time.Second, 100*time.Millisecond)

	ev := rec.get("room-1")[0]
	assert.Equal(t, TypeBeat, ev.Type)
	assert.Equal(t, 4, *ev.BeatIdx)
}
