package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/relishlabs/maitre-client/core/conversation"
	"github.com/relishlabs/maitre-client/core/sessions"
	"github.com/relishlabs/maitre-client/core/transport"
)

// testAgent is a fake remote agent serving both websocket endpoints. It
// records the dialed URLs and every inbound message per endpoint.
type testAgent struct {
	mu sync.Mutex

	server   *httptest.Server
	upgrader websocket.Upgrader

	dialedURLs []url.URL
	received   map[string][]map[string]any
}

func newTestAgent(t *testing.T) *testAgent {
	t.Helper()

	agent := &testAgent{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		received: map[string][]map[string]any{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/events", func(w http.ResponseWriter, r *http.Request) { agent.serve(t, w, r) })
	mux.HandleFunc("/ws/voice", func(w http.ResponseWriter, r *http.Request) { agent.serve(t, w, r) })
	agent.server = httptest.NewServer(mux)
	t.Cleanup(agent.server.Close)

	return agent
}

func (a *testAgent) serve(t *testing.T, w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.dialedURLs = append(a.dialedURLs, *r.URL)
	a.mu.Unlock()

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.Errorf("failed to upgrade test connection: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var decoded map[string]any
		if err := json.Unmarshal(message, &decoded); err != nil {
			continue
		}
		a.mu.Lock()
		a.received[r.URL.Path] = append(a.received[r.URL.Path], decoded)
		a.mu.Unlock()
	}
}

func (a *testAgent) wsURL() string {
	return "ws" + strings.TrimPrefix(a.server.URL, "http")
}

func (a *testAgent) receivedOn(path string) []map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]map[string]any(nil), a.received[path]...)
}

func (a *testAgent) dialed() []url.URL {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]url.URL(nil), a.dialedURLs...)
}

func waitForAgent(t *testing.T, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func newConnectedClient(t *testing.T, agent *testAgent, opts ...ClientOption) *Client {
	t.Helper()

	client, _, _ := newTestClient(t, append([]ClientOption{WithServerURL(agent.wsURL())}, opts...)...)
	t.Cleanup(func() { client.Close() })

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected connect error: %v", err)
	}
	return client
}

func TestClientConnectCarriesSessionID(t *testing.T) {
	agent := newTestAgent(t)
	client := newConnectedClient(t, agent)

	dialed := agent.dialed()
	if len(dialed) != 1 {
		t.Fatalf("expected one dial, got %d", len(dialed))
	}
	if got := dialed[0].Query().Get("session_id"); got != client.SessionID() {
		t.Fatalf("expected session id %q on the URL, got %q", client.SessionID(), got)
	}
	if client.ResumedSession() {
		t.Fatalf("expected a fresh session")
	}
}

func TestClientResumesRecentSession(t *testing.T) {
	agent := newTestAgent(t)

	store, err := sessions.NewStore(sessions.WithPath(filepath.Join(t.TempDir(), "session.json")))
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
	if err := store.Touch("previous-session"); err != nil {
		t.Fatalf("unexpected touch error: %v", err)
	}

	client, err := New(
		WithServerURL(agent.wsURL()),
		WithSessionStore(store),
	)
	if err != nil {
		t.Fatalf("unexpected client error: %v", err)
	}
	defer client.Close()

	if !client.ResumedSession() {
		t.Fatalf("expected session resume")
	}
	if got := client.SessionID(); got != "previous-session" {
		t.Fatalf("expected resumed session id, got %q", got)
	}
}

func TestClientSendTextReachesEventChannel(t *testing.T) {
	agent := newTestAgent(t)
	client := newConnectedClient(t, agent)

	if err := client.SendText("two margherita please"); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}

	waitForAgent(t, func() bool { return len(agent.receivedOn("/ws/events")) == 1 })
	message := agent.receivedOn("/ws/events")[0]
	if message["type"] != "USER_MESSAGE" || message["text"] != "two margherita please" {
		t.Fatalf("unexpected wire message %v", message)
	}

	state := client.Conversation()
	if len(state.Messages) != 1 || state.Messages[0].Role != conversation.RoleUser {
		t.Fatalf("expected local echo of the user message, got %+v", state.Messages)
	}
}

func TestClientVoiceLifecycle(t *testing.T) {
	agent := newTestAgent(t)
	client := newConnectedClient(t, agent)

	if err := client.EnableVoice(context.Background()); err != nil {
		t.Fatalf("unexpected voice error: %v", err)
	}
	if got := client.VoiceStatus(); got != transport.StatusConnected {
		t.Fatalf("expected voice connected, got %q", got)
	}

	dialed := agent.dialed()
	voiceURL := dialed[len(dialed)-1]
	if voiceURL.Path != "/ws/voice" {
		t.Fatalf("expected voice dial, got %q", voiceURL.Path)
	}
	if got := voiceURL.Query().Get("language"); got != "en" {
		t.Fatalf("expected default language on voice URL, got %q", got)
	}

	if err := client.DisableVoice(); err != nil {
		t.Fatalf("unexpected disable error: %v", err)
	}
	if got := client.VoiceStatus(); got != transport.StatusDisconnected {
		t.Fatalf("expected voice disconnected, got %q", got)
	}
	if got := client.EventsStatus(); got != transport.StatusConnected {
		t.Fatalf("expected event channel to survive, got %q", got)
	}
}

func TestClientVoiceUnavailableWhenCaptureFails(t *testing.T) {
	agent := newTestAgent(t)

	store, err := sessions.NewStore(sessions.WithPath(filepath.Join(t.TempDir(), "session.json")))
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
	capture := &fakeCaptureDevice{startErr: errors.New("microphone permission denied")}
	client, err := New(
		WithServerURL(agent.wsURL()),
		WithSessionStore(store),
		WithFreshSession(),
		WithCaptureDevice(capture),
		WithPlaybackDevice(&fakePlaybackDevice{}),
	)
	if err != nil {
		t.Fatalf("unexpected client error: %v", err)
	}
	defer client.Close()

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected connect error: %v", err)
	}
	if err := client.EnableVoice(context.Background()); err == nil {
		t.Fatalf("expected voice enable to fail")
	}

	// The voice channel is torn back down; text mode keeps working.
	if got := client.VoiceStatus(); got != transport.StatusDisconnected {
		t.Fatalf("expected voice torn down after capture failure, got %q", got)
	}
	if err := client.SendText("still here"); err != nil {
		t.Fatalf("expected text mode to survive, got %v", err)
	}
}

func TestClientBargeInSendsOneStopSpeech(t *testing.T) {
	agent := newTestAgent(t)
	client := newConnectedClient(t, agent)

	if err := client.EnableVoice(context.Background()); err != nil {
		t.Fatalf("unexpected voice error: %v", err)
	}

	// One buffer playing, two more queued.
	chunk := base64.StdEncoding.EncodeToString(make([]byte, 32))
	client.handleVoiceRecord([]byte(`{"type":"audio_start"}`))
	for i := 0; i < 3; i++ {
		client.handleVoiceRecord([]byte(fmt.Sprintf(`{"type":"audio_chunk","audio":%q}`, chunk)))
	}

	if err := client.BargeIn(); err != nil {
		t.Fatalf("unexpected barge-in error: %v", err)
	}

	if client.playback.Active() {
		t.Fatalf("expected playback queue cleared by barge-in")
	}
	if got := client.TurnState(); got != TurnIdle {
		t.Fatalf("expected idle after barge-in, got %v", got)
	}

	waitForAgent(t, func() bool { return len(agent.receivedOn("/ws/voice")) == 1 })
	time.Sleep(50 * time.Millisecond)
	messages := agent.receivedOn("/ws/voice")
	if len(messages) != 1 {
		t.Fatalf("expected exactly one control message, got %d", len(messages))
	}
	if messages[0]["type"] != "control" || messages[0]["action"] != "stop_speech" {
		t.Fatalf("unexpected control message %v", messages[0])
	}
}

func TestClientCaptureMutedDuringAgentSpeech(t *testing.T) {
	agent := newTestAgent(t)

	store, err := sessions.NewStore(sessions.WithPath(filepath.Join(t.TempDir(), "session.json")))
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
	capture := &fakeCaptureDevice{}
	client, err := New(
		WithServerURL(agent.wsURL()),
		WithSessionStore(store),
		WithFreshSession(),
		WithCaptureDevice(capture),
		WithPlaybackDevice(&fakePlaybackDevice{}),
	)
	if err != nil {
		t.Fatalf("unexpected client error: %v", err)
	}
	defer client.Close()

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected connect error: %v", err)
	}
	if err := client.EnableVoice(context.Background()); err != nil {
		t.Fatalf("unexpected voice error: %v", err)
	}

	audioChunks := func() int {
		count := 0
		for _, message := range agent.receivedOn("/ws/voice") {
			if message["type"] == "audio_chunk" {
				count++
			}
		}
		return count
	}

	client.handleVoiceRecord([]byte(`{"type":"audio_start"}`))
	capture.inject(t, make([]byte, 4096))
	time.Sleep(50 * time.Millisecond)
	if got := audioChunks(); got != 0 {
		t.Fatalf("expected no transmission during agent speech, got %d chunks", got)
	}

	// Releasing the floor unmutes capture.
	client.BargeIn()
	capture.inject(t, make([]byte, 4096))
	waitForAgent(t, func() bool { return audioChunks() == 4 })
}

func TestClientBargeInWithoutVoiceIsNoop(t *testing.T) {
	agent := newTestAgent(t)
	client := newConnectedClient(t, agent)

	if err := client.BargeIn(); err != nil {
		t.Fatalf("expected barge-in without voice to be a no-op, got %v", err)
	}
}

func TestClientApplyConfigReconnectsVoiceOnLanguageChange(t *testing.T) {
	agent := newTestAgent(t)
	client := newConnectedClient(t, agent)

	if err := client.EnableVoice(context.Background()); err != nil {
		t.Fatalf("unexpected voice error: %v", err)
	}

	if err := client.ApplyConfig(context.Background(), Config{Language: "hr"}); err != nil {
		t.Fatalf("unexpected config error: %v", err)
	}

	waitForAgent(t, func() bool {
		dialed := agent.dialed()
		last := dialed[len(dialed)-1]
		return last.Path == "/ws/voice" && last.Query().Get("language") == "hr"
	})

	// The event channel was not re-dialed for a voice-only change.
	eventDials := 0
	for _, dialed := range agent.dialed() {
		if dialed.Path == "/ws/events" {
			eventDials++
		}
	}
	if eventDials != 1 {
		t.Fatalf("expected a single event channel dial, got %d", eventDials)
	}
}

func TestClientCloseIsIdempotent(t *testing.T) {
	agent := newTestAgent(t)
	client := newConnectedClient(t, agent)

	if err := client.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("expected repeated close to be a no-op, got %v", err)
	}
}
