package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

// startTestServer spins up an httptest.Server with a full Hub wired to a
// throwaway SQLite repository, grounded on the teacher's
// integration_test.go startTestServer.
func startTestServer(t *testing.T) (*httptest.Server, string, *Auth) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arena.db")
	repo, err := OpenRepository(path)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	pubsub := NewPubSub()
	registry := NewRegistry(pubsub, repo, NewTelemetry(repo), time.Hour, 30*time.Minute, 60*time.Minute, 0)
	t.Cleanup(registry.Shutdown)
	auth := NewAuth(repo, "")

	hub := NewHub(registry, pubsub, repo, auth)
	go hub.Run()

	mux := SetupRoutes(hub)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return srv, wsURL, auth
}

func dialWS(t *testing.T, wsURL, matchID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?match_id="+matchID, nil)
	if err != nil {
		t.Fatalf("dial WS: %v", err)
	}
	return conn
}

// dialWSAs authenticates the socket as a registered user, so the resulting
// userID (and thus host privileges) is known ahead of time rather than a
// freshly minted guest id.
func dialWSAs(t *testing.T, wsURL, matchID, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?match_id="+matchID+"&token="+token, nil)
	if err != nil {
		t.Fatalf("dial WS: %v", err)
	}
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read WS: %v", err)
	}
	if len(raw) > 0 && raw[0] == 0xFF {
		delta, err := decodeBinaryDelta(raw)
		if err != nil {
			t.Fatalf("decode binary delta: %v", err)
		}
		return Envelope{T: MsgStateDelta, Data: delta}
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return env
}

func sendMsg(t *testing.T, conn *websocket.Conn, msgType string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(struct {
		T string      `json:"t"`
		D interface{} `json:"d,omitempty"`
	}{T: msgType, D: data})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write WS: %v", err)
	}
}

func dataMap(t *testing.T, env Envelope) map[string]interface{} {
	t.Helper()
	raw, _ := json.Marshal(env.Data)
	var m map[string]interface{}
	json.Unmarshal(raw, &m)
	return m
}

// createMatchHTTP posts to /matches and returns the new match's id and code.
func createMatchHTTP(t *testing.T, srv *httptest.Server, hostID string, isSolo bool) (string, string) {
	t.Helper()
	body := strings.NewReader(`{"host_id":"` + hostID + `","is_public":true,"is_solo":` + boolStr(isSolo) + `}`)
	resp, err := http.Post(srv.URL+"/matches", "application/json", body)
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	defer resp.Body.Close()
	var out createMatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode create match response: %v", err)
	}
	return out.MatchID, out.Code
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func TestWSJoinReturnsFullState(t *testing.T) {
	srv, wsURL, _ := startTestServer(t)
	matchID, _ := createMatchHTTP(t, srv, "host1", true)

	conn := dialWS(t, wsURL, matchID)
	defer conn.Close()

	sendMsg(t, conn, MsgJoin, JoinMsg{Name: "Nova", AvatarRef: ""})
	env := readEnvelope(t, conn)
	assert.Equal(t, MsgJoinedFullState, env.T)

	d := dataMap(t, env)
	assert.Equal(t, matchID, d["match_id"])
	assert.Equal(t, StatusWaiting, d["status"])
}

func TestWSJoinUnknownMatchErrors(t *testing.T) {
	_, wsURL, _ := startTestServer(t)

	// SetupRoutes 404s an unknown match_id before the upgrade completes,
	// so the dial itself fails rather than yielding an error envelope.
	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?match_id=does-not-exist", nil)
	assert.Error(t, err)
	if assert.NotNil(t, resp) {
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}
}

func TestWSSoloStartGameNeedsOnlyHost(t *testing.T) {
	srv, wsURL, auth := startTestServer(t)
	hostID, token, err := auth.Register("nova", "hunter2", "Nova")
	assert.NoError(t, err)

	matchID, _ := createMatchHTTP(t, srv, hostID, true)

	conn := dialWSAs(t, wsURL, matchID, token)
	defer conn.Close()

	sendMsg(t, conn, MsgJoin, JoinMsg{Name: "Nova"})
	joined := readEnvelope(t, conn)
	assert.Equal(t, MsgJoinedFullState, joined.T)
	assert.Equal(t, hostID, dataMap(t, joined)["host_id"])

	sendMsg(t, conn, MsgStartGame, nil)

	started := readEnvelope(t, conn)
	assert.Equal(t, MsgGameStarted, started.T)
}

func TestWSInputThenStateDeltaBroadcasts(t *testing.T) {
	srv, wsURL, _ := startTestServer(t)
	matchID, _ := createMatchHTTP(t, srv, "host1", true)

	conn := dialWS(t, wsURL, matchID)
	defer conn.Close()

	sendMsg(t, conn, MsgJoin, JoinMsg{Name: "Solo"})
	_ = readEnvelope(t, conn) // joined
	sendMsg(t, conn, MsgStartGame, nil)
	_ = readEnvelope(t, conn) // game_started

	sendMsg(t, conn, MsgInput, InputMsg{W: true})

	env := readEnvelope(t, conn)
	assert.Equal(t, MsgStateDelta, env.T)
	delta, ok := env.Data.(StateDeltaMsg)
	if assert.True(t, ok) {
		assert.NotNil(t, delta.Players)
	}
}

func TestWSSecondPlayerJoinsAndBothSeePlayerJoined(t *testing.T) {
	srv, wsURL, _ := startTestServer(t)
	matchID, _ := createMatchHTTP(t, srv, "host1", false)

	c1 := dialWS(t, wsURL, matchID)
	defer c1.Close()
	sendMsg(t, c1, MsgJoin, JoinMsg{Name: "Alice"})
	_ = readEnvelope(t, c1) // joined

	c2 := dialWS(t, wsURL, matchID)
	defer c2.Close()
	sendMsg(t, c2, MsgJoin, JoinMsg{Name: "Bob"})
	joined2 := readEnvelope(t, c2)
	assert.Equal(t, MsgJoinedFullState, joined2.T)

	broadcast := readEnvelope(t, c1)
	assert.Equal(t, MsgPlayerJoined, broadcast.T)
	assert.Equal(t, "Bob", dataMap(t, broadcast)["name"])
}

func TestWSBuyPowerupInsufficientCoinsSendsError(t *testing.T) {
	srv, wsURL, _ := startTestServer(t)
	matchID, _ := createMatchHTTP(t, srv, "host1", true)

	conn := dialWS(t, wsURL, matchID)
	defer conn.Close()
	sendMsg(t, conn, MsgJoin, JoinMsg{Name: "Solo"})
	_ = readEnvelope(t, conn) // joined
	sendMsg(t, conn, MsgStartGame, nil)
	_ = readEnvelope(t, conn) // game_started

	sendMsg(t, conn, MsgBuyPowerup, BuyPowerupMsg{Type: string(PowerupSpeed)})
	env := readEnvelope(t, conn)
	assert.Equal(t, MsgError, env.T)
}

func TestWSLobbyCreateListLookup(t *testing.T) {
	srv, _, _ := startTestServer(t)
	matchID, code := createMatchHTTP(t, srv, "host1", false)
	assert.NotEmpty(t, matchID)
	assert.Len(t, code, 6)

	resp, err := http.Get(srv.URL + "/matches/lookup?code=" + code)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestHTTPRegisterLoginThenWSJoin drives the actual /register and /login
// HTTP routes (not Auth.Register/Login called in-process) and uses the
// returned token to open a WebSocket, confirming a real client has a path
// from no identity to a non-guest one.
func TestHTTPRegisterLoginThenWSJoin(t *testing.T) {
	srv, wsURL, _ := startTestServer(t)

	regBody, _ := json.Marshal(registerRequest{Username: "nova", Password: "hunter2", DisplayName: "Nova"})
	regResp, err := http.Post(srv.URL+"/register", "application/json", strings.NewReader(string(regBody)))
	assert.NoError(t, err)
	defer regResp.Body.Close()
	assert.Equal(t, http.StatusOK, regResp.StatusCode)

	var reg authResponse
	assert.NoError(t, json.NewDecoder(regResp.Body).Decode(&reg))
	assert.NotEmpty(t, reg.UserID)
	assert.NotEmpty(t, reg.Token)

	loginBody, _ := json.Marshal(loginRequest{Username: "nova", Password: "hunter2"})
	loginResp, err := http.Post(srv.URL+"/login", "application/json", strings.NewReader(string(loginBody)))
	assert.NoError(t, err)
	defer loginResp.Body.Close()
	assert.Equal(t, http.StatusOK, loginResp.StatusCode)

	var login authResponse
	assert.NoError(t, json.NewDecoder(loginResp.Body).Decode(&login))
	assert.Equal(t, reg.UserID, login.UserID)

	matchID, _ := createMatchHTTP(t, srv, reg.UserID, true)
	conn := dialWSAs(t, wsURL, matchID, login.Token)
	defer conn.Close()

	sendMsg(t, conn, MsgJoin, JoinMsg{Name: "Nova"})
	joined := readEnvelope(t, conn)
	assert.Equal(t, MsgJoinedFullState, joined.T)
	assert.Equal(t, reg.UserID, dataMap(t, joined)["host_id"])
}

func TestWSDisconnectLeavesEmptyWaitingMatch(t *testing.T) {
	srv, wsURL, _ := startTestServer(t)
	matchID, _ := createMatchHTTP(t, srv, "host1", true)

	conn := dialWS(t, wsURL, matchID)
	sendMsg(t, conn, MsgJoin, JoinMsg{Name: "Solo"})
	_ = readEnvelope(t, conn) // joined

	conn.Close()

	// Reconnecting to the same match_id should fail once the actor has
	// self-stopped and the registry has dropped it (spec §5.2's onStop
	// path), polled since the unregister/leave path is asynchronous.
	assert.Eventually(t, func() bool {
		c, _, err := websocket.DefaultDialer.Dial(wsURL+"?match_id="+matchID, nil)
		if err == nil {
			c.Close()
			return false
		}
		return true
	}, 2*time.Second, 20*time.Millisecond)
}
