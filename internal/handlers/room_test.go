package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/auth"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/models"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/session"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/store"
	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*RoomServer, *httptest.Server) {
	t.Helper()
	require.NoError(t, auth.Init(0))

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	m := session.NewManager(store.NewMemoryStore(), nil, logger, session.Options{})
	t.Cleanup(m.Close)

	rs := NewRoomServer(m, logger)
	srv := httptest.NewServer(rs.Routes())
	t.Cleanup(srv.Close)
	return rs, srv
}

// client is one participant with a fixed bearer token.
type client struct {
	t     *testing.T
	base  string
	id    string
	token string
}

func newClient(t *testing.T, base, id string) *client {
	t.Helper()
	token, err := auth.CreateJWT(id)
	require.NoError(t, err)
	return &client{t: t, base: base, id: id, token: token}
}

func (c *client) do(method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	c.t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	require.NoError(c.t, err)
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func createRoom(t *testing.T, host *client, variant string) string {
	t.Helper()
	resp, body := host.do(http.MethodPost, "/rooms", map[string]interface{}{"variant": variant})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["code"].(string)
}

func TestCreateRoomIssuesIdentity(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/rooms", "application/json", strings.NewReader(`{"variant":"saboteur"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var token string
	for _, c := range resp.Cookies() {
		if c.Name == TokenCookie {
			token = c.Value
		}
	}
	require.NotEmpty(t, token, "anonymous caller gets a token cookie")
	assert.Equal(t, token, resp.Header.Get("X-Participant-Token"))
	hostID, err := auth.AuthenticateJWT(token)
	require.NoError(t, err)

	var body struct {
		Code    string          `json:"code"`
		JoinURL string          `json:"joinUrl"`
		State   models.RoomView `json:"state"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Code, 4)
	assert.Equal(t, hostID, body.State.HostID)
	assert.True(t, body.State.IsHost)
	assert.Equal(t, models.VariantSaboteur, body.State.Variant)
	assert.True(t, strings.HasSuffix(body.JoinURL, "/?room="+body.Code))
}

func TestCreateRoomRejectsBadInput(t *testing.T) {
	_, srv := newTestServer(t)
	host := newClient(t, srv.URL, "host")

	resp, body := host.do(http.MethodPost, "/rooms", map[string]interface{}{"variant": "bingo"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid", body["error"])

	resp, _ = host.do(http.MethodPost, "/rooms", map[string]interface{}{"rules": map[string]interface{}{"maxRounds": 0}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIntentFlow(t *testing.T) {
	_, srv := newTestServer(t)
	host := newClient(t, srv.URL, "host")
	ada := newClient(t, srv.URL, "ada")
	code := createRoom(t, host, "kitchen")

	resp, body := ada.do(http.MethodPost, "/rooms/"+code+"/intents", map[string]interface{}{"type": "join", "name": "Ada"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := body["state"].(map[string]interface{})
	assert.Equal(t, "ada", state["you"])
	assert.Len(t, state["players"], 1)

	// repeating the same join changes nothing and is not an error
	resp, _ = ada.do(http.MethodPost, "/rooms/"+code+"/intents", map[string]interface{}{"type": "join", "name": "Ada"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = ada.do(http.MethodPost, "/rooms/"+code+"/intents", map[string]interface{}{"type": "start"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", body["error"])

	resp, body = host.do(http.MethodPost, "/rooms/"+code+"/intents", map[string]interface{}{"type": "start"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "not_ready", body["error"])

	resp, body = ada.do(http.MethodPost, "/rooms/"+code+"/intents", map[string]interface{}{"type": "dance"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown_intent", body["error"])

	resp, _ = host.do(http.MethodGet, "/rooms/"+strings.ToLower(code), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClientCannotImpersonateClock(t *testing.T) {
	_, srv := newTestServer(t)
	host := newClient(t, srv.URL, "host")
	code := createRoom(t, host, "kitchen")

	resp, body := host.do(http.MethodPost, "/rooms/"+code+"/intents", map[string]interface{}{"type": "tick", "actor": "system"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", body["error"])
}

func TestUnknownRoom(t *testing.T) {
	_, srv := newTestServer(t)
	c := newClient(t, srv.URL, "p1")

	resp, body := c.do(http.MethodGet, "/rooms/ZZZZ", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["error"])

	resp, _ = c.do(http.MethodPost, "/rooms/ZZZZ/intents", map[string]interface{}{"type": "join", "name": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMalformedIntent(t *testing.T) {
	_, srv := newTestServer(t)
	host := newClient(t, srv.URL, "host")
	code := createRoom(t, host, "kitchen")

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/rooms/"+code+"/intents", strings.NewReader("{nope"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+host.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQRCode(t *testing.T) {
	_, srv := newTestServer(t)
	host := newClient(t, srv.URL, "host")
	code := createRoom(t, host, "saboteur")

	resp, err := http.Get(srv.URL + "/rooms/" + code + "/qr")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestAdminRequiresPassword(t *testing.T) {
	rs, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/admin/rooms")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "admin disabled without a hash")

	hash, err := auth.CreateHash("s3cret", &auth.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	rs.AdminUser = "admin"
	rs.AdminPasswordHash = hash
	createRoom(t, newClient(t, srv.URL, "host"), "kitchen")

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/admin/rooms", nil)
	req.SetBasicAuth("admin", "wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.SetBasicAuth("admin", "s3cret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rooms []session.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	assert.Len(t, rooms, 1)
}

func TestHealth(t *testing.T) {
	rs, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	rs.Checks["redis"] = func(context.Context) error { return errors.New("connection refused") }
	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestClassify(t *testing.T) {
	status, code := classify(store.ErrUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unavailable", code)

	status, _ = classify(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
}

func dialRoom(t *testing.T, srv *httptest.Server, c *client, code string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/rooms/"+code+"/ws", &websocket.DialOptions{
		Subprotocols: []string{wsSubprotocol},
		HTTPHeader:   header,
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg wsMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func writeFrame(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestWebSocketRoundTrip(t *testing.T) {
	_, srv := newTestServer(t)
	host := newClient(t, srv.URL, "host")
	ada := newClient(t, srv.URL, "ada")
	code := createRoom(t, host, "kitchen")

	hostConn := dialRoom(t, srv, host, code)
	snap := readMessage(t, hostConn)
	require.Equal(t, "state", snap.Type)
	assert.True(t, snap.State.IsHost)

	adaConn := dialRoom(t, srv, ada, code)
	require.Equal(t, "state", readMessage(t, adaConn).Type)

	writeFrame(t, adaConn, map[string]interface{}{"type": "join", "name": "Ada", "ref": "j1"})

	update := readMessage(t, adaConn)
	require.Equal(t, "state", update.Type)
	require.Len(t, update.State.Players, 1)
	assert.Equal(t, "Ada", update.State.Players[0].Name)
	require.NotEmpty(t, update.Events)

	ack := readMessage(t, adaConn)
	assert.Equal(t, "ack", ack.Type)
	assert.Equal(t, "j1", ack.Ref)

	hostUpdate := readMessage(t, hostConn)
	assert.Equal(t, "state", hostUpdate.Type)
	assert.Len(t, hostUpdate.State.Players, 1)

	writeFrame(t, adaConn, map[string]interface{}{"type": "start", "ref": "s1"})
	rejected := readMessage(t, adaConn)
	assert.Equal(t, "error", rejected.Type)
	assert.Equal(t, "s1", rejected.Ref)
	assert.Equal(t, "forbidden", rejected.Error)
}

func TestWebSocketUnknownRoom(t *testing.T) {
	_, srv := newTestServer(t)
	c := newClient(t, srv.URL, "p1")
	conn := dialRoom(t, srv, c, "ZZZZ")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusCode(RoomNotFoundError), websocket.CloseStatus(err))
}

func TestWebSocketRateLimit(t *testing.T) {
	rs, srv := newTestServer(t)
	rs.WSRate = 0.001
	rs.WSBurst = 1
	host := newClient(t, srv.URL, "host")
	code := createRoom(t, host, "kitchen")

	conn := dialRoom(t, srv, host, code)
	readMessage(t, conn)

	writeFrame(t, conn, map[string]interface{}{"type": "reset", "ref": "r1"})
	first := readMessage(t, conn)
	for first.Type == "state" {
		first = readMessage(t, conn)
	}
	assert.Equal(t, "r1", first.Ref)
	assert.NotEqual(t, "rate_limited", first.Error)

	writeFrame(t, conn, map[string]interface{}{"type": "reset", "ref": "r2"})
	second := readMessage(t, conn)
	assert.Equal(t, "error", second.Type)
	assert.Equal(t, "rate_limited", second.Error)
}
