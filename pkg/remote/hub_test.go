package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vango-dev/livestate/pkg/reactive"
)

// runHub starts hub.Run and stops it when the test ends.
func runHub(t *testing.T, hub *Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func startServer(t *testing.T, root any) (*Hub, *httptest.Server) {
	t.Helper()
	hub, err := NewHub(root)
	require.NoError(t, err)
	runHub(t, hub)

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"}))
	srv := httptest.NewServer(NewRouter(hub, WithMetrics(reg)))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubDoRunsOnHubGoroutine(t *testing.T) {
	b := newBoard()
	hub, err := NewHub(b)
	require.NoError(t, err)
	runHub(t, hub)

	var phase any
	require.NoError(t, hub.Do(context.Background(), func(root *reactive.Node) {
		phase = root.Get("phase")
	}))
	assert.Equal(t, "lobby", phase)

	res, err := hub.Apply(context.Background(), Event{Assignments: []Assignment{set("phase", "playing")}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)

	data, err := hub.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"phase":"playing"`)
}

func TestHubStopped(t *testing.T) {
	hub, err := NewHub(newBoard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, hub.Run(ctx), context.Canceled)

	_, err = hub.Apply(context.Background(), Event{})
	assert.ErrorIs(t, err, ErrHubStopped)
}

func TestHubDoHonorsContext(t *testing.T) {
	hub, err := NewHub(newBoard())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = hub.Do(ctx, func(*reactive.Node) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewHubRequiresObject(t *testing.T) {
	_, err := NewHub("not an object")
	assert.ErrorIs(t, err, reactive.ErrNotWrappable)
}

func TestWebsocketSession(t *testing.T) {
	hub, srv := startServer(t, newBoard())
	conn := dial(t, srv)

	hello := read(t, conn)
	assert.Equal(t, TypeHello, hello.Type)
	_, err := uuid.Parse(hello.Session)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return hub.SessionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeSubscribe, ID: "n", Path: "round.number"}))
	msg := read(t, conn)
	assert.Equal(t, TypeValue, msg.Type)
	assert.Equal(t, "n", msg.ID)
	assert.Equal(t, "round.number", msg.Path)
	assert.JSONEq(t, `1`, string(msg.Value))

	// Two writes in one event reach the client as one value.
	_, err = hub.Apply(context.Background(), Event{Assignments: []Assignment{
		set("round.number", 2),
		set("round.number", 3),
	}})
	require.NoError(t, err)
	msg = read(t, conn)
	assert.JSONEq(t, `3`, string(msg.Value))

	// Replacing the intermediate object re-resolves the path.
	_, err = hub.Apply(context.Background(), Event{Assignments: []Assignment{
		set("round", map[string]any{"number": 10, "prompt": "draw a dog"}),
	}})
	require.NoError(t, err)
	msg = read(t, conn)
	assert.JSONEq(t, `10`, string(msg.Value))

	// Apply from the client: the value arrives before the acknowledgement.
	apply := &Event{Name: "bump", Assignments: []Assignment{set("round.number", 11)}}
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeApply, ID: "a1", Event: apply}))
	msg = read(t, conn)
	assert.Equal(t, TypeValue, msg.Type)
	assert.JSONEq(t, `11`, string(msg.Value))
	msg = read(t, conn)
	assert.Equal(t, TypeApplied, msg.Type)
	assert.Equal(t, "a1", msg.ID)
	require.NotNil(t, msg.Result)
	assert.Equal(t, Result{Name: "bump", Applied: 1}, *msg.Result)

	// After unsubscribing, only the acknowledgement arrives.
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeUnsubscribe, ID: "n"}))
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeApply, ID: "a2", Event: &Event{
		Assignments: []Assignment{set("round.number", 12)},
	}}))
	msg = read(t, conn)
	assert.Equal(t, TypeApplied, msg.Type)
	assert.Equal(t, "a2", msg.ID)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.SessionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebsocketSubscribeObjectValue(t *testing.T) {
	_, srv := startServer(t, newBoard())
	conn := dial(t, srv)
	read(t, conn)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeSubscribe, ID: "r", Path: "round"}))
	msg := read(t, conn)
	assert.JSONEq(t, `{"number":1,"prompt":"draw a cat"}`, string(msg.Value))

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeSubscribe, ID: "missing", Path: "nope.deeper"}))
	msg = read(t, conn)
	assert.Equal(t, "missing", msg.ID)
	assert.Contains(t, []string{"", "null"}, string(msg.Value))
}

func TestWebsocketErrors(t *testing.T) {
	_, srv := startServer(t, newBoard())
	conn := dial(t, srv)
	read(t, conn)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "bogus", ID: "x"}))
	msg := read(t, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Contains(t, msg.Error, "bogus")

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeApply, ID: "y"}))
	msg = read(t, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, "y", msg.ID)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeApply, ID: "z", Event: &Event{
		Assignments: []Assignment{set("phase", 7)},
	}}))
	msg = read(t, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Contains(t, msg.Error, "E102")
}

func TestHubStopClosesSessions(t *testing.T) {
	hub, err := NewHub(newBoard())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Run(ctx)
	}()
	srv := httptest.NewServer(NewRouter(hub))
	defer srv.Close()

	conn := dial(t, srv)
	read(t, conn)

	cancel()
	<-done

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func post(t *testing.T, url, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(out)
}

func TestRouter(t *testing.T) {
	b := newBoard()
	_, srv := startServer(t, b)

	status, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)

	status, body = get(t, srv.URL+"/state")
	assert.Equal(t, http.StatusOK, status)
	var state board
	require.NoError(t, json.Unmarshal([]byte(body), &state))
	assert.Equal(t, "lobby", state.Phase)

	status, body = post(t, srv.URL+"/events", `{"name":"go","assignments":[{"path":"phase","value":"playing"}]}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"name":"go","applied":1,"skipped":0}`, body)

	status, body = post(t, srv.URL+"/events", `{"assignments":[{"path":""}]}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, `"code":"E401"`)

	status, body = post(t, srv.URL+"/events", `{"assignments":[{"path":"round.number","value":"x"}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, `"code":"E102"`)

	status, body = get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "test_total")

	status, _ = get(t, srv.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRouterMetricsPath(t *testing.T) {
	hub, err := NewHub(newBoard())
	require.NoError(t, err)
	runHub(t, hub)

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "moved_total", Help: "test"}))
	srv := httptest.NewServer(NewRouter(hub, WithMetrics(reg), WithMetricsPath("/internal/metrics")))
	t.Cleanup(srv.Close)

	status, body := get(t, srv.URL+"/internal/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "moved_total")

	status, _ = get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusNotFound, status)
}
