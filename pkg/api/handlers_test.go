package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/strategy-canvas/pkg/canvas"
	"github.com/dd0wney/strategy-canvas/pkg/geometry"
	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/pubsub"
)

type nodeJSON struct {
	ID            graph.NodeID   `json:"id"`
	Kind          string         `json:"kind"`
	Title         string         `json:"title"`
	Geometry      geometry.Rect  `json:"geometry"`
	ParentGroupID graph.NodeID   `json:"parentGroupId"`
	Connections   []graph.NodeID `json:"connections"`
	Payload       map[string]any `json:"payload"`
}

func (e *testEnv) addNode(t *testing.T, body map[string]any) nodeJSON {
	t.Helper()
	w := e.do(t, "POST", "/canvases/board/nodes", body, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[nodeJSON](t, w)
}

func (e *testEnv) flush(t *testing.T) {
	t.Helper()
	c, ok := e.manager.Get("board")
	require.True(t, ok)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Flush(ctx))
}

func TestAddNode(t *testing.T) {
	env := newTestEnv(t, false, Config{})

	n := env.addNode(t, map[string]any{
		"kind":    "document-agent",
		"title":   "Research",
		"x":       40,
		"y":       60,
		"payload": map[string]any{"documentIds": []string{"d1"}},
	})
	assert.Equal(t, "document-agent", n.Kind)
	assert.Equal(t, "Research", n.Title)
	assert.Equal(t, geometry.R(40, 60, 250, 150), n.Geometry)

	env.flush(t)
	stored, ok := env.store.Node(n.ID)
	require.True(t, ok)
	assert.Equal(t, "Research", stored.Title)

	spawned := env.addNode(t, map[string]any{"kind": "generic"})
	assert.NotEqual(t, n.ID, spawned.ID)
	assert.Equal(t, 250.0, spawned.Geometry.Width)
}

func TestAddNodeRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, false, Config{})

	tests := []struct {
		name string
		body any
		want string
	}{
		{"unknown kind", map[string]any{"kind": "spaceship"}, "unknown node kind"},
		{"x without y", map[string]any{"kind": "generic", "x": 1}, "Y: field is required"},
		{"unknown field", map[string]any{"kind": "generic", "colour": "red"}, "invalid request body"},
		{"empty body", "", "empty request body"},
		{"not json", "{", "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", "/canvases/board/nodes", tt.body, "")
			require.Equal(t, http.StatusBadRequest, w.Code)
			resp := decode[ErrorResponse](t, w)
			assert.Contains(t, resp.Message, tt.want)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}
}

func TestDropNodeConvertsClientPoint(t *testing.T) {
	env := newTestEnv(t, false, Config{})
	w := env.do(t, "POST", "/canvases/board/wheel", map[string]any{"x": 0, "y": 0, "factor": 2}, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "POST", "/canvases/board/drop", map[string]any{"kind": "generic", "x": 200, "y": 100}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	n := decode[nodeJSON](t, w)
	assert.Equal(t, geometry.Pt(100, 50), n.Geometry.Origin())

	w = env.do(t, "POST", "/canvases/board/drop", map[string]any{"kind": "generic"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateNode(t *testing.T) {
	env := newTestEnv(t, false, Config{})
	group := env.addNode(t, map[string]any{"kind": "group", "x": 0, "y": 0})
	card := env.addNode(t, map[string]any{"kind": "generic", "x": 20, "y": 40})
	path := "/canvases/board/nodes/" + string(card.ID)

	w := env.do(t, "PATCH", path, map[string]any{"title": "Renamed", "payload": map[string]any{"model": "x"}}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	n := decode[nodeJSON](t, w)
	assert.Equal(t, "Renamed", n.Title)
	assert.Equal(t, map[string]any{"model": "x"}, n.Payload)

	w = env.do(t, "PATCH", path, map[string]any{"parentGroupId": string(group.ID)}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, group.ID, decode[nodeJSON](t, w).ParentGroupID)

	w = env.do(t, "PATCH", "/canvases/board/nodes/"+string(group.ID), map[string]any{"parentGroupId": string(card.ID)}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "cards are not groups")

	w = env.do(t, "PATCH", "/canvases/board/nodes/ghost", map[string]any{"title": "x"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, "PATCH", path, map[string]any{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteNode(t *testing.T) {
	env := newTestEnv(t, false, Config{})
	a := env.addNode(t, map[string]any{"kind": "generic", "x": 0, "y": 0})
	b := env.addNode(t, map[string]any{"kind": "generic", "x": 400, "y": 0})
	w := env.do(t, "POST", "/canvases/board/connections", map[string]any{"from": a.ID, "to": b.ID}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, "DELETE", "/canvases/board/nodes/"+string(b.ID), nil, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, "GET", "/canvases/board", nil, "")
	snap := decode[struct {
		Nodes []nodeJSON `json:"nodes"`
		Edges []any      `json:"edges"`
	}](t, w)
	require.Len(t, snap.Nodes, 1)
	assert.Empty(t, snap.Nodes[0].Connections)
	assert.Empty(t, snap.Edges)

	w = env.do(t, "DELETE", "/canvases/board/nodes/"+string(b.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSelected(t *testing.T) {
	env := newTestEnv(t, false, Config{})
	w := env.do(t, "DELETE", "/canvases/board/selection", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[DeleteResponse](t, w).Found)

	n := env.addNode(t, map[string]any{"kind": "generic", "x": 100, "y": 100})
	// a click selects
	for _, typ := range []string{"down", "up"} {
		w = env.do(t, "POST", "/canvases/board/pointer", map[string]any{"type": typ, "x": 150, "y": 200}, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w = env.do(t, "DELETE", "/canvases/board/selection", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[DeleteResponse](t, w)
	assert.True(t, resp.Found)
	assert.Equal(t, n.ID, resp.Deleted)
}

func TestConnections(t *testing.T) {
	env := newTestEnv(t, false, Config{})
	a := env.addNode(t, map[string]any{"kind": "generic", "x": 100, "y": 100})
	b := env.addNode(t, map[string]any{"kind": "generic", "x": 500, "y": 100})
	edge := map[string]any{"from": a.ID, "to": b.ID}

	w := env.do(t, "POST", "/canvases/board/connections", edge, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decode[ConnectionResponse](t, w).Changed)

	w = env.do(t, "POST", "/canvases/board/connections", edge, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[ConnectionResponse](t, w).Changed, "duplicate is a no-op")

	w = env.do(t, "POST", "/canvases/board/connections", map[string]any{"from": a.ID, "to": "ghost"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, "POST", "/canvases/board/connections", map[string]any{"from": a.ID}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "DELETE", "/canvases/board/connections", edge, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[ConnectionResponse](t, w).Changed)

	env.flush(t)
	stored, _ := env.store.Node(a.ID)
	assert.Empty(t, stored.Connections)
}

func TestDisconnectByEdgeHit(t *testing.T) {
	env := newTestEnv(t, false, Config{})
	a := env.addNode(t, map[string]any{"kind": "generic", "x": 100, "y": 100})
	b := env.addNode(t, map[string]any{"kind": "generic", "x": 500, "y": 100})
	env.do(t, "POST", "/canvases/board/connections", map[string]any{"from": a.ID, "to": b.ID}, "")

	// right anchor of a is (350,175), left anchor of b is (500,175)
	w := env.do(t, "DELETE", "/canvases/board/connections?x=420&y=600", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, "DELETE", "/canvases/board/connections?x=425&y=175", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[ConnectionResponse](t, w)
	assert.Equal(t, a.ID, resp.From)
	assert.Equal(t, b.ID, resp.To)

	w = env.do(t, "DELETE", "/canvases/board/connections?x=abc&y=1", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPointerDrag(t *testing.T) {
	env := newTestEnv(t, false, Config{})
	n := env.addNode(t, map[string]any{"kind": "generic", "x": 100, "y": 100})

	send := func(typ string, x, y float64) canvas.PointerResult {
		w := env.do(t, "POST", "/canvases/board/pointer", map[string]any{"type": typ, "x": x, "y": y}, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode[canvas.PointerResult](t, w)
	}

	send("down", 150, 200)
	w := env.do(t, "POST", "/canvases/board/pointer", map[string]any{"type": "down", "x": 150, "y": 200}, "")
	assert.Equal(t, http.StatusConflict, w.Code, "second gesture while dragging")

	send("move", 200, 220)
	res := send("up", 200, 220)
	require.NotNil(t, res.Ended)
	assert.True(t, res.Ended.Committed)
	assert.Equal(t, n.ID, res.Ended.NodeID)

	env.flush(t)
	stored, _ := env.store.Node(n.ID)
	assert.Equal(t, geometry.Pt(150, 120), stored.Geometry.Origin())

	w = env.do(t, "POST", "/canvases/board/pointer", map[string]any{"type": "hover", "x": 1, "y": 1}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWheelAndView(t *testing.T) {
	env := newTestEnv(t, false, Config{})

	w := env.do(t, "POST", "/canvases/board/wheel", map[string]any{"x": 100, "y": 100, "factor": 2}, "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[ViewResponse](t, w).View
	assert.Equal(t, 2.0, view.Scale)
	assert.Equal(t, geometry.Pt(-100, -100), view.Offset)

	w = env.do(t, "POST", "/canvases/board/wheel", map[string]any{"x": 0, "y": 0, "factor": 0}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/canvases/board/view", map[string]any{"action": "reset"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode[ViewResponse](t, w).View.Scale)

	w = env.do(t, "POST", "/canvases/board/view", map[string]any{"action": "zoom", "factor": 0.5}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.5, decode[ViewResponse](t, w).View.Scale)

	env.addNode(t, map[string]any{"kind": "generic", "x": 1000, "y": 1000})
	w = env.do(t, "POST", "/canvases/board/view", map[string]any{"action": "fit", "width": 800, "height": 600}, "")
	require.Equal(t, http.StatusOK, w.Code)
	c, _ := env.manager.Get("board")
	tl := c.Snapshot().View
	assert.Equal(t, decode[ViewResponse](t, w).View, tl)

	w = env.do(t, "POST", "/canvases/board/view", map[string]any{"action": "spin"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLayout(t *testing.T) {
	env := newTestEnv(t, false, Config{})
	for i := 0; i < 4; i++ {
		env.addNode(t, map[string]any{"kind": "generic", "x": 0, "y": 0})
	}

	w := env.do(t, "POST", "/canvases/board/layout", map[string]any{"algorithm": "grid"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[LayoutResponse](t, w)
	assert.Equal(t, "grid", resp.Algorithm)
	assert.Equal(t, 3, resp.Moved)

	w = env.do(t, "POST", "/canvases/board/layout", map[string]any{"algorithm": "spiral"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRenderSVG(t *testing.T) {
	env := newTestEnv(t, false, Config{})
	env.addNode(t, map[string]any{"kind": "generic", "title": "Goal", "x": 10, "y": 10})

	w := env.do(t, "GET", "/canvases/board/render.svg", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "<svg")
	assert.Contains(t, w.Body.String(), "Goal")
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest("GET", "/canvases/board/render.svg", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	env.addNode(t, map[string]any{"kind": "generic", "x": 400, "y": 10})
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "frame changed")
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t, false, Config{})
	srv := httptest.NewServer(env.server.Handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/canvases/board/events"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var first pubsub.Message
	require.NoError(t, wsjson.Read(ctx, conn, &first))
	assert.Equal(t, EventSnapshot, first.Type)
	assert.Equal(t, "board", first.Canvas)

	require.Eventually(t, func() bool {
		return env.bus.SubscriberCount(pubsub.CanvasTopics("board")) > 0
	}, time.Second, 10*time.Millisecond)

	resp, err := http.Post(srv.URL+"/canvases/board/nodes", "application/json", strings.NewReader(`{"kind":"generic","x":1,"y":2}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got pubsub.Message
	for got.Type != "node.added" {
		require.NoError(t, wsjson.Read(ctx, conn, &got))
	}
	assert.Equal(t, pubsub.GraphTopic("board"), got.Topic)

	conn.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool {
		return env.bus.SubscriberCount(pubsub.CanvasTopics("board")) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventStreamDisabled(t *testing.T) {
	env := newTestEnv(t, false, Config{})
	s, err := NewServer(Options{Manager: env.manager})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/canvases/board/events", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
