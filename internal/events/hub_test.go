package events

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev map[string]any
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHubReplaysLastViewAndStreams(t *testing.T) {
	h := NewHub(nil, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	h.Publish(KindView, map[string]string{"mode": "idle"})
	h.Publish(KindProgress, Progress{Op: "fetch_attractions", Attempt: 1, TotalAttempts: 6})

	conn, _, err := dial(t, srv, "")
	require.NoError(t, err)
	defer conn.Close()

	ev := readEvent(t, conn)
	assert.Equal(t, KindView, ev["kind"])
	assert.Equal(t, "idle", ev["payload"].(map[string]any)["mode"])

	waitClients(t, h, 1)
	h.Publish(KindProgress, Progress{Op: "login", Attempt: 2, TotalAttempts: 3})

	ev = readEvent(t, conn)
	assert.Equal(t, KindProgress, ev["kind"])
	payload := ev["payload"].(map[string]any)
	assert.Equal(t, "login", payload["op"])
	assert.Equal(t, float64(2), payload["attempt"])
	assert.Equal(t, float64(3), ev["seq"])
}

func TestHubRejectsUnknownOrigin(t *testing.T) {
	h := NewHub([]string{"http://allowed.test"}, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	_, resp, err := dial(t, srv, "http://evil.test")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dial(t, srv, "http://allowed.test/")
	require.NoError(t, err)
	_ = conn.Close()
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	h := NewHub(nil, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := dial(t, srv, "")
	require.NoError(t, err)
	waitClients(t, h, 1)

	_ = conn.Close()
	waitClients(t, h, 0)
}

func TestClosedHubIgnoresPublish(t *testing.T) {
	h := NewHub(nil, nil)
	h.Close()
	h.Publish(KindView, nil)
	assert.Zero(t, h.Clients())
}
