package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erwpulse/internal/middleware"
	"erwpulse/internal/shared/testutil"
	"erwpulse/pkg/contracts/events"
)

func newTestServer(t *testing.T, opts HandlerOptions) (*Hub, string) {
	t.Helper()
	hub := NewHub(testutil.DiscardLogger(), nil)
	hub.Start()
	t.Cleanup(hub.Stop)

	if opts.Logger == nil {
		opts.Logger = testutil.DiscardLogger()
	}
	srv := httptest.NewServer(middleware.RequestID(NewHandler(hub, opts)))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHandler_LiveUpdates(t *testing.T) {
	hub, url := newTestServer(t, HandlerOptions{})

	header := http.Header{middleware.RequestIDHeader: {"req-42"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	connect := readMessage(t, conn)
	assert.Equal(t, events.MessageTypeConnect, connect.Type)
	assert.Equal(t, "req-42", connect.TraceID)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Broadcast(events.NewMessage(events.MessageTypeDatasetUpdated, events.DatasetUpdated{Feedstock: "calcite", Threshold: 5, SamplesAdded: 3}))

	update := readMessage(t, conn)
	assert.Equal(t, events.MessageTypeDatasetUpdated, update.Type)
	var data events.DatasetUpdated
	require.NoError(t, json.Unmarshal(update.Data, &data))
	assert.Equal(t, 3, data.SamplesAdded)
}

func TestHandler_ClientDisconnectUnregisters(t *testing.T) {
	hub, url := newTestServer(t, HandlerOptions{})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	readMessage(t, conn)
	require.Equal(t, 1, hub.ClientCount())

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_HubStopClosesConnection(t *testing.T) {
	hub, url := newTestServer(t, HandlerOptions{})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	readMessage(t, conn)

	hub.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestHandler_Origins(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		wantOK  bool
	}{
		{name: "no origin", allowed: []string{"http://dash.test"}, wantOK: true},
		{name: "listed origin", allowed: []string{"http://dash.test"}, origin: "http://dash.test", wantOK: true},
		{name: "wildcard", allowed: []string{"*"}, origin: "http://any.test", wantOK: true},
		{name: "foreign origin", allowed: []string{"http://dash.test"}, origin: "http://evil.test", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, url := newTestServer(t, HandlerOptions{AllowedOrigins: tt.allowed})

			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if tt.wantOK {
				require.NoError(t, err)
				conn.Close()
				return
			}

			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), "json")
		})
	}
}

func TestHandler_PlainRequestRejected(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewHandler(NewHub(testutil.DiscardLogger(), nil), HandlerOptions{Logger: logger})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "WEBSOCKET_UPGRADE_FAILED", body["error_code"])
	assert.True(t, logs.Has(slog.LevelWarn, "websocket upgrade failed"))
}

func TestTiming_Defaults(t *testing.T) {
	tests := []struct {
		name string
		in   Timing
		want Timing
	}{
		{name: "zero", in: Timing{}, want: Timing{PingPeriod: 54 * time.Second, PongWait: 60 * time.Second}},
		{name: "custom", in: Timing{PingPeriod: 5 * time.Second, PongWait: 10 * time.Second}, want: Timing{PingPeriod: 5 * time.Second, PongWait: 10 * time.Second}},
		{name: "ping too slow", in: Timing{PingPeriod: 20 * time.Second, PongWait: 10 * time.Second}, want: Timing{PingPeriod: 9 * time.Second, PongWait: 10 * time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.withDefaults())
		})
	}
}
