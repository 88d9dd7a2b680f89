package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"erwpulse/internal/infrastructure"
	"erwpulse/internal/shared/testutil"
	"erwpulse/pkg/contracts/events"
)

// wireMessage is events.Message as a client decodes it.
type wireMessage struct {
	Type    events.MessageType `json:"type"`
	TraceID string             `json:"trace_id"`
	Data    json.RawMessage    `json:"data"`
}

func testClient(hub *Hub, buffer int) *Client {
	return &Client{
		hub:         hub,
		send:        make(chan []byte, buffer),
		id:          "client-" + time.Now().Format("150405.000000"),
		traceID:     "trace-1",
		connectedAt: time.Now(),
		logger:      testutil.DiscardLogger(),
	}
}

func receive(t *testing.T, c *Client) wireMessage {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg wireMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return wireMessage{}
	}
}

func TestHub_RegisterSendsConnectMessage(t *testing.T) {
	hub := NewHub(testutil.DiscardLogger(), nil)
	hub.Start()
	defer hub.Stop()

	client := testClient(hub, 4)
	hub.Register(client)

	msg := receive(t, client)
	assert.Equal(t, events.MessageTypeConnect, msg.Type)
	assert.Equal(t, "trace-1", msg.TraceID)

	var data events.ConnectData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, client.id, data.ClientID)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub := NewHub(testutil.DiscardLogger(), nil)
	hub.Start()
	defer hub.Stop()

	clients := []*Client{testClient(hub, 4), testClient(hub, 4), testClient(hub, 4)}
	for _, c := range clients {
		hub.Register(c)
		receive(t, c)
	}

	update := events.NewMessage(events.MessageTypeDatasetUpdated, events.DatasetUpdated{Feedstock: "calcite", Threshold: 5, SamplesAdded: 12})
	update.TraceID = "upload-7"
	hub.Broadcast(update)

	for _, c := range clients {
		msg := receive(t, c)
		assert.Equal(t, events.MessageTypeDatasetUpdated, msg.Type)
		assert.Equal(t, "upload-7", msg.TraceID)

		var data events.DatasetUpdated
		require.NoError(t, json.Unmarshal(msg.Data, &data))
		assert.Equal(t, "calcite", data.Feedstock)
		assert.Equal(t, 12, data.SamplesAdded)
	}

	assert.Eventually(t, func() bool { return hub.Stats().MessagesSent == 3 }, time.Second, 10*time.Millisecond)
}

func TestHub_SlowClientIsDisconnected(t *testing.T) {
	hub := NewHub(testutil.DiscardLogger(), nil)
	hub.Start()
	defer hub.Stop()

	fast := testClient(hub, 8)
	slow := testClient(hub, 1)
	hub.Register(fast)
	hub.Register(slow)
	receive(t, fast)

	// slow's buffer still holds its connect message.
	hub.Broadcast(events.NewMessage(events.MessageTypeDatasetUpdated, events.DatasetUpdated{Feedstock: "basalt"}))

	assert.Equal(t, events.MessageTypeDatasetUpdated, receive(t, fast).Type)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), hub.Stats().SlowDisconnects)

	assert.Equal(t, events.MessageTypeConnect, receive(t, slow).Type)
	_, ok := <-slow.send
	assert.False(t, ok, "slow client channel closed")
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub(testutil.DiscardLogger(), nil)
	hub.Start()
	defer hub.Stop()

	client := testClient(hub, 4)
	hub.Register(client)
	receive(t, client)

	hub.unregisterClient(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)

	// A second unregister is ignored.
	hub.unregisterClient(client)
	assert.Equal(t, int64(1), hub.Stats().TotalConnections)
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub(testutil.DiscardLogger(), nil)
	hub.Start()

	client := testClient(hub, 4)
	hub.Register(client)
	receive(t, client)

	hub.Stop()
	hub.Stop()

	_, ok := <-client.send
	assert.False(t, ok)
	assert.Zero(t, hub.ClientCount())
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	hub := NewHub(logger, nil)

	// Not started: the queue fills and further messages are dropped.
	for i := 0; i < broadcastQueue+5; i++ {
		hub.Broadcast(events.NewMessage(events.MessageTypeDatasetUpdated, nil))
	}
	assert.Equal(t, int64(5), hub.Stats().MessagesDropped)

	hub.Stop()
	hub.Broadcast(events.NewMessage(events.MessageTypeDatasetUpdated, nil))
	assert.Equal(t, int64(6), hub.Stats().MessagesDropped)
	assert.True(t, logs.Has(slog.LevelWarn, "broadcast dropped"))
}

func TestHub_RegisterAfterStop(t *testing.T) {
	hub := NewHub(testutil.DiscardLogger(), nil)
	hub.Start()
	hub.Stop()

	client := testClient(hub, 1)
	hub.Register(client)

	_, ok := <-client.send
	assert.False(t, ok)
	assert.Zero(t, hub.ClientCount())
}

func TestHub_TracksConnectedClients(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := infrastructure.CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	hub := NewHub(testutil.DiscardLogger(), metrics)
	hub.Start()

	a, b := testClient(hub, 4), testClient(hub, 4)
	hub.Register(a)
	hub.Register(b)
	receive(t, a)
	receive(t, b)
	assert.Equal(t, int64(2), clientGauge(t, reader))

	hub.Stop()
	assert.Equal(t, int64(0), clientGauge(t, reader))
}

func clientGauge(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "websocket_clients" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	t.Fatal("websocket_clients not recorded")
	return 0
}
