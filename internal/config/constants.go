package config

import "time"

// Application constants
const (
	AppName = "ERW Pulse"

	// Dataset shown when a request names none.
	DefaultFeedstock = "calcite"
	DefaultThreshold = 5

	DefaultRequestTimeout = 60 * time.Second
	DefaultMaxUploadBytes = 32 << 20

	DataCacheDuration = 5 * time.Minute

	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second
)

// Endpoints
const (
	APIBasePath       = "/api"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
