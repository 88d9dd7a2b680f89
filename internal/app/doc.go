// Package app wires ERW Pulse together and owns its lifecycle.
//
// New opens the configured backends (sample store, response cache, upload
// archive), builds the services and the websocket hub, and assembles the
// chi router:
//
//	/ws          live dataset updates (gorilla/websocket)
//	/metrics     Prometheus scrape
//	/api/...     dashboard, ingest, chat context and health endpoints
//
// The /api group runs RequestID → RealIP → OTel → Logger → Recoverer →
// SecurityHeaders → CORS → rate limit → Timeout. The websocket endpoint only
// gets RequestID, RealIP and its own tracing middleware because the others
// wrap the ResponseWriter.
//
// Start loads the seed workbook into an empty store, starts the hub and
// serves in the background. Stop shuts the server down and closes every
// backend. Run does both around SIGINT/SIGTERM.
//
// Initialization errors are returned; the package never calls os.Exit.
package app
