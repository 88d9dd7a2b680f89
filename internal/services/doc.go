// Package services implements the business logic between the HTTP
// transport and the sample store.
//
// # Services
//
//   - DashboardService answers every dashboard panel. Results are computed
//     by the analytics package over the samples of one dataset (feedstock
//     plus saturation threshold) and cached per dataset.
//   - IngestService loads results workbooks: it archives the upload,
//     normalizes rows, writes samples and summaries, updates the feedstock
//     registry, drops cached panels of the feedstock and broadcasts a
//     dataset_updated event.
//   - ChatContextBuilder assembles the grounding text of the assistant panel.
//   - HealthService reports liveness and store readiness.
//
// # Errors
//
// Store failures come back as *errors.AppError of type UPSTREAM wrapping
// ErrUpstreamUnavailable, which the transport renders as 503. Invalid
// aggregation requests and unreadable workbooks become VALIDATION and
// PARSING errors. Context cancellation is returned unwrapped.
package services
