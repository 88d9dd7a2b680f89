// Package http implements the HTTP handlers of the ERW Pulse API. Handlers
// stay thin: they parse and validate query or form parameters, call a
// service and render the result as JSON with go-chi/render.
//
// # Parameters
//
// Dataset endpoints take feedstock (default "calcite") and omega (default
// 5). Parameters are decoded into the request contracts of
// pkg/contracts/api/v1 and checked with middleware.Validator.
//
// # Errors
//
// Every failure goes through errors.ErrorHandler and is rendered as an
// RFC 7807 problem document:
//
//	400  invalid parameters, bad grouping field
//	413  upload over the size limit
//	415  upload that is not multipart/form-data
//	422  workbook that cannot be read
//	503  sample store unavailable
//	504  request deadline exceeded
package http
