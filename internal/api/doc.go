// Package api implements the HTTP API of the key issuer.
//
// # Endpoints
//
// Credential lifecycle:
//   - POST /issue - Generate a credential and start its confirmation window
//   - POST /confirm - Report what happened to a credential
//   - POST /issue/failed - Report that the client could not finish issuance
//
// Telemetry:
//   - POST /api/stats - Append a JSON value or array to the stats collection
//   - GET /api/stats - Return the stats collection
//
// Operations:
//   - GET /health - Liveness probe
//   - GET /ready - Readiness probe
//   - GET /metrics - Prometheus metrics
//
// # Error Handling
//
// Errors are returned as {"error": "..."} with an appropriate status code.
// Internal errors are logged but not exposed to clients. No request failure
// affects other pending credentials.
package api
