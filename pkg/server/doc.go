// Package server exposes the render pipeline over HTTP.
//
// Routes:
//
//	POST /render   JSON tikz.Request → image/png, or JSON when Accept: application/json
//	GET  /healthz  liveness check
//
// Errors are JSON objects {"code", "error", "detail"}: 400 for invalid
// requests, 422 when the engine or converter fails, 504 on timeout.
// Every response carries an X-Request-ID header.
//
// Requests cannot read or write server files: input_file, export_file and
// debug are ignored, and the engine must be one of Deps.Engines.
package server
