// Package httpserver exposes the dispatcher over HTTP.
//
// A single POST /mcp endpoint carries all JSON-RPC traffic. Authentication
// resolves before the body is read; CORS preflight (OPTIONS) bypasses it.
// Notifications are acknowledged with 202 and no body. Auth failures
// present a constant body regardless of cause, with the status code (401
// caller fault, 500 server misconfiguration) as the only distinction.
package httpserver
