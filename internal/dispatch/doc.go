// Package dispatch routes JSON-RPC envelopes to registered handlers.
//
// # Overview
//
// The dispatcher is the protocol core of lattice-mcp. It maps the fixed
// MCP method set onto a frozen registry:
//
//   - initialize, ping - server identity and liveness
//   - tools/list, tools/call - tool discovery and execution
//   - resources/list, resources/read - resource discovery and reads
//   - prompts/list, prompts/get - prompt discovery and rendering
//
// Dispatch is a pure function of the classified envelope, the registry
// contents, and the principal carried in the context. It holds no mutable
// state, so any number of calls may run concurrently.
//
// # Notifications
//
// Envelopes without an id key are notifications. They produce no response;
// Dispatch returns nil and the transport acknowledges with a bodyless
// status. Unknown notification methods are logged and ignored rather than
// answered with an error, since there is nowhere to send one.
//
// # Error Mapping
//
// Handler failures map onto the wire in three tiers:
//
//   - *registry.HandlerError propagates its code and message verbatim
//     (code 0 falls back to -32000)
//   - a recovered panic becomes -32603 with a generic message; the detail
//     stays in the logs
//   - any other error becomes -32000 "Tool execution failed"
//
// Validation failures surface as -32602 with the FieldError list attached
// as error data, so clients can render per-parameter messages.
package dispatch
