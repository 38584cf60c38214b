// Package registry holds the tool, resource, and prompt definitions the
// dispatcher serves.
//
// # Registration
//
// Definitions are registered at startup and the registry is then frozen;
// registration after Freeze fails with ErrFrozen. Listing order is
// registration order for tools and prompts, and resource templates are
// matched in registration order with the first match winning.
//
// # Derived Schemas
//
// Each definition declares its parameters as []ParamSpec. At registration
// time two views are derived and cached:
//
//   - a validate.Schema used to check and coerce caller arguments
//   - a JSON Schema object served by tools/list as inputSchema
//
// A definition with no parameters derives a nil schema, which opts the
// handler out of validation entirely.
package registry
