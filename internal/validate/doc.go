// Package validate checks caller arguments against declared parameter
// schemas and coerces them to their declared types.
//
// # Stages
//
// Apply runs fixed stages in order: default substitution and presence,
// enum membership, numeric bounds, string length, custom validators, and
// finally coercion with a type check. Each stage short-circuits the later
// ones, so a caller sees the first failing category rather than a cascade
// of follow-on errors for the same value. Within a stage, fields are
// checked in name order, so identical inputs always report identical error
// lists. A JSON null for a typed parameter fails the type check; only
// untyped parameters accept it.
//
// # Coercion
//
// Only unambiguous conversions are performed: "5" to int64, "2.5" to
// float64, "true"/"1" to bool (case-insensitive), json.Number to its
// numeric type, and integral float64 to int64. Anything else is left
// unchanged for the type check to report. Coercion is idempotent; applying
// a schema to already-coerced arguments is a no-op.
package validate
