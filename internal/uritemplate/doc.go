// Package uritemplate compiles URI patterns with {name} placeholders into
// anchored matchers.
//
// A placeholder matches one or more characters excluding "/", so adjacent
// path segments cannot collapse into a single variable. Matching is exact
// over the whole URI; a candidate with extra leading or trailing content
// does not match.
package uritemplate
