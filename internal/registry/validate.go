// ABOUTME: Registry-level validation entry points for named tools and prompts.
// ABOUTME: Unknown names report a "not found" FieldError instead of passing.

package registry

import (
	"fmt"

	"github.com/2389/lattice-mcp/internal/validate"
)

// ValidateToolArgs validates raw arguments against the named tool's schema.
// An unknown tool name yields a single FieldError rather than an empty
// schema pass.
func (r *Registry) ValidateToolArgs(name string, raw map[string]any) (map[string]any, []validate.FieldError) {
	def, ok := r.tools[name]
	if !ok {
		return nil, []validate.FieldError{{
			Parameter: name,
			Message:   fmt.Sprintf("tool %q not found", name),
		}}
	}
	return validate.Apply(def.schema, raw)
}

// ValidatePromptArgs validates raw arguments against the named prompt's
// schema, with the same unknown-name behavior as ValidateToolArgs.
func (r *Registry) ValidatePromptArgs(name string, raw map[string]any) (map[string]any, []validate.FieldError) {
	def, ok := r.prompts[name]
	if !ok {
		return nil, []validate.FieldError{{
			Parameter: name,
			Message:   fmt.Sprintf("prompt %q not found", name),
		}}
	}
	return validate.Apply(def.schema, raw)
}
