// ABOUTME: Startup-time registry of tool, resource, and prompt definitions.
// ABOUTME: Derives validation schemas at registration; read-only once frozen.

package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/lattice-mcp/internal/auth"
	"github.com/2389/lattice-mcp/internal/uritemplate"
	"github.com/2389/lattice-mcp/internal/validate"
)

// ErrDuplicateName indicates a tool or prompt name is already registered.
var ErrDuplicateName = errors.New("name already registered")

// ErrFrozen indicates a registration was attempted after Freeze.
var ErrFrozen = errors.New("registry is frozen")

// ParamSpec declares one parameter of a tool or prompt. The struct-literal
// registration API replaces the macro-driven definitions of other MCP
// implementations; schema derivation happens once, at registration time.
type ParamSpec struct {
	Name        string
	Description string
	Type        validate.Type
	Required    bool
	Default     any
	Enum        []any
	Min         *float64
	Max         *float64
	MinLength   *int
	MaxLength   *int
	Validate    func(any) bool
}

// Float returns a pointer for ParamSpec bound fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer for ParamSpec length fields.
func Int(v int) *int { return &v }

// HandlerError lets a handler control the JSON-RPC error code and message
// returned to the caller. Any other error defaults to the generic tool
// failure code.
type HandlerError struct {
	Code    int
	Message string
}

func (e *HandlerError) Error() string {
	return e.Message
}

// ToolHandler executes a tool call with validated, coerced arguments.
type ToolHandler func(ctx context.Context, principal auth.Principal, args map[string]any) (any, error)

// ResourceHandler serves a resource read. params holds the URI template
// placeholder values extracted from the requested URI.
type ResourceHandler func(ctx context.Context, principal auth.Principal, params map[string]string) (any, error)

// PromptMessage is one role-tagged message of a prompt result.
type PromptMessage struct {
	Role    string        `json:"role"`
	Content PromptContent `json:"content"`
}

// PromptContent is the content of a prompt message.
type PromptContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// PromptHandler renders a prompt into role-tagged messages.
type PromptHandler func(ctx context.Context, principal auth.Principal, args map[string]any) ([]PromptMessage, error)

// ToolDefinition describes a registered tool.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  []ParamSpec
	Handler     ToolHandler

	schema      validate.Schema
	inputSchema map[string]any
}

// Schema returns the validation schema derived at registration. Nil when
// the tool was registered without declared parameters, which opts it out
// of validation.
func (d *ToolDefinition) Schema() validate.Schema {
	return d.schema
}

// InputSchema returns the JSON Schema document advertised by tools/list.
func (d *ToolDefinition) InputSchema() map[string]any {
	return d.inputSchema
}

// ResourceEntry describes a registered resource template.
type ResourceEntry struct {
	URIPattern  string
	Description string
	MIMEType    string
	Handler     ResourceHandler

	template *uritemplate.Template
}

// Template returns the compiled URI template.
func (e *ResourceEntry) Template() *uritemplate.Template {
	return e.template
}

// PromptDefinition describes a registered prompt.
type PromptDefinition struct {
	Name        string
	Description string
	Parameters  []ParamSpec
	Handler     PromptHandler

	schema validate.Schema
}

// Schema returns the validation schema derived at registration.
func (d *PromptDefinition) Schema() validate.Schema {
	return d.schema
}

// Registry holds every dispatchable definition. Build it at startup, call
// Freeze, then share it by reference across concurrent requests; it is
// never mutated at request time.
type Registry struct {
	tools     map[string]*ToolDefinition
	toolOrder []string
	resources []*ResourceEntry
	prompts   map[string]*PromptDefinition
	promptSeq []string
	frozen    bool
	logger    *slog.Logger
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:   make(map[string]*ToolDefinition),
		prompts: make(map[string]*PromptDefinition),
		logger:  logger.With("component", "registry"),
	}
}

// RegisterTool adds a tool definition. Returns ErrDuplicateName if the name
// is taken and ErrFrozen after Freeze.
func (r *Registry) RegisterTool(def ToolDefinition) error {
	if r.frozen {
		return ErrFrozen
	}
	if def.Name == "" {
		return errors.New("tool name is required")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %q: handler is required", def.Name)
	}
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("%w: tool %q", ErrDuplicateName, def.Name)
	}

	def.schema = deriveSchema(def.Parameters)
	def.inputSchema = deriveInputSchema(def.Parameters)

	d := def
	r.tools[def.Name] = &d
	r.toolOrder = append(r.toolOrder, def.Name)
	r.logger.Debug("registered tool", "name", def.Name, "params", len(def.Parameters))
	return nil
}

// RegisterResource adds a resource template. Templates are tried in
// registration order at read time; the first match wins.
func (r *Registry) RegisterResource(entry ResourceEntry) error {
	if r.frozen {
		return ErrFrozen
	}
	if entry.URIPattern == "" {
		return errors.New("resource uri pattern is required")
	}
	if entry.Handler == nil {
		return fmt.Errorf("resource %q: handler is required", entry.URIPattern)
	}

	tmpl, err := uritemplate.Compile(entry.URIPattern)
	if err != nil {
		return fmt.Errorf("resource %q: %w", entry.URIPattern, err)
	}
	entry.template = tmpl

	e := entry
	r.resources = append(r.resources, &e)
	r.logger.Debug("registered resource", "pattern", entry.URIPattern)
	return nil
}

// RegisterPrompt adds a prompt definition.
func (r *Registry) RegisterPrompt(def PromptDefinition) error {
	if r.frozen {
		return ErrFrozen
	}
	if def.Name == "" {
		return errors.New("prompt name is required")
	}
	if def.Handler == nil {
		return fmt.Errorf("prompt %q: handler is required", def.Name)
	}
	if _, exists := r.prompts[def.Name]; exists {
		return fmt.Errorf("%w: prompt %q", ErrDuplicateName, def.Name)
	}

	def.schema = deriveSchema(def.Parameters)

	d := def
	r.prompts[def.Name] = &d
	r.promptSeq = append(r.promptSeq, def.Name)
	r.logger.Debug("registered prompt", "name", def.Name)
	return nil
}

// Freeze marks the registry immutable. Further registrations fail.
func (r *Registry) Freeze() {
	r.frozen = true
}

// Tool looks up a tool by name.
func (r *Registry) Tool(name string) (*ToolDefinition, bool) {
	d, ok := r.tools[name]
	return d, ok
}

// Tools returns every tool definition in registration order.
func (r *Registry) Tools() []*ToolDefinition {
	out := make([]*ToolDefinition, len(r.toolOrder))
	for i, name := range r.toolOrder {
		out[i] = r.tools[name]
	}
	return out
}

// Resources returns every resource entry in registration order.
func (r *Registry) Resources() []*ResourceEntry {
	out := make([]*ResourceEntry, len(r.resources))
	copy(out, r.resources)
	return out
}

// MatchResource tries every registered template in registration order and
// returns the first entry matching the URI with its extracted parameters.
// Registration order is the documented tie-break for overlapping templates.
func (r *Registry) MatchResource(uri string) (*ResourceEntry, map[string]string, bool) {
	for _, entry := range r.resources {
		if params, ok := entry.template.Match(uri); ok {
			return entry, params, true
		}
	}
	return nil, nil, false
}

// Prompt looks up a prompt by name.
func (r *Registry) Prompt(name string) (*PromptDefinition, bool) {
	d, ok := r.prompts[name]
	return d, ok
}

// Prompts returns every prompt definition in registration order.
func (r *Registry) Prompts() []*PromptDefinition {
	out := make([]*PromptDefinition, len(r.promptSeq))
	for i, name := range r.promptSeq {
		out[i] = r.prompts[name]
	}
	return out
}

// deriveSchema converts declared parameters into a validation schema.
// Returns nil for an empty parameter list so undeclared handlers keep
// their pass-through behavior.
func deriveSchema(params []ParamSpec) validate.Schema {
	if len(params) == 0 {
		return nil
	}
	schema := make(validate.Schema, len(params))
	for _, p := range params {
		schema[p.Name] = validate.Spec{
			Type:      p.Type,
			Required:  p.Required,
			Default:   p.Default,
			Enum:      p.Enum,
			Min:       p.Min,
			Max:       p.Max,
			MinLength: p.MinLength,
			MaxLength: p.MaxLength,
			Validate:  p.Validate,
		}
	}
	return schema
}

// deriveInputSchema builds the JSON Schema object advertised to clients.
func deriveInputSchema(params []ParamSpec) map[string]any {
	properties := make(map[string]any, len(params))
	var required []string

	for _, p := range params {
		prop := make(map[string]any)
		if p.Type != "" && p.Type != validate.TypeAny {
			prop["type"] = string(p.Type)
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if p.Min != nil {
			prop["minimum"] = *p.Min
		}
		if p.Max != nil {
			prop["maximum"] = *p.Max
		}
		if p.MinLength != nil {
			prop["minLength"] = *p.MinLength
		}
		if p.MaxLength != nil {
			prop["maxLength"] = *p.MaxLength
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
