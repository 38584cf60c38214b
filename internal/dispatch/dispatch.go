// ABOUTME: Method dispatcher mapping JSON-RPC methods onto registered handlers.
// ABOUTME: Pure over (envelope, registry, principal); notifications return nil.

package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/2389/lattice-mcp/internal/auth"
	"github.com/2389/lattice-mcp/internal/protocol"
	"github.com/2389/lattice-mcp/internal/registry"
)

// ProtocolVersion is the MCP protocol revision advertised by initialize.
const ProtocolVersion = "2025-03-26"

// Config holds configuration for a Dispatcher.
type Config struct {
	Registry      *registry.Registry
	Logger        *slog.Logger
	ServerName    string
	ServerVersion string
}

// methodFunc handles a single protocol method.
type methodFunc func(ctx context.Context, msg protocol.Message) *protocol.Response

// Dispatcher routes classified envelopes to protocol methods. It holds no
// mutable state: any number of calls may run concurrently against the same
// frozen registry.
type Dispatcher struct {
	registry      *registry.Registry
	logger        *slog.Logger
	serverName    string
	serverVersion string
	methods       map[string]methodFunc
}

// New creates a dispatcher over a frozen registry.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.ServerName
	if name == "" {
		name = "lattice-mcp"
	}
	version := cfg.ServerVersion
	if version == "" {
		version = "dev"
	}

	d := &Dispatcher{
		registry:      cfg.Registry,
		logger:        logger.With("component", "dispatch"),
		serverName:    name,
		serverVersion: version,
	}

	// The wire method names are fixed; everything beyond the two built-ins
	// is a (primitive, operation) pair routed to its family handler.
	d.methods = map[string]methodFunc{
		"initialize":     d.handleInitialize,
		"ping":           d.handlePing,
		"tools/list":     d.handleToolsList,
		"tools/call":     d.handleToolsCall,
		"resources/list": d.handleResourcesList,
		"resources/read": d.handleResourcesRead,
		"prompts/list":   d.handlePromptsList,
		"prompts/get":    d.handlePromptsGet,
	}

	return d, nil
}

// Dispatch routes a classified envelope and returns the response to send.
// Notifications return nil, meaning no response body; the principal (if
// any) is read from the context and passed through to handlers untouched.
func (d *Dispatcher) Dispatch(ctx context.Context, msg protocol.Message) *protocol.Response {
	switch msg.Kind {
	case protocol.KindInvalid:
		// The id is mirrored when it decoded; it is null only when the
		// envelope was too malformed to determine one.
		return protocol.NewError(msg.ID, protocol.CodeInvalidRequest, "invalid request", nil)
	case protocol.KindNotification:
		if strings.HasPrefix(msg.Method, "notifications/") {
			d.logger.Debug("accepted notification", "method", msg.Method)
		} else {
			d.logger.Warn("received notification for non-notification method", "method", msg.Method)
		}
		return nil
	}

	fn, ok := d.methods[msg.Method]
	if !ok {
		return protocol.NewError(msg.ID, protocol.CodeMethodNotFound,
			fmt.Sprintf("method not found: %s", msg.Method), nil)
	}
	return fn(ctx, msg)
}

func (d *Dispatcher) handleInitialize(_ context.Context, msg protocol.Message) *protocol.Response {
	result := map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
			"prompts":   map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    d.serverName,
			"version": d.serverVersion,
		},
	}
	return protocol.NewResult(msg.ID, result)
}

func (d *Dispatcher) handlePing(_ context.Context, msg protocol.Message) *protocol.Response {
	return protocol.NewResult(msg.ID, map[string]any{})
}

// ToolInfo is one entry of a tools/list result.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func (d *Dispatcher) handleToolsList(_ context.Context, msg protocol.Message) *protocol.Response {
	defs := d.registry.Tools()
	tools := make([]ToolInfo, len(defs))
	for i, def := range defs {
		tools[i] = ToolInfo{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema(),
		}
	}
	d.logger.Debug("tools/list", "count", len(tools))
	return protocol.NewResult(msg.ID, map[string]any{"tools": tools})
}

// callParams are the params of tools/call and prompts/get.
type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, msg protocol.Message) *protocol.Response {
	var params callParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return protocol.NewError(msg.ID, protocol.CodeInvalidParams, "invalid params", nil)
	}
	if params.Name == "" {
		return protocol.NewError(msg.ID, protocol.CodeInvalidParams, "tool name is required", nil)
	}

	def, ok := d.registry.Tool(params.Name)
	if !ok {
		return protocol.NewError(msg.ID, protocol.CodeMethodNotFound,
			fmt.Sprintf("tool not found: %s", params.Name), nil)
	}

	rawArgs, err := decodeArguments(params.Arguments)
	if err != nil {
		return protocol.NewError(msg.ID, protocol.CodeInvalidParams, "invalid arguments", nil)
	}

	args, fieldErrs := d.registry.ValidateToolArgs(params.Name, rawArgs)
	if len(fieldErrs) > 0 {
		return protocol.NewError(msg.ID, protocol.CodeInvalidParams, "invalid params", fieldErrs)
	}

	requestID := uuid.New().String()
	d.logger.Debug("tools/call", "tool_name", params.Name, "request_id", requestID)

	principal := auth.PrincipalFromContext(ctx)
	result, err := d.invokeTool(ctx, def, principal, args)
	if err != nil {
		return d.handlerErrorResponse(msg.ID, "tool", params.Name, requestID, err)
	}

	d.logger.Debug("tools/call complete", "tool_name", params.Name, "request_id", requestID)
	return protocol.NewResult(msg.ID, toolResult(result))
}

// ResourceInfo is one entry of a resources/list result.
type ResourceInfo struct {
	URITemplate string `json:"uriTemplate"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

func (d *Dispatcher) handleResourcesList(_ context.Context, msg protocol.Message) *protocol.Response {
	entries := d.registry.Resources()
	resources := make([]ResourceInfo, len(entries))
	for i, entry := range entries {
		resources[i] = ResourceInfo{
			URITemplate: entry.URIPattern,
			Description: entry.Description,
			MIMEType:    entry.MIMEType,
		}
	}
	d.logger.Debug("resources/list", "count", len(resources))
	return protocol.NewResult(msg.ID, map[string]any{"resources": resources})
}

// readParams are the params of resources/read.
type readParams struct {
	URI string `json:"uri"`
}

func (d *Dispatcher) handleResourcesRead(ctx context.Context, msg protocol.Message) *protocol.Response {
	var params readParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return protocol.NewError(msg.ID, protocol.CodeInvalidParams, "invalid params", nil)
	}
	if params.URI == "" {
		return protocol.NewError(msg.ID, protocol.CodeInvalidParams, "resource uri is required", nil)
	}

	// Every registered template is tried, in registration order, before
	// concluding the resource does not exist.
	entry, uriParams, ok := d.registry.MatchResource(params.URI)
	if !ok {
		return protocol.NewError(msg.ID, protocol.CodeMethodNotFound,
			fmt.Sprintf("resource not found: %s", params.URI), nil)
	}

	requestID := uuid.New().String()
	d.logger.Debug("resources/read", "uri", params.URI, "pattern", entry.URIPattern, "request_id", requestID)

	principal := auth.PrincipalFromContext(ctx)
	result, err := d.invokeResource(ctx, entry, principal, uriParams)
	if err != nil {
		return d.handlerErrorResponse(msg.ID, "resource", params.URI, requestID, err)
	}

	mimeType := entry.MIMEType
	if mimeType == "" {
		mimeType = "text/plain"
	}
	contents := map[string]any{
		"uri":      params.URI,
		"mimeType": mimeType,
		"text":     asText(result),
	}
	return protocol.NewResult(msg.ID, map[string]any{"contents": []any{contents}})
}

// PromptInfo is one entry of a prompts/list result.
type PromptInfo struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Arguments   []PromptArgument `json:"arguments"`
}

// PromptArgument describes one declared prompt parameter.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

func (d *Dispatcher) handlePromptsList(_ context.Context, msg protocol.Message) *protocol.Response {
	defs := d.registry.Prompts()
	prompts := make([]PromptInfo, len(defs))
	for i, def := range defs {
		args := make([]PromptArgument, len(def.Parameters))
		for j, p := range def.Parameters {
			args[j] = PromptArgument{Name: p.Name, Description: p.Description, Required: p.Required}
		}
		prompts[i] = PromptInfo{Name: def.Name, Description: def.Description, Arguments: args}
	}
	d.logger.Debug("prompts/list", "count", len(prompts))
	return protocol.NewResult(msg.ID, map[string]any{"prompts": prompts})
}

func (d *Dispatcher) handlePromptsGet(ctx context.Context, msg protocol.Message) *protocol.Response {
	var params callParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return protocol.NewError(msg.ID, protocol.CodeInvalidParams, "invalid params", nil)
	}
	if params.Name == "" {
		return protocol.NewError(msg.ID, protocol.CodeInvalidParams, "prompt name is required", nil)
	}

	def, ok := d.registry.Prompt(params.Name)
	if !ok {
		return protocol.NewError(msg.ID, protocol.CodeMethodNotFound,
			fmt.Sprintf("prompt not found: %s", params.Name), nil)
	}

	rawArgs, err := decodeArguments(params.Arguments)
	if err != nil {
		return protocol.NewError(msg.ID, protocol.CodeInvalidParams, "invalid arguments", nil)
	}

	args, fieldErrs := d.registry.ValidatePromptArgs(params.Name, rawArgs)
	if len(fieldErrs) > 0 {
		return protocol.NewError(msg.ID, protocol.CodeInvalidParams, "invalid params", fieldErrs)
	}

	requestID := uuid.New().String()
	d.logger.Debug("prompts/get", "prompt_name", params.Name, "request_id", requestID)

	principal := auth.PrincipalFromContext(ctx)
	messages, err := d.invokePrompt(ctx, def, principal, args)
	if err != nil {
		return d.handlerErrorResponse(msg.ID, "prompt", params.Name, requestID, err)
	}

	return protocol.NewResult(msg.ID, map[string]any{
		"description": def.Description,
		"messages":    messages,
	})
}

// errHandlerPanic marks a recovered handler panic.
var errHandlerPanic = errors.New("handler panicked")

// invokeTool runs a tool handler, converting a panic into an error so the
// caller only ever sees a generic internal failure.
func (d *Dispatcher) invokeTool(ctx context.Context, def *registry.ToolDefinition, principal auth.Principal, args map[string]any) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("tool handler panicked", "tool_name", def.Name, "panic", rec)
			err = fmt.Errorf("%w: %v", errHandlerPanic, rec)
		}
	}()
	return def.Handler(ctx, principal, args)
}

func (d *Dispatcher) invokeResource(ctx context.Context, entry *registry.ResourceEntry, principal auth.Principal, params map[string]string) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("resource handler panicked", "pattern", entry.URIPattern, "panic", rec)
			err = fmt.Errorf("%w: %v", errHandlerPanic, rec)
		}
	}()
	return entry.Handler(ctx, principal, params)
}

func (d *Dispatcher) invokePrompt(ctx context.Context, def *registry.PromptDefinition, principal auth.Principal, args map[string]any) (messages []registry.PromptMessage, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("prompt handler panicked", "prompt_name", def.Name, "panic", rec)
			err = fmt.Errorf("%w: %v", errHandlerPanic, rec)
		}
	}()
	return def.Handler(ctx, principal, args)
}

// handlerErrorResponse maps a handler failure onto the wire. A HandlerError
// propagates its code and message verbatim; a panic surfaces as a generic
// internal error with detail kept in the logs; anything else gets the
// default tool failure code.
func (d *Dispatcher) handlerErrorResponse(id json.RawMessage, kind, name, requestID string, err error) *protocol.Response {
	d.logger.Warn("handler failed",
		"kind", kind,
		"name", name,
		"request_id", requestID,
		"error", err,
	)

	var herr *registry.HandlerError
	if errors.As(err, &herr) {
		code := herr.Code
		if code == 0 {
			code = protocol.CodeToolError
		}
		return protocol.NewError(id, code, herr.Message, nil)
	}
	if errors.Is(err, errHandlerPanic) {
		return protocol.NewError(id, protocol.CodeInternalError, "internal error", nil)
	}
	return protocol.NewError(id, protocol.CodeToolError, "Tool execution failed", nil)
}

// decodeArguments parses the caller-supplied arguments object, preserving
// integer precision via json.Number so coercion can normalize it.
func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, err
	}
	return args, nil
}

// Content is one content item of a tools/call result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallToolResult is the result shape for tools/call.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// toolResult wraps a handler payload into the tools/call content shape.
func toolResult(payload any) CallToolResult {
	return CallToolResult{
		Content: []Content{{Type: "text", Text: asText(payload)}},
	}
}

// asText renders a handler payload as text, marshaling non-strings.
func asText(payload any) string {
	switch v := payload.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
