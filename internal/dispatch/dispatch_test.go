// ABOUTME: Tests for method routing, handler invocation, and error mapping.
// ABOUTME: Covers every fixed method plus notifications and failure paths.

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/2389/lattice-mcp/internal/auth"
	"github.com/2389/lattice-mcp/internal/protocol"
	"github.com/2389/lattice-mcp/internal/registry"
	"github.com/2389/lattice-mcp/internal/validate"
)

// setupTestRegistry builds a registry with tools, resources, and prompts
// covering the dispatch paths.
func setupTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(slog.Default())

	mustRegisterTool := func(def registry.ToolDefinition) {
		t.Helper()
		if err := reg.RegisterTool(def); err != nil {
			t.Fatalf("registering tool %s: %v", def.Name, err)
		}
	}

	mustRegisterTool(registry.ToolDefinition{
		Name:        "echo",
		Description: "Echo the message back",
		Parameters: []registry.ParamSpec{
			{Name: "message", Type: validate.TypeString, Required: true},
			{Name: "repeat", Type: validate.TypeInteger, Default: int64(1), Min: registry.Float(1), Max: registry.Float(5)},
		},
		Handler: func(_ context.Context, _ auth.Principal, args map[string]any) (any, error) {
			msg := args["message"].(string)
			n := args["repeat"].(int64)
			return strings.Repeat(msg, int(n)), nil
		},
	})

	mustRegisterTool(registry.ToolDefinition{
		Name:        "whoami",
		Description: "Report the caller identity",
		Handler: func(_ context.Context, principal auth.Principal, _ map[string]any) (any, error) {
			if principal == nil {
				return "anonymous", nil
			}
			return principal.Identity(), nil
		},
	})

	mustRegisterTool(registry.ToolDefinition{
		Name:        "fail-typed",
		Description: "Always fails with a typed error",
		Handler: func(_ context.Context, _ auth.Principal, _ map[string]any) (any, error) {
			return nil, &registry.HandlerError{Code: -32042, Message: "typed failure"}
		},
	})

	mustRegisterTool(registry.ToolDefinition{
		Name:        "fail-plain",
		Description: "Always fails with a plain error",
		Handler: func(_ context.Context, _ auth.Principal, _ map[string]any) (any, error) {
			return nil, errors.New("secret internal detail")
		},
	})

	mustRegisterTool(registry.ToolDefinition{
		Name:        "explode",
		Description: "Always panics",
		Handler: func(_ context.Context, _ auth.Principal, _ map[string]any) (any, error) {
			panic("handler bug with secret detail")
		},
	})

	if err := reg.RegisterResource(registry.ResourceEntry{
		URIPattern:  "user://{id}",
		Description: "User profile",
		MIMEType:    "application/json",
		Handler: func(_ context.Context, _ auth.Principal, params map[string]string) (any, error) {
			return map[string]string{"id": params["id"]}, nil
		},
	}); err != nil {
		t.Fatalf("registering resource: %v", err)
	}
	if err := reg.RegisterResource(registry.ResourceEntry{
		URIPattern: "user://{id}/posts/{post_id}",
		Handler: func(_ context.Context, _ auth.Principal, params map[string]string) (any, error) {
			return fmt.Sprintf("post %s of %s", params["post_id"], params["id"]), nil
		},
	}); err != nil {
		t.Fatalf("registering resource: %v", err)
	}

	if err := reg.RegisterPrompt(registry.PromptDefinition{
		Name:        "greet",
		Description: "Greeting prompt",
		Parameters: []registry.ParamSpec{
			{Name: "name", Type: validate.TypeString, Required: true},
		},
		Handler: func(_ context.Context, _ auth.Principal, args map[string]any) ([]registry.PromptMessage, error) {
			return []registry.PromptMessage{
				{Role: "user", Content: registry.PromptContent{Type: "text", Text: "Say hello to " + args["name"].(string)}},
			}, nil
		},
	}); err != nil {
		t.Fatalf("registering prompt: %v", err)
	}

	reg.Freeze()
	return reg
}

func setupDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	d, err := New(Config{
		Registry:      setupTestRegistry(t),
		Logger:        slog.Default(),
		ServerName:    "test-server",
		ServerVersion: "0.0.1",
	})
	if err != nil {
		t.Fatalf("creating dispatcher: %v", err)
	}
	return d
}

func dispatchRaw(t *testing.T, d *Dispatcher, raw string) *protocol.Response {
	t.Helper()
	return d.Dispatch(context.Background(), protocol.Classify([]byte(raw)))
}

func resultMap(t *testing.T, resp *protocol.Response) map[string]any {
	t.Helper()
	if resp == nil {
		t.Fatal("expected a response, got nil")
	}
	if resp.Error != nil {
		t.Fatalf("expected success, got error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	b, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	return m
}

func TestDispatch_Initialize(t *testing.T) {
	d := setupDispatcher(t)

	resp := dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	result := resultMap(t, resp)

	if result["protocolVersion"] != ProtocolVersion {
		t.Errorf("expected protocolVersion %q, got %v", ProtocolVersion, result["protocolVersion"])
	}
	info := result["serverInfo"].(map[string]any)
	if info["name"] != "test-server" || info["version"] != "0.0.1" {
		t.Errorf("unexpected serverInfo: %v", info)
	}
	caps := result["capabilities"].(map[string]any)
	for _, key := range []string{"tools", "resources", "prompts"} {
		if _, ok := caps[key]; !ok {
			t.Errorf("missing capability %q", key)
		}
	}
}

func TestDispatch_Ping(t *testing.T) {
	d := setupDispatcher(t)

	resp := dispatchRaw(t, d, `{"jsonrpc":"2.0","id":"p1","method":"ping"}`)
	if resp.Error != nil {
		t.Fatalf("ping failed: %v", resp.Error)
	}
	if string(resp.ID) != `"p1"` {
		t.Errorf("response id must mirror request id, got %s", resp.ID)
	}
}

func TestDispatch_UnknownMethod(t *testing.T) {
	d := setupDispatcher(t)

	resp := dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"bogus/thing"}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeMethodNotFound {
		t.Fatalf("expected -32601, got %+v", resp)
	}
	if !strings.Contains(resp.Error.Message, "bogus/thing") {
		t.Errorf("message must name the method: %s", resp.Error.Message)
	}
}

func TestDispatch_Notification(t *testing.T) {
	d := setupDispatcher(t)

	resp := dispatchRaw(t, d, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	if resp != nil {
		t.Fatalf("notifications must produce no response, got %+v", resp)
	}
}

func TestDispatch_InvalidEnvelope(t *testing.T) {
	d := setupDispatcher(t)

	// A decodable id is mirrored even when the envelope is rejected.
	resp := dispatchRaw(t, d, `{"jsonrpc":"1.0","id":5,"method":"ping"}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidRequest {
		t.Fatalf("expected -32600, got %+v", resp)
	}
	if string(resp.ID) != "5" {
		t.Errorf("invalid envelope with a decodable id must mirror it, got %s", resp.ID)
	}

	// Only an undeterminable id falls back to null.
	resp = dispatchRaw(t, d, `[1,2,3]`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidRequest {
		t.Fatalf("expected -32600, got %+v", resp)
	}
	if string(resp.ID) != "null" {
		t.Errorf("undeterminable id must encode as null, got %s", resp.ID)
	}
}

func TestDispatch_ToolsList(t *testing.T) {
	d := setupDispatcher(t)

	result := resultMap(t, dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	tools := result["tools"].([]any)
	if len(tools) != 5 {
		t.Fatalf("expected 5 tools, got %d", len(tools))
	}

	// Registration order is preserved.
	first := tools[0].(map[string]any)
	if first["name"] != "echo" {
		t.Errorf("expected echo first, got %v", first["name"])
	}
	schema := first["inputSchema"].(map[string]any)
	if schema["type"] != "object" {
		t.Errorf("expected object schema, got %v", schema)
	}
}

func TestDispatch_ToolsCall(t *testing.T) {
	d := setupDispatcher(t)

	resp := dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{"message":"hi","repeat":"2"}}}`)
	result := resultMap(t, resp)

	content := result["content"].([]any)
	item := content[0].(map[string]any)
	if item["text"] != "hihi" {
		t.Errorf("expected coerced repeat to apply, got %v", item["text"])
	}
}

func TestDispatch_ToolsCall_DefaultApplied(t *testing.T) {
	d := setupDispatcher(t)

	resp := dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{"message":"x"}}}`)
	result := resultMap(t, resp)

	content := result["content"].([]any)
	item := content[0].(map[string]any)
	if item["text"] != "x" {
		t.Errorf("expected default repeat of 1, got %v", item["text"])
	}
}

func TestDispatch_ToolsCall_UnknownTool(t *testing.T) {
	d := setupDispatcher(t)

	resp := dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"missing-tool"}}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeMethodNotFound {
		t.Fatalf("expected -32601, got %+v", resp)
	}
	if !strings.Contains(resp.Error.Message, "missing-tool") {
		t.Errorf("message must name the tool: %s", resp.Error.Message)
	}
}

func TestDispatch_ToolsCall_ValidationFailure(t *testing.T) {
	d := setupDispatcher(t)

	resp := dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{}}}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
		t.Fatalf("expected -32602, got %+v", resp)
	}

	fieldErrs, ok := resp.Error.Data.([]validate.FieldError)
	if !ok {
		t.Fatalf("expected FieldError list in data, got %T", resp.Error.Data)
	}
	if len(fieldErrs) != 1 || fieldErrs[0].Parameter != "message" {
		t.Errorf("expected one error for message, got %+v", fieldErrs)
	}
}

func TestDispatch_ToolsCall_NullArgument(t *testing.T) {
	d := setupDispatcher(t)

	// A null argument for a typed parameter is the caller's fault and must
	// surface as a type FieldError, never as a handler panic.
	resp := dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{"message":null}}}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
		t.Fatalf("expected -32602, got %+v", resp)
	}
	fieldErrs, ok := resp.Error.Data.([]validate.FieldError)
	if !ok {
		t.Fatalf("expected FieldError list in data, got %T", resp.Error.Data)
	}
	if len(fieldErrs) != 1 || fieldErrs[0].Parameter != "message" {
		t.Fatalf("expected one error for message, got %+v", fieldErrs)
	}
	if !strings.Contains(fieldErrs[0].Message, "must be of type string") {
		t.Errorf("expected type mismatch message, got %q", fieldErrs[0].Message)
	}
}

func TestDispatch_ToolsCall_TypedHandlerError(t *testing.T) {
	d := setupDispatcher(t)

	resp := dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"fail-typed"}}`)
	if resp.Error == nil || resp.Error.Code != -32042 {
		t.Fatalf("expected handler code to propagate, got %+v", resp)
	}
	if resp.Error.Message != "typed failure" {
		t.Errorf("expected handler message verbatim, got %q", resp.Error.Message)
	}
}

func TestDispatch_ToolsCall_PlainHandlerError(t *testing.T) {
	d := setupDispatcher(t)

	resp := dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"fail-plain"}}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeToolError {
		t.Fatalf("expected -32000, got %+v", resp)
	}
	if resp.Error.Message != "Tool execution failed" {
		t.Errorf("expected generic message, got %q", resp.Error.Message)
	}
	if strings.Contains(resp.Error.Message, "secret") {
		t.Errorf("internal detail leaked: %q", resp.Error.Message)
	}
}

func TestDispatch_ToolsCall_PanicRecovered(t *testing.T) {
	d := setupDispatcher(t)

	resp := dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"explode"}}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeInternalError {
		t.Fatalf("expected -32603, got %+v", resp)
	}
	if strings.Contains(resp.Error.Message, "secret") {
		t.Errorf("panic detail leaked: %q", resp.Error.Message)
	}
}

func TestDispatch_ToolsCall_PrincipalPassThrough(t *testing.T) {
	d := setupDispatcher(t)

	ctx := auth.WithPrincipal(context.Background(), auth.TokenPrincipal("caller-9"))
	msg := protocol.Classify([]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"whoami"}}`))

	resp := d.Dispatch(ctx, msg)
	result := resultMap(t, resp)
	content := result["content"].([]any)
	item := content[0].(map[string]any)
	if item["text"] != "caller-9" {
		t.Errorf("expected principal identity, got %v", item["text"])
	}
}

func TestDispatch_ResourcesList(t *testing.T) {
	d := setupDispatcher(t)

	result := resultMap(t, dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`))
	resources := result["resources"].([]any)
	if len(resources) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(resources))
	}
	first := resources[0].(map[string]any)
	if first["uriTemplate"] != "user://{id}" {
		t.Errorf("expected registration order, got %v", first["uriTemplate"])
	}
	if first["mimeType"] != "application/json" {
		t.Errorf("expected mimeType, got %v", first["mimeType"])
	}
}

func TestDispatch_ResourcesRead(t *testing.T) {
	d := setupDispatcher(t)

	resp := dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"user://7/posts/42"}}`)
	result := resultMap(t, resp)

	contents := result["contents"].([]any)
	item := contents[0].(map[string]any)
	if item["uri"] != "user://7/posts/42" {
		t.Errorf("expected requested uri echoed, got %v", item["uri"])
	}
	if item["text"] != "post 42 of 7" {
		t.Errorf("expected extracted params in handler, got %v", item["text"])
	}
}

func TestDispatch_ResourcesRead_NotFound(t *testing.T) {
	d := setupDispatcher(t)

	// Anchored matching: extra trailing segments match no template.
	resp := dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":"user://1/extra/deep"}}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeMethodNotFound {
		t.Fatalf("expected -32601, got %+v", resp)
	}
	if !strings.Contains(resp.Error.Message, "user://1/extra/deep") {
		t.Errorf("message must name the uri: %s", resp.Error.Message)
	}
}

func TestDispatch_ResourcesRead_MissingURI(t *testing.T) {
	d := setupDispatcher(t)

	resp := dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{}}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
		t.Fatalf("expected -32602, got %+v", resp)
	}
}

func TestDispatch_PromptsList(t *testing.T) {
	d := setupDispatcher(t)

	result := resultMap(t, dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"prompts/list"}`))
	prompts := result["prompts"].([]any)
	if len(prompts) != 1 {
		t.Fatalf("expected 1 prompt, got %d", len(prompts))
	}
	first := prompts[0].(map[string]any)
	args := first["arguments"].([]any)
	arg := args[0].(map[string]any)
	if arg["name"] != "name" || arg["required"] != true {
		t.Errorf("unexpected prompt argument: %v", arg)
	}
}

func TestDispatch_PromptsGet(t *testing.T) {
	d := setupDispatcher(t)

	resp := dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"prompts/get","params":{"name":"greet","arguments":{"name":"Ada"}}}`)
	result := resultMap(t, resp)

	messages := result["messages"].([]any)
	msg := messages[0].(map[string]any)
	if msg["role"] != "user" {
		t.Errorf("expected role-tagged message, got %v", msg)
	}
	content := msg["content"].(map[string]any)
	if !strings.Contains(content["text"].(string), "Ada") {
		t.Errorf("expected argument in prompt text, got %v", content["text"])
	}
}

func TestDispatch_PromptsGet_UnknownPrompt(t *testing.T) {
	d := setupDispatcher(t)

	resp := dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"prompts/get","params":{"name":"missing-prompt"}}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeMethodNotFound {
		t.Fatalf("expected -32601, got %+v", resp)
	}
	if !strings.Contains(resp.Error.Message, "missing-prompt") {
		t.Errorf("message must name the prompt: %s", resp.Error.Message)
	}
}

func TestDispatch_PromptsGet_ValidationFailure(t *testing.T) {
	d := setupDispatcher(t)

	resp := dispatchRaw(t, d, `{"jsonrpc":"2.0","id":1,"method":"prompts/get","params":{"name":"greet","arguments":{}}}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
		t.Fatalf("expected -32602, got %+v", resp)
	}
}

func TestDispatch_Deterministic(t *testing.T) {
	d := setupDispatcher(t)
	raw := `{"jsonrpc":"2.0","id":9,"method":"tools/call","params":{"name":"echo","arguments":{"message":"same"}}}`

	a, _ := json.Marshal(dispatchRaw(t, d, raw))
	b, _ := json.Marshal(dispatchRaw(t, d, raw))
	if string(a) != string(b) {
		t.Errorf("identical inputs must produce identical outputs:\n%s\n%s", a, b)
	}
}
