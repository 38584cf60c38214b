// ABOUTME: Docs pack serves embedded markdown documentation as resources.
// ABOUTME: Raw markdown at doc://{slug}, rendered HTML at doc://{slug}/html.

package builtins

import (
	"bytes"
	"context"
	"fmt"

	"github.com/yuin/goldmark"

	"github.com/2389/lattice-mcp/internal/auth"
	"github.com/2389/lattice-mcp/internal/registry"
)

// docPages holds the served documentation, keyed by slug.
var docPages = map[string]string{
	"getting-started": `# Getting Started

Connect an MCP client to the /mcp endpoint and call ` + "`initialize`" + `,
then list tools with ` + "`tools/list`" + `.

## Authentication

Set the auth section of the config to choose a strategy. With
` + "`bearer_token`" + `, send ` + "`Authorization: Bearer <token>`" + ` on every call.
`,
	"notes": `# Notes Pack

Key-value notes scoped to the calling principal.

- ` + "`note_set`" + ` stores a note under a key
- ` + "`note_get`" + ` retrieves it
- ` + "`note_list`" + ` lists all keys
- ` + "`note_delete`" + ` removes one
`,
	"errors": `# Error Codes

Standard JSON-RPC codes are used throughout: -32700 parse error, -32600
invalid request, -32601 method not found, -32602 invalid params, -32603
internal error. Tool failures default to -32000.
`,
}

// RegisterDocs registers the documentation resources on the registry.
// The html template is registered after the raw one; doc://{slug}/html
// still wins for ".../html" URIs because the raw template's {slug}
// matcher cannot cross the path separator.
func RegisterDocs(reg *registry.Registry) error {
	h := &docsHandlers{}

	entries := []registry.ResourceEntry{
		{
			URIPattern:  "doc://{slug}",
			Description: "Documentation page as raw markdown",
			MIMEType:    "text/markdown",
			Handler:     h.Markdown,
		},
		{
			URIPattern:  "doc://{slug}/html",
			Description: "Documentation page rendered to HTML",
			MIMEType:    "text/html",
			Handler:     h.HTML,
		},
	}

	for _, entry := range entries {
		if err := reg.RegisterResource(entry); err != nil {
			return err
		}
	}
	return nil
}

type docsHandlers struct{}

func (h *docsHandlers) page(slug string) (string, error) {
	page, ok := docPages[slug]
	if !ok {
		return "", &registry.HandlerError{Code: -32002, Message: "no such doc: " + slug}
	}
	return page, nil
}

func (h *docsHandlers) Markdown(_ context.Context, _ auth.Principal, params map[string]string) (any, error) {
	return h.page(params["slug"])
}

func (h *docsHandlers) HTML(_ context.Context, _ auth.Principal, params map[string]string) (any, error) {
	page, err := h.page(params["slug"])
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(page), &buf); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", params["slug"], err)
	}
	return buf.String(), nil
}
