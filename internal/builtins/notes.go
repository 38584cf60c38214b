// ABOUTME: Notes pack provides key-value storage tools backed by the store.
// ABOUTME: Exercises required fields, length bounds, and custom validators.

package builtins

import (
	"context"
	"errors"
	"strings"

	"github.com/2389/lattice-mcp/internal/auth"
	"github.com/2389/lattice-mcp/internal/registry"
	"github.com/2389/lattice-mcp/internal/store"
	"github.com/2389/lattice-mcp/internal/validate"
)

// ownerOf derives the storage owner from the principal. Unauthenticated
// requests share the anonymous namespace.
func ownerOf(p auth.Principal) string {
	if p == nil {
		return "anonymous"
	}
	return p.Identity()
}

// noteKeyOK rejects keys with whitespace; used as a custom validator.
func noteKeyOK(v any) bool {
	s, ok := v.(string)
	if !ok {
		return true // type mismatch is the type stage's report, not ours
	}
	return !strings.ContainsAny(s, " \t\n")
}

// RegisterNotes registers the note tools on the registry.
func RegisterNotes(reg *registry.Registry, s store.Store) error {
	h := &notesHandlers{store: s}

	tools := []registry.ToolDefinition{
		{
			Name:        "note_set",
			Description: "Store a note under a key",
			Parameters: []registry.ParamSpec{
				{
					Name:        "key",
					Description: "Note key, no whitespace",
					Type:        validate.TypeString,
					Required:    true,
					MinLength:   registry.Int(1),
					MaxLength:   registry.Int(64),
					Validate:    noteKeyOK,
				},
				{
					Name:        "value",
					Description: "Note content",
					Type:        validate.TypeString,
					Required:    true,
					MaxLength:   registry.Int(4096),
				},
			},
			Handler: h.Set,
		},
		{
			Name:        "note_get",
			Description: "Retrieve a note by key",
			Parameters: []registry.ParamSpec{
				{Name: "key", Type: validate.TypeString, Required: true, Validate: noteKeyOK},
			},
			Handler: h.Get,
		},
		{
			Name:        "note_list",
			Description: "List all notes",
			Handler:     h.List,
		},
		{
			Name:        "note_delete",
			Description: "Delete a note by key",
			Parameters: []registry.ParamSpec{
				{Name: "key", Type: validate.TypeString, Required: true, Validate: noteKeyOK},
			},
			Handler: h.Delete,
		},
		{
			Name:        "log_entry",
			Description: "Record an activity log line",
			Parameters: []registry.ParamSpec{
				{Name: "message", Type: validate.TypeString, Required: true, MinLength: registry.Int(1)},
				{
					Name:    "level",
					Type:    validate.TypeString,
					Default: "info",
					Enum:    []any{"debug", "info", "warn", "error"},
				},
			},
			Handler: h.LogEntry,
		},
		{
			Name:        "log_search",
			Description: "Search past log entries",
			Parameters: []registry.ParamSpec{
				{Name: "query", Type: validate.TypeString, Default: ""},
				{
					Name:    "limit",
					Type:    validate.TypeInteger,
					Default: int64(50),
					Min:     registry.Float(1),
					Max:     registry.Float(200),
				},
			},
			Handler: h.LogSearch,
		},
	}

	for _, def := range tools {
		if err := reg.RegisterTool(def); err != nil {
			return err
		}
	}
	return nil
}

type notesHandlers struct {
	store store.Store
}

func (h *notesHandlers) Set(ctx context.Context, principal auth.Principal, args map[string]any) (any, error) {
	note := &store.Note{
		Owner: ownerOf(principal),
		Key:   args["key"].(string),
		Value: args["value"].(string),
	}
	if err := h.store.SetNote(ctx, note); err != nil {
		return nil, err
	}
	return map[string]string{"key": note.Key, "status": "stored"}, nil
}

func (h *notesHandlers) Get(ctx context.Context, principal auth.Principal, args map[string]any) (any, error) {
	key := args["key"].(string)
	note, err := h.store.GetNote(ctx, ownerOf(principal), key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &registry.HandlerError{Code: -32001, Message: "note not found: " + key}
	}
	if err != nil {
		return nil, err
	}
	return note, nil
}

func (h *notesHandlers) List(ctx context.Context, principal auth.Principal, _ map[string]any) (any, error) {
	notes, err := h.store.ListNotes(ctx, ownerOf(principal))
	if err != nil {
		return nil, err
	}
	return map[string]any{"notes": notes, "count": len(notes)}, nil
}

func (h *notesHandlers) Delete(ctx context.Context, principal auth.Principal, args map[string]any) (any, error) {
	key := args["key"].(string)
	err := h.store.DeleteNote(ctx, ownerOf(principal), key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &registry.HandlerError{Code: -32001, Message: "note not found: " + key}
	}
	if err != nil {
		return nil, err
	}
	return map[string]string{"key": key, "status": "deleted"}, nil
}

func (h *notesHandlers) LogEntry(ctx context.Context, principal auth.Principal, args map[string]any) (any, error) {
	entry := &store.LogEntry{
		Owner:   ownerOf(principal),
		Message: args["message"].(string),
		Level:   args["level"].(string),
	}
	if err := h.store.AppendLog(ctx, entry); err != nil {
		return nil, err
	}
	return map[string]string{"id": entry.ID, "status": "logged"}, nil
}

func (h *notesHandlers) LogSearch(ctx context.Context, principal auth.Principal, args map[string]any) (any, error) {
	query, _ := args["query"].(string)
	limit, _ := args["limit"].(int64)

	entries, err := h.store.SearchLogs(ctx, ownerOf(principal), query, int(limit))
	if err != nil {
		return nil, err
	}
	return map[string]any{"entries": entries, "count": len(entries)}, nil
}
