// ABOUTME: Prompt pack producing role-tagged message lists for clients.
// ABOUTME: Prompts pull the caller's notes from the store for context.

package builtins

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389/lattice-mcp/internal/auth"
	"github.com/2389/lattice-mcp/internal/registry"
	"github.com/2389/lattice-mcp/internal/store"
	"github.com/2389/lattice-mcp/internal/validate"
)

// RegisterPrompts registers the prompt definitions on the registry.
func RegisterPrompts(reg *registry.Registry, s store.Store) error {
	h := &promptHandlers{store: s}

	prompts := []registry.PromptDefinition{
		{
			Name:        "summarize_notes",
			Description: "Summarize the caller's stored notes",
			Parameters: []registry.ParamSpec{
				{
					Name:        "tone",
					Description: "Writing tone of the summary",
					Type:        validate.TypeString,
					Default:     "neutral",
					Enum:        []any{"neutral", "formal", "casual"},
				},
			},
			Handler: h.SummarizeNotes,
		},
		{
			Name:        "draft_note",
			Description: "Draft a note on a topic for later storage",
			Parameters: []registry.ParamSpec{
				{Name: "topic", Type: validate.TypeString, Required: true, MinLength: registry.Int(1)},
				{
					Name:    "max_words",
					Type:    validate.TypeInteger,
					Default: int64(100),
					Min:     registry.Float(10),
					Max:     registry.Float(1000),
				},
			},
			Handler: h.DraftNote,
		},
	}

	for _, def := range prompts {
		if err := reg.RegisterPrompt(def); err != nil {
			return err
		}
	}
	return nil
}

type promptHandlers struct {
	store store.Store
}

func (h *promptHandlers) SummarizeNotes(ctx context.Context, principal auth.Principal, args map[string]any) ([]registry.PromptMessage, error) {
	tone := args["tone"].(string)

	notes, err := h.store.ListNotes(ctx, ownerOf(principal))
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, n := range notes {
		fmt.Fprintf(&b, "- %s: %s\n", n.Key, n.Value)
	}
	body := b.String()
	if body == "" {
		body = "(no notes stored)\n"
	}

	return []registry.PromptMessage{
		{
			Role: "user",
			Content: registry.PromptContent{
				Type: "text",
				Text: fmt.Sprintf("Summarize these notes in a %s tone:\n\n%s", tone, body),
			},
		},
	}, nil
}

func (h *promptHandlers) DraftNote(_ context.Context, _ auth.Principal, args map[string]any) ([]registry.PromptMessage, error) {
	topic := args["topic"].(string)
	maxWords := args["max_words"].(int64)

	return []registry.PromptMessage{
		{
			Role: "user",
			Content: registry.PromptContent{
				Type: "text",
				Text: fmt.Sprintf("Draft a note about %q in at most %d words.", topic, maxWords),
			},
		},
	}, nil
}
