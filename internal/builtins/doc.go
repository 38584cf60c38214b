// Package builtins provides the built-in tool, resource, and prompt packs.
//
// # Packs
//
// Three packs register against the shared registry at startup:
//
//   - Notes: note_set, note_get, note_list, note_delete plus log_entry
//     and log_search, all backed by the SQLite store and scoped to the
//     calling principal
//   - Docs: embedded documentation served at doc://{slug} as markdown and
//     doc://{slug}/html rendered with goldmark
//   - Prompts: summarize_notes and draft_note, producing role-tagged
//     message lists
//
// # Ownership
//
// Store-backed handlers derive their storage owner from the principal's
// identity. Unauthenticated calls share the "anonymous" namespace, so a
// deployment that wants per-caller isolation must enable authentication.
package builtins
