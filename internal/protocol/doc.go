// Package protocol classifies raw JSON-RPC 2.0 envelopes and builds
// responses.
//
// Classification distinguishes requests from notifications by the presence
// of the id key, not its value: {"id": null, ...} is a request whose
// response carries a null id, while an envelope with no id key at all is a
// notification. Ids round-trip as raw JSON so their type is preserved
// exactly.
package protocol
