// ABOUTME: JSON-RPC 2.0 envelope classification and response construction.
// ABOUTME: Pure functions over decoded messages; no transport knowledge.

package protocol

import (
	"bytes"
	"encoding/json"
)

// Version is the JSON-RPC protocol version literal.
const Version = "2.0"

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// CodeToolError is the default code for application-level tool failures.
	// Handlers may supply their own code in the -32000..-32099 range.
	CodeToolError = -32000
)

// Kind discriminates a classified envelope.
type Kind int

const (
	KindInvalid Kind = iota
	KindRequest
	KindNotification
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNotification:
		return "notification"
	default:
		return "invalid"
	}
}

// Message is a classified JSON-RPC envelope. ID is retained as raw JSON so
// string and integer ids round-trip unchanged into the response.
type Message struct {
	Kind   Kind
	ID     json.RawMessage
	Method string
	Params json.RawMessage
}

// envelope is the wire shape used for classification. ID is a pointer so the
// presence of the key can be distinguished from a null value: a request with
// "id": null still carries the key and is classified as a request.
type envelope struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id"`
	Method  string           `json:"method"`
	Params  json.RawMessage  `json:"params"`
}

// Classify decodes raw bytes and discriminates them as a Request,
// Notification, or Invalid envelope. A value is a Request iff it is an object
// with jsonrpc "2.0", a non-empty method string, and an id key (of any
// value, null included). The same shape without the id key is a
// Notification. Anything else is Invalid; an Invalid message still carries
// the id when one decoded, so the error response can mirror it.
func Classify(raw []byte) Message {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return Message{Kind: KindInvalid}
	}

	var id json.RawMessage
	if env.ID != nil {
		id = *env.ID
		if len(id) == 0 {
			id = json.RawMessage("null")
		}
	}

	if env.JSONRPC != Version || env.Method == "" {
		return Message{Kind: KindInvalid, ID: id}
	}

	params := env.Params
	if len(params) == 0 || string(params) == "null" {
		params = json.RawMessage("{}")
	}

	if env.ID == nil {
		return Message{
			Kind:   KindNotification,
			Method: env.Method,
			Params: params,
		}
	}

	return Message{
		Kind:   KindRequest,
		ID:     id,
		Method: env.Method,
		Params: params,
	}
}

// Response is a JSON-RPC response. Exactly one of Result and Error is set;
// the builders below enforce this.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is the error member of an error response. Data is omitted
// entirely when nil rather than emitted as null.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewResult builds a success response mirroring the request id.
func NewResult(id json.RawMessage, result any) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      normalizeID(id),
		Result:  result,
	}
}

// NewError builds an error response. Pass a nil id for malformed requests
// whose id could not be determined; it is encoded as null.
func NewError(id json.RawMessage, code int, message string, data any) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      normalizeID(id),
		Error: &ErrorObject{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// normalizeID ensures a nil id serializes as null instead of being dropped
// by the encoder.
func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
