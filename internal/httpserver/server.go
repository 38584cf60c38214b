// ABOUTME: HTTP transport for the JSON-RPC dispatch core.
// ABOUTME: Resolves auth before dispatch; preflight requests bypass auth.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/2389/lattice-mcp/internal/auth"
	"github.com/2389/lattice-mcp/internal/dispatch"
	"github.com/2389/lattice-mcp/internal/protocol"
)

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// Config holds configuration for the HTTP server.
type Config struct {
	Dispatcher *dispatch.Dispatcher
	Resolver   *auth.Resolver
	Logger     *slog.Logger
}

// Server exposes the dispatcher over HTTP POST.
type Server struct {
	dispatcher *dispatch.Dispatcher
	resolver   *auth.Resolver
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if cfg.Resolver == nil {
		return nil, errors.New("resolver is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		dispatcher: cfg.Dispatcher,
		resolver:   cfg.Resolver,
		logger:     logger.With("component", "http"),
	}, nil
}

// RegisterRoutes registers the MCP endpoint on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/mcp", s.handleMCP)
}

// handleMCP is the single JSON-RPC endpoint.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	switch r.Method {
	case http.MethodOptions:
		// Preflight bypasses authentication regardless of strategy.
		w.WriteHeader(http.StatusNoContent)
	case http.MethodPost:
		s.handlePost(w, r)
	default:
		w.Header().Set("Allow", "POST, OPTIONS")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// headerSource adapts request headers to the auth credential contract.
type headerSource struct {
	header http.Header
}

func (h headerSource) Get(name string) string {
	return h.header.Get(name)
}

// handlePost authenticates the caller, classifies the body, and dispatches.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	principal, err := s.resolver.Resolve(headerSource{r.Header})
	if err != nil {
		// Caller faults and server misconfiguration present identically to
		// the caller; only the status code and logs distinguish them.
		status := http.StatusUnauthorized
		if errors.Is(err, auth.ErrMisconfigured) {
			status = http.StatusInternalServerError
			s.logger.Error("auth resolver misconfigured", "error", err)
		} else {
			s.logger.Warn("authentication rejected", "error", err)
		}
		writeJSON(w, status, map[string]string{"error": "Authentication failed"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.writeResponse(w, protocol.NewError(nil, protocol.CodeParseError, "failed to read request body", nil))
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.writeResponse(w, protocol.NewError(nil, protocol.CodeInvalidRequest, "request body too large", nil))
		return
	}

	if !json.Valid(body) {
		s.writeResponse(w, protocol.NewError(nil, protocol.CodeParseError, "invalid JSON", nil))
		return
	}

	msg := protocol.Classify(body)

	s.logger.Debug("rpc request", "method", msg.Method, "kind", msg.Kind.String())

	ctx := auth.WithPrincipal(r.Context(), principal)
	resp := s.dispatcher.Dispatch(ctx, msg)
	if resp == nil {
		// Notification: acknowledged, no response body.
		w.WriteHeader(http.StatusAccepted)
		return
	}

	s.writeResponse(w, resp)
}

func (s *Server) writeResponse(w http.ResponseWriter, resp *protocol.Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Api-Key")
}
