// ABOUTME: Pluggable credential resolution producing an opaque principal.
// ABOUTME: Strategies are mutually exclusive and selected by configuration.

package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultAPIKeyHeader is the header consulted by the api_key strategy when
// no header name is configured.
const DefaultAPIKeyHeader = "x-api-key"

// Strategy selects how credentials are resolved.
type Strategy string

const (
	StrategyNone     Strategy = "none"
	StrategyBearer   Strategy = "bearer_token"
	StrategyAPIKey   Strategy = "api_key"
	StrategyFunction Strategy = "function"
)

// ErrUnauthorized indicates a caller fault: missing or rejected credential.
// The transport maps it to a 401 with a generic message; the wrapped detail
// is for logs only.
var ErrUnauthorized = errors.New("authentication failed")

// ErrMisconfigured indicates a resolver-side configuration error, such as a
// verify function returning an unexpected shape. Distinct from caller fault
// so the transport can map it to a 500 instead of a 401.
var ErrMisconfigured = errors.New("server configuration error")

// Principal is the opaque caller identity attached to authenticated calls.
// The dispatcher and validator pass it through without inspecting it; only
// handlers interpret its shape.
type Principal interface {
	Identity() string
}

// TokenPrincipal is the principal produced by the static token strategies.
type TokenPrincipal string

func (p TokenPrincipal) Identity() string { return string(p) }

// VerifyFunc is an injected verification callable for the function
// strategy. Extra arguments are bound by closing over them.
type VerifyFunc func(credential string) (Principal, error)

// CredentialSource supplies credential material by header name.
type CredentialSource interface {
	Get(name string) string
}

// HeaderSource adapts a header map to a CredentialSource.
type HeaderSource map[string]string

func (h HeaderSource) Get(name string) string {
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Config is the authentication configuration surface.
type Config struct {
	Enabled bool
	Strategy Strategy
	Token    string     // bearer_token: the exact expected secret
	APIKey   string     // api_key: the exact expected key
	Header   string     // api_key: header name, default x-api-key
	Verify   VerifyFunc // function: injected verifier
}

// Resolver resolves credentials into principals per the configured
// strategy. Stateless; safe for concurrent use.
type Resolver struct {
	cfg    Config
	logger *slog.Logger
}

// NewResolver validates the configuration and builds a resolver.
func NewResolver(cfg Config, logger *slog.Logger) (*Resolver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Enabled {
		switch cfg.Strategy {
		case StrategyNone:
		case StrategyBearer:
			if cfg.Token == "" {
				return nil, errors.New("auth: bearer_token strategy requires a token")
			}
		case StrategyAPIKey:
			if cfg.APIKey == "" {
				return nil, errors.New("auth: api_key strategy requires a key")
			}
		case StrategyFunction:
			if cfg.Verify == nil {
				return nil, errors.New("auth: function strategy requires a verify function")
			}
		default:
			return nil, fmt.Errorf("auth: unknown strategy %q", cfg.Strategy)
		}
	}
	if cfg.Header == "" {
		cfg.Header = DefaultAPIKeyHeader
	}
	return &Resolver{cfg: cfg, logger: logger.With("component", "auth")}, nil
}

// Enabled reports whether authentication is active.
func (r *Resolver) Enabled() bool {
	return r.cfg.Enabled && r.cfg.Strategy != StrategyNone
}

// Resolve produces a principal for the supplied credentials, or an error
// wrapping ErrUnauthorized (caller fault) or ErrMisconfigured (server
// fault). With auth disabled it always succeeds with no principal.
func (r *Resolver) Resolve(src CredentialSource) (Principal, error) {
	if !r.Enabled() {
		return nil, nil
	}

	switch r.cfg.Strategy {
	case StrategyBearer:
		return r.resolveBearer(src)
	case StrategyAPIKey:
		return r.resolveAPIKey(src)
	case StrategyFunction:
		return r.resolveFunction(src)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrMisconfigured, r.cfg.Strategy)
	}
}

// bearerCredential extracts the token from an Authorization header,
// accepting the scheme prefix case-insensitively.
func bearerCredential(src CredentialSource) (string, bool) {
	header := src.Get("Authorization")
	if header == "" {
		return "", false
	}
	const scheme = "bearer "
	if len(header) <= len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", false
	}
	token := header[len(scheme):]
	if token == "" {
		return "", false
	}
	return token, true
}

func (r *Resolver) resolveBearer(src CredentialSource) (Principal, error) {
	token, ok := bearerCredential(src)
	if !ok {
		return nil, fmt.Errorf("%w: Missing or invalid Authorization header", ErrUnauthorized)
	}
	// Secret comparison is exact and case-sensitive.
	if subtle.ConstantTimeCompare([]byte(token), []byte(r.cfg.Token)) != 1 {
		return nil, fmt.Errorf("%w: invalid bearer token", ErrUnauthorized)
	}
	return TokenPrincipal("bearer"), nil
}

func (r *Resolver) resolveAPIKey(src CredentialSource) (Principal, error) {
	key := src.Get(r.cfg.Header)
	if key == "" {
		return nil, fmt.Errorf("%w: Missing or invalid %s header", ErrUnauthorized, r.cfg.Header)
	}
	if subtle.ConstantTimeCompare([]byte(key), []byte(r.cfg.APIKey)) != 1 {
		return nil, fmt.Errorf("%w: invalid API key", ErrUnauthorized)
	}
	return TokenPrincipal("api_key"), nil
}

func (r *Resolver) resolveFunction(src CredentialSource) (Principal, error) {
	token, ok := bearerCredential(src)
	if !ok {
		return nil, fmt.Errorf("%w: Missing or invalid Authorization header", ErrUnauthorized)
	}

	principal, err := r.callVerify(token)
	if err != nil {
		if errors.Is(err, ErrMisconfigured) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if principal == nil {
		// A nil principal with no error is an unexpected shape from the
		// verifier, which is our fault rather than the caller's.
		return nil, fmt.Errorf("%w: verify function returned no principal", ErrMisconfigured)
	}
	return principal, nil
}

// callVerify invokes the injected verifier, converting a panic into a
// configuration error instead of letting it take down the request.
func (r *Resolver) callVerify(credential string) (principal Principal, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("verify function panicked", "panic", rec)
			principal = nil
			err = fmt.Errorf("%w: verify function panicked", ErrMisconfigured)
		}
	}()
	return r.cfg.Verify(credential)
}
