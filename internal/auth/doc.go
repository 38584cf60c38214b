// Package auth resolves caller credentials into opaque principals.
//
// # Strategies
//
// Exactly one strategy is active per configured endpoint:
//
//   - none: every request is admitted with no principal.
//
//   - bearer_token: the Authorization header must carry the configured
//     secret. The "Bearer " scheme prefix is accepted case-insensitively;
//     the secret comparison is exact and constant-time.
//
//   - api_key: the configured header (default x-api-key) must equal the
//     configured key exactly.
//
//   - function: an injected VerifyFunc receives the raw credential and
//     returns a principal or an error. Useful for JWT or MFA flows; see
//     JWTVerify for a ready-made HS256 verifier.
//
// # Error classes
//
// Resolution failures wrap one of two sentinels: ErrUnauthorized for
// caller faults (missing or rejected credential) and ErrMisconfigured for
// resolver-side problems (a verify function returning an unexpected shape
// or panicking). The transport maps the former to 401 and the latter to
// 500, but presents the same generic message to the caller either way so
// configuration detail never leaks.
//
// # Principal flow
//
// The resolver runs at the transport boundary, before dispatch. The
// resulting Principal travels via WithPrincipal/PrincipalFromContext and
// is never inspected by the dispatcher or validator; only handlers
// interpret its shape.
package auth
