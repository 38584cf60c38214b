// ABOUTME: Context plumbing for propagating the resolved principal.
// ABOUTME: Provides WithPrincipal/PrincipalFromContext for request handlers.

package auth

import (
	"context"
)

// principalKey is the key type for storing a Principal in context.Context.
type principalKey struct{}

// WithPrincipal returns a new context with the principal attached.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext retrieves the principal from the context, returning
// nil if the request was unauthenticated (auth disabled).
func PrincipalFromContext(ctx context.Context) Principal {
	val := ctx.Value(principalKey{})
	if val == nil {
		return nil
	}
	p, ok := val.(Principal)
	if !ok {
		return nil
	}
	return p
}
