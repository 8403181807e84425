// Package identity carries the authenticated user through a request context.
package identity

import "context"

type userKey struct{}

func WithUser(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, userKey{}, ownerID)
}

// CurrentUser returns the authenticated owner id, or false when the request
// is anonymous.
func CurrentUser(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
