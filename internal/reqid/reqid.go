// Package reqid carries a request id through a context.
package reqid

import (
	"context"

	"github.com/google/uuid"
)

type key struct{}

// Header is the HTTP and gRPC metadata key carrying the request id.
const Header = "X-Request-Id"

// NewContext returns a copy of parent carrying a fresh random id, and the
// id.
func NewContext(parent context.Context) (context.Context, string) {
	id := uuid.NewString()
	return context.WithValue(parent, key{}, id), id
}

// WithID returns a copy of parent carrying id. An id that is not a UUID is
// replaced by a fresh one.
func WithID(parent context.Context, id string) (context.Context, string) {
	if _, err := uuid.Parse(id); err != nil {
		return NewContext(parent)
	}
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the request id from ctx.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}
