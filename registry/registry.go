// Package registry maps active protocol connection ids to the decoded
// credential payload presented on that connection. Entries live exactly as
// long as their connection.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/plexora/authbridge/credential"
	"github.com/viant/mcp-protocol/syncmap"
)

// ErrInvalidCredential is the single error kind the tool layer needs to
// special-case; the transport maps it to a protocol-level re-authorization
// challenge.
var ErrInvalidCredential = errors.New("invalid credential")

// Registry is the connection auth registry. All operations are in-memory and
// never block on network I/O.
type Registry struct {
	entries *syncmap.Map[string, *credential.Payload]
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: syncmap.NewMap[string, *credential.Payload]()}
}

// Attach stores the payload for a connection id, overwriting any stale entry
// left by a reconnect.
func (r *Registry) Attach(connectionID string, payload *credential.Payload) {
	r.entries.Put(connectionID, payload)
}

// Lookup returns the payload associated with a connection id. Entries whose
// payload expired are dropped on read; the next authorized request re-attaches
// a fresh one.
func (r *Registry) Lookup(connectionID string) (*credential.Payload, error) {
	payload, ok := r.entries.Get(connectionID)
	if !ok {
		return nil, ErrInvalidCredential
	}
	if !payload.ExpiresAt.IsZero() && time.Now().After(payload.ExpiresAt) {
		r.entries.Delete(connectionID)
		return nil, ErrInvalidCredential
	}
	return payload, nil
}

// Detach removes the entry for a connection id. Called from the transport
// close path regardless of close reason; detaching an absent id is a no-op.
func (r *Registry) Detach(connectionID string) {
	r.entries.Delete(connectionID)
}

// Invalidate removes the entry after a downstream call signaled that the
// credential is no longer valid.
func (r *Registry) Invalidate(connectionID string) {
	r.entries.Delete(connectionID)
}

// Size returns the number of live entries.
func (r *Registry) Size() int {
	return r.entries.Size()
}

type payloadKey struct{}

// NewContext returns a context carrying the connection's decoded payload.
func NewContext(ctx context.Context, payload *credential.Payload) context.Context {
	return context.WithValue(ctx, payloadKey{}, payload)
}

// FromContext returns the decoded payload attached to the request context,
// or ErrInvalidCredential when the connection carries none.
func FromContext(ctx context.Context) (*credential.Payload, error) {
	payload, ok := ctx.Value(payloadKey{}).(*credential.Payload)
	if !ok || payload == nil {
		return nil, ErrInvalidCredential
	}
	return payload, nil
}
