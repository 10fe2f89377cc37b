package access

import (
	"context"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

const identityBumpChannel = "identity.bump"

// Registry holds one Provider per active session and tears them down on
// sign-out. Session-change notifications from other instances arrive over a
// redis channel so a role reassignment or sign-out anywhere invalidates the
// session's cached decisions everywhere.
type Registry struct {
	source GrantSource
	client *redis.Client
	logger *slog.Logger

	mu        sync.Mutex
	providers map[string]*Provider
}

// NewRegistry constructs a Registry. client may be nil in tests; Invalidate
// then only drops the local provider.
func NewRegistry(source GrantSource, client *redis.Client, logger *slog.Logger) *Registry {
	return &Registry{
		source:    source,
		client:    client,
		logger:    logger,
		providers: make(map[string]*Provider),
	}
}

// For returns the provider for a session, creating one on first use.
func (r *Registry) For(sessionID string) *Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[sessionID]; ok {
		return p
	}
	p := NewProvider(r.source, r.logger)
	r.providers[sessionID] = p
	return p
}

// Drop removes and resets the provider for a session.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	p, ok := r.providers[sessionID]
	delete(r.providers, sessionID)
	r.mu.Unlock()
	if ok {
		p.Reset()
	}
}

// Invalidate drops the session's provider locally and broadcasts the change
// to other instances.
func (r *Registry) Invalidate(ctx context.Context, sessionID string) {
	r.Drop(sessionID)
	if r.client == nil {
		return
	}
	if err := r.client.Publish(ctx, identityBumpChannel, sessionID).Err(); err != nil && r.logger != nil {
		r.logger.Warn("publish identity bump", slog.Any("error", err))
	}
}

// Listen subscribes to session-change notifications until ctx is done.
func (r *Registry) Listen(ctx context.Context) {
	if r.client == nil {
		return
	}
	pubsub := r.client.Subscribe(ctx, identityBumpChannel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg.Payload != "" {
					r.Drop(msg.Payload)
				}
			}
		}
	}()
}
