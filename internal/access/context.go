package access

import "context"

type providerContextKey struct{}

// ContextWithProvider stores the session's access provider in context.
func ContextWithProvider(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, providerContextKey{}, p)
}

// ProviderFromContext extracts the access provider from context.
func ProviderFromContext(ctx context.Context) *Provider {
	p, _ := ctx.Value(providerContextKey{}).(*Provider)
	return p
}
