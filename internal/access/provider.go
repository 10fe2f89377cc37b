package access

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/clinicore/clinicore/internal/grants"
	"github.com/clinicore/clinicore/internal/identity"
)

// State captures the load lifecycle of a provider's grant set.
type State int

const (
	// StateUninitialized means no principal has been bound yet.
	StateUninitialized State = iota
	// StateLoading means the first grant fetch for the current identity is
	// in flight. Every Can query fails closed.
	StateLoading
	// StateLoaded means grants are available and decisions are live.
	StateLoaded
	// StateRefreshing means a soft refresh is in flight; the previous
	// loaded set keeps answering until the new result commits.
	StateRefreshing
	// StateFailed means the last fetch errored. Decisions fail closed, but
	// the state is kept distinct from "loaded with zero grants" so callers
	// can tell a broken permission subsystem from an unconfigured one.
	StateFailed
)

// ErrNotBound is returned by Refresh when no principal is bound.
var ErrNotBound = errors.New("access: no principal bound")

// GrantSource supplies the grant rows for a tenant.
type GrantSource interface {
	ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]Grant, error)
}

// Grant aliases the store row type so consumers of this package do not need
// to import the store package for the source interface alone.
type Grant = grants.Grant

// Provider is the per-session cached view of a tenant's grants together with
// the synchronous Can query the rest of the application consumes. It owns
// the load lifecycle: binding a principal, refreshing after grant edits, and
// discarding stale in-flight results when the identity changes mid-fetch.
type Provider struct {
	source GrantSource
	logger *slog.Logger
	group  *singleflight.Group

	mu        sync.Mutex
	state     State
	set       grants.Set
	principal identity.Principal
	bound     bool
	// epoch increments on every identity change; a fetch result is only
	// committed when the epoch it was issued under is still current. This
	// is what stops a slow fetch for the previous tenant from overwriting
	// the grants of the tenant the principal switched to.
	epoch uint64
}

// NewProvider constructs a Provider over the given source.
func NewProvider(source GrantSource, logger *slog.Logger) *Provider {
	return &Provider{source: source, logger: logger, group: &singleflight.Group{}}
}

// Bind associates the provider with a principal and starts loading grants in
// the background. Binding the same (tenant, role) identity again is a no-op;
// a changed identity hard-resets to Loading so stale decisions can never
// leak across tenants or roles.
func (p *Provider) Bind(ctx context.Context, principal identity.Principal) {
	p.mu.Lock()
	if p.bound && p.sameIdentityLocked(principal) && p.state != StateFailed {
		p.mu.Unlock()
		return
	}
	epoch, tenantID, needsFetch := p.rebindLocked(principal)
	p.mu.Unlock()

	if needsFetch {
		// The fetch must outlive the request that triggered it: net/http
		// cancels the request context the moment the handler returns, which
		// would strand the provider in Failed before the result commits.
		bg := context.WithoutCancel(ctx)
		go func() {
			if err := p.load(bg, tenantID, epoch); err != nil && p.logger != nil {
				p.logger.Error("load grants", slog.Any("error", err))
			}
		}()
	}
}

// Ensure is the synchronous variant of Bind: it returns once the provider is
// ready to answer decisions for the principal. HTTP middleware uses this so
// a request is never evaluated against a half-loaded state.
func (p *Provider) Ensure(ctx context.Context, principal identity.Principal) error {
	p.mu.Lock()
	if p.bound && p.sameIdentityLocked(principal) {
		switch p.state {
		case StateLoaded, StateRefreshing:
			p.mu.Unlock()
			return nil
		}
	}
	epoch, tenantID, needsFetch := p.rebindLocked(principal)
	p.mu.Unlock()

	if !needsFetch {
		return nil
	}
	return p.load(ctx, tenantID, epoch)
}

// Can reports whether the bound principal may perform action on module.
// It is synchronous and fails closed whenever grants are not loaded:
// uninitialized, loading, and failed states all deny. During a soft refresh
// the previous loaded set keeps answering.
func (p *Provider) Can(module Module, action Action) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case StateLoaded, StateRefreshing:
		return Decide(p.principal, module, action, p.set)
	default:
		return false
	}
}

// Loading reports whether a first fetch for the current identity is still in
// flight. Consumers use it to distinguish "denied" from "not yet known".
func (p *Provider) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == StateLoading || (p.bound && p.state == StateUninitialized)
}

// State returns the provider's lifecycle state.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Refresh re-fetches the grant set for the current identity. When a loaded
// set exists this is a soft refresh: prior decisions keep answering until
// the new result commits, so consumers never see a flash of denials after
// an admin edits grants. Fetch errors are returned and the prior loaded
// state is retained.
func (p *Provider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	if !p.bound {
		p.mu.Unlock()
		return ErrNotBound
	}
	if !p.principal.HasTenant() || IsPrivileged(p.principal.RoleSlug) {
		p.mu.Unlock()
		return nil
	}
	if p.state == StateLoaded || p.state == StateRefreshing {
		p.state = StateRefreshing
	} else {
		p.state = StateLoading
	}
	epoch := p.epoch
	tenantID := *p.principal.TenantID
	p.mu.Unlock()

	return p.load(ctx, tenantID, epoch)
}

// Reset tears the provider down to Uninitialized, e.g. on sign-out. Any
// in-flight fetch result is discarded by the epoch bump.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.epoch++
	p.state = StateUninitialized
	p.set = grants.NewSet(nil)
	p.principal = identity.Principal{}
	p.bound = false
}

// Decisions returns the full allow/deny map for every module and action,
// plus the loading flag, for the current identity.
func (p *Provider) Decisions() (map[Module]map[Action]bool, bool) {
	out := make(map[Module]map[Action]bool, len(Modules()))
	for _, m := range Modules() {
		actions := make(map[Action]bool, len(Actions()))
		for _, a := range Actions() {
			actions[a] = p.Can(m, a)
		}
		out[m] = actions
	}
	return out, p.Loading()
}

// rebindLocked installs the new identity and decides whether a fetch is
// needed. Principals without a tenant and admin-tier principals go straight
// to Loaded: the former deny everything, the latter allow everything, and
// neither answer depends on grant rows.
func (p *Provider) rebindLocked(principal identity.Principal) (epoch uint64, tenantID uuid.UUID, needsFetch bool) {
	p.epoch++
	p.principal = principal
	p.bound = true
	p.set = grants.NewSet(nil)

	if !principal.HasTenant() || IsPrivileged(principal.RoleSlug) {
		p.state = StateLoaded
		return p.epoch, uuid.UUID{}, false
	}
	p.state = StateLoading
	return p.epoch, *principal.TenantID, true
}

// load fetches the tenant's grants and commits them if the identity has not
// changed since the fetch was issued. Concurrent fetches for the same tenant
// collapse into one backend call.
func (p *Provider) load(ctx context.Context, tenantID uuid.UUID, epoch uint64) error {
	result, err, _ := p.group.Do(tenantID.String(), func() (any, error) {
		return p.source.ListForTenant(ctx, tenantID)
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.epoch != epoch {
		// Identity changed while the fetch was in flight; the result no
		// longer describes the bound principal.
		return nil
	}
	if err != nil {
		if p.state == StateRefreshing {
			p.state = StateLoaded
		} else {
			p.state = StateFailed
		}
		return err
	}
	rows, _ := result.([]Grant)
	p.set = grants.NewSet(rows)
	p.state = StateLoaded
	return nil
}

func (p *Provider) sameIdentityLocked(principal identity.Principal) bool {
	if p.principal.RoleSlug != principal.RoleSlug {
		return false
	}
	switch {
	case p.principal.TenantID == nil && principal.TenantID == nil:
		return true
	case p.principal.TenantID == nil || principal.TenantID == nil:
		return false
	default:
		return *p.principal.TenantID == *principal.TenantID
	}
}
