package tenant

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/wisbric/daybook/internal/auth"
)

// Source tags where a resolved tenant identity came from.
type Source string

const (
	SourceToken   Source = "token"
	SourceSession Source = "session"
	SourceUser    Source = "user_record"
	SourceNone    Source = "none"
)

// ResolvedIdentity is a tenant id candidate plus its provenance. Created
// fresh per request, never persisted.
type ResolvedIdentity struct {
	TenantID uuid.UUID
	Source   Source
}

// Found reports whether the resolution produced a usable candidate.
func (ri ResolvedIdentity) Found() bool {
	return ri.Source != SourceNone && ri.TenantID != uuid.Nil
}

// none is the canonical empty resolution.
var none = ResolvedIdentity{Source: SourceNone}

// Resolver produces a tenant identity candidate from a request. Resolvers
// are deterministic, side-effect-free, and never touch the database; a
// malformed identifier resolves to none rather than an error, so every
// "no usable tenant" case funnels through the coordinator's single
// rejection path.
type Resolver interface {
	Resolve(r *http.Request) ResolvedIdentity
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(r *http.Request) ResolvedIdentity

func (f ResolverFunc) Resolve(r *http.Request) ResolvedIdentity { return f(r) }

// Chain tries each resolver in order; the first match wins.
type Chain []Resolver

func (c Chain) Resolve(r *http.Request) ResolvedIdentity {
	for _, res := range c {
		if ri := res.Resolve(r); ri.Found() {
			return ri
		}
	}
	return none
}

// TokenResolver resolves the tenant claim embedded in a validated bearer
// credential. The claim is extracted by the auth middleware; this stage is
// deliberately pluggable so deployments without token-embedded tenants
// simply never match.
func TokenResolver() Resolver {
	return ResolverFunc(func(r *http.Request) ResolvedIdentity {
		id := auth.FromContext(r.Context())
		if id == nil || id.TokenTenantID == uuid.Nil {
			return none
		}
		return ResolvedIdentity{TenantID: id.TokenTenantID, Source: SourceToken}
	})
}

// SessionResolver resolves the tenant recorded in the caller's session.
func SessionResolver() Resolver {
	return ResolverFunc(func(r *http.Request) ResolvedIdentity {
		id := auth.FromContext(r.Context())
		if id == nil || id.SessionTenantID == uuid.Nil {
			return none
		}
		return ResolvedIdentity{TenantID: id.SessionTenantID, Source: SourceSession}
	})
}

// UserRecordResolver resolves the tenant attached to the caller's
// authenticated user record.
func UserRecordResolver() Resolver {
	return ResolverFunc(func(r *http.Request) ResolvedIdentity {
		id := auth.FromContext(r.Context())
		if id == nil || id.UserTenantID == uuid.Nil {
			return none
		}
		return ResolvedIdentity{TenantID: id.UserTenantID, Source: SourceUser}
	})
}

// DefaultChain is the production resolution order: bearer token claim, then
// session, then user record.
func DefaultChain() Chain {
	return Chain{TokenResolver(), SessionResolver(), UserRecordResolver()}
}
