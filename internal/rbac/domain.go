// Package rbac guards HTTP endpoints with permission checks.
package rbac

import "context"

// Authorizer resolves the effective permissions of an actor.
type Authorizer interface {
	EffectivePermissions(ctx context.Context, actorID int64) ([]string, error)
}

// StaticAuthorizer grants a fixed permission set per actor. It backs
// deployments that manage roles outside this service and push the
// resolved grants in through configuration.
type StaticAuthorizer struct {
	Grants map[int64][]string
}

// EffectivePermissions returns the configured grants for the actor.
func (a StaticAuthorizer) EffectivePermissions(_ context.Context, actorID int64) ([]string, error) {
	return a.Grants[actorID], nil
}

// AllowAll grants every permission to every actor.
type AllowAll struct{}

// EffectivePermissions reports the wildcard grant.
func (AllowAll) EffectivePermissions(context.Context, int64) ([]string, error) {
	return []string{"*"}, nil
}
