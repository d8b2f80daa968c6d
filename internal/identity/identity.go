package identity

import "context"

const (
	RoleMember           = "member"
	RoleCooperativeAdmin = "cooperative_admin"
	RolePlatformAdmin    = "platform_admin"
)

// Actor is the authenticated caller, resolved upstream and carried on the
// request context. Authentication itself happens before traffic reaches
// this service.
type Actor struct {
	UserID        int64
	CooperativeID int64
	Role          string
}

func (a Actor) IsPlatformAdmin() bool    { return a.Role == RolePlatformAdmin }
func (a Actor) IsCooperativeAdmin() bool { return a.Role == RoleCooperativeAdmin }

type actorContextKey struct{}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// FromContext returns the actor from context, if set.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok || actor.UserID == 0 {
		return Actor{}, false
	}
	return actor, true
}
