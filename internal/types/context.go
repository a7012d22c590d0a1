package types

import "context"

// Actor represents the authenticated entity performing a request.
// It is resolved from the session token by the auth middleware and carries
// the live role data needed for the organization-member gates.
type Actor struct {
	UserID         string
	OrganizationID string
	Email          string
	FullName       string
	Role           UserRole
	IsGuest        bool
}

// IsOrganizationMember reports whether the actor may invoke billing
// operations on behalf of its organization. Guests are excluded.
func (a Actor) IsOrganizationMember() bool {
	return a.UserID != "" && a.OrganizationID != "" && !a.IsGuest
}

type contextKey string

const (
	actorKey     contextKey = "actor"
	requestIDKey contextKey = "request_id"
)

// WithActor stores the Actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor retrieves the Actor from the context.
func GetActor(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

// WithRequestID stores the request correlation ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request correlation ID from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
