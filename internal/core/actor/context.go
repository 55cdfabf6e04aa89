package actor

import "context"

type actorKey struct{}

// WithActor stores a in ctx. Only transport code (HTTP middleware, workers)
// uses this; services receive the actor as an argument.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// FromContext returns the actor stored by WithActor.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
