package logs

import (
	"context"
	"crypto/rand"
)

// NewSpan starts a Span for one run of the named scene and returns a
// context carrying it plus the span itself. Unlike a generic nested
// call-tree span, a dxvm Span never has a parent: RunScene abandons
// whatever scene was previously running rather than nesting under it
// (§5's "a scene may be abandoned by calling run_scene with a new
// name"), so each RunScene invocation simply starts its own flat span.
type NewSpan func(ctx context.Context, scene string) (context.Context, Span)

// NewSpanFunc builds a NewSpan bound to logger. Every span is recorded
// as an info-level "scene started" record naming the scene, so a host
// tailing logs can see exactly when each run began and match later
// debug records (tagged with the same span) back to it.
func NewSpanFunc(logger Logger) NewSpan {
	return func(ctx context.Context, scene string) (context.Context, Span) {
		span := Span{Scene: scene, id: rand.Text()}
		ctx = context.WithValue(ctx, spanKey, span)
		logger.InfoContext(ctx, "scene started", "scene", scene)
		return ctx, span
	}
}
