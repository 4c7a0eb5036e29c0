package logs

import (
	"context"
	"log/slog"
)

// Span identifies one RunScene invocation: which scene it ran and a
// short random id distinguishing repeated runs of the same scene, so a
// host tailing logs can group "intro: text_run paused", "intro:
// external dispatch getPlayerName", etc. back to the run that produced
// them, and tell two successive runs of "intro" apart.
type Span struct {
	Scene string
	id    string
}

// String renders the span as "<scene>#<id>", or "" for the zero Span.
func (s Span) String() string {
	if s.Scene == "" && s.id == "" {
		return ""
	}
	return s.Scene + "#" + s.id
}

type spanKeyType struct{}

var spanKey spanKeyType

// Handler wraps a slog.Handler and tags every record with the Span
// carried on the context, if any, as both the rendered span and the
// bare scene name — the latter so a host can filter "every record from
// any run of scene X" without parsing the span string.
type Handler struct {
	slog.Handler
}

func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	if v := ctx.Value(spanKey); v != nil {
		if span, ok := v.(Span); ok && span.String() != "" {
			record.Add("dxvm.span", span.String())
			record.Add("dxvm.scene", span.Scene)
		}
	}
	return h.Handler.Handle(ctx, record)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{Handler: h.Handler.WithGroup(name)}
}
