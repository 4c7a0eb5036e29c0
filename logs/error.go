package logs

import (
	"context"
	"errors"
	"fmt"
)

// WrapSpan annotates err with the scene and span id carried on ctx, if
// any, so an error surfaced from deep inside VM.Update still names
// which RunScene invocation produced it.
func WrapSpan(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	v := ctx.Value(spanKey)
	if v == nil {
		return err
	}
	span, ok := v.(Span)
	if !ok || span.String() == "" {
		return err
	}
	return errors.Join(err, fmt.Errorf("scene %q (span %s)", span.Scene, span))
}
