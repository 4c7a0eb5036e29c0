package logs

import (
	"log/slog"

	slogmulti "github.com/samber/slog-multi"
)

// Level controls the shared log level for every Logger this package
// builds. A host embedding dxvm flips this at runtime (e.g. from its own
// settings screen); the library itself never reads flags or env vars.
var Level = new(slog.LevelVar)

// Logger is the type dxvm.WithLogger accepts.
type Logger = *slog.Logger

// New builds a Logger writing text-formatted records to writer, fanned
// out through any extra handlers the host supplies (a network sink, a
// in-game console buffer, ...). Fanout uses slog-multi the way tai/logs
// does; unlike tai/logs this drops the systemd-journal sink, since an
// embeddable game-scripting VM has no business assuming it runs under
// systemd — see DESIGN.md.
func New(writer Writer, extra ...slog.Handler) Logger {
	handlers := make([]slog.Handler, 0, 1+len(extra))
	handlers = append(handlers, slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: Level,
	}))
	handlers = append(handlers, extra...)

	return slog.New(&Handler{
		Handler: slogmulti.Fanout(handlers...),
	})
}
