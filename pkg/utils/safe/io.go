package safe

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/secmon-lab/tickerchat/pkg/utils/logging"
)

// Close safely closes an io.Closer and logs any errors.
// It handles nil closers gracefully.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("Failed to close", slog.Any("error", err))
	}
}

// WriteString writes s to w and reports whether every byte was accepted.
// A short write counts as a failure. Flushes afterwards when w supports it.
func WriteString(ctx context.Context, w io.Writer, s string) bool {
	if w == nil {
		return false
	}
	n, err := io.WriteString(w, s)
	if err != nil || n != len(s) {
		logging.From(ctx).Debug("Sink rejected write",
			slog.Any("error", err),
			slog.Int("written", n),
			slog.Int("size", len(s)))
		return false
	}
	Flush(w)
	return true
}

// Flush pushes buffered bytes to the client if w is an http.Flusher
func Flush(w io.Writer) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
