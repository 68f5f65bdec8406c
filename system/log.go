package system

import (
	"io"
	"log/slog"

	"github.com/google/uuid"

	"gravimeter-go/services/config"
)

// NewLogger builds the root logger from the environment. Every line carries
// the boot id of this process.
func NewLogger(e config.Env, w io.Writer) (*slog.Logger, string) {
	opts := &slog.HandlerOptions{Level: e.SlogLevel()}
	var h slog.Handler
	if e.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	boot := uuid.NewString()
	return slog.New(h).With("boot", boot), boot
}
