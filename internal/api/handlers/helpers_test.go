package handlers

import (
	"io"
	"log/slog"

	"fletoads/internal/core"
)

func discardTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestValidator() *core.Validator {
	return core.NewValidator(discardTestLogger())
}
