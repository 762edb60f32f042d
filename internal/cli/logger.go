package cli

import (
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
)

// NewLogger writes colored records to w when it is a terminal. level can be
// raised after flags are parsed.
func NewLogger(w io.Writer, isTTY bool, level *slog.LevelVar) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		NoColor:    !isTTY,
		TimeFormat: "2006-01-02 15:04:05.000",
	}))
}
