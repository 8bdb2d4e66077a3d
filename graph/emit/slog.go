package emit

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// NewLogger returns a logger that writes to stdout with colorized output if
// stdout is a terminal.
func NewLogger() *slog.Logger {
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.RFC3339,
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	}))
}

// SlogEmitter implements Emitter on top of log/slog.
//
// Useful when the application already routes everything through a slog
// handler and wants engine events in the same stream.
type SlogEmitter struct {
	logger *slog.Logger
}

// NewSlogEmitter creates an emitter backed by the given logger.
// A nil logger falls back to NewLogger().
func NewSlogEmitter(logger *slog.Logger) *SlogEmitter {
	if logger == nil {
		logger = NewLogger()
	}
	return &SlogEmitter{logger: logger}
}

// Emit logs the event at info level with structured attributes.
func (s *SlogEmitter) Emit(event Event) {
	attrs := []any{
		slog.String("session", event.SessionID),
		slog.Int("seq", event.Seq),
		slog.String("node", event.Node),
	}
	for k, v := range event.Meta {
		attrs = append(attrs, slog.Any(k, v))
	}
	s.logger.Info(event.Msg, attrs...)
}
