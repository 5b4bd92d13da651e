package host

import (
	"context"
	"log/slog"

	"github.com/opal-lang/rsx/internal/ctxlog"
)

// LogFeedback forwards feedback to a structured logger.
type LogFeedback struct {
	logger *slog.Logger
}

// NewLogFeedback uses the logger carried by ctx.
func NewLogFeedback(ctx context.Context) *LogFeedback {
	return &LogFeedback{logger: ctxlog.FromContext(ctx)}
}

func (f *LogFeedback) PushInfo(msg string) {
	f.logger.Info(msg)
}

func (f *LogFeedback) PushCommand(cmd string) {
	f.logger.Debug("command", "cmd", cmd)
}

func (f *LogFeedback) PushConsole(line string) {
	f.logger.Info("R", "console", line)
}

func (f *LogFeedback) ReportError(msg string) {
	f.logger.Error(msg)
}
