package notify

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/haulage/pkg/cryptox"
)

// LogSink writes notices and alerts to the structured log. It is the default
// when no broker is configured.
type LogSink struct {
	Logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{Logger: logger.With("component", "notify")}
}

func (s *LogSink) SendPasswordReset(ctx context.Context, n PasswordResetNotice) error {
	s.Logger.InfoContext(ctx, "password reset notice",
		"sub", n.Subject,
		"token_fp", cryptox.ShortFingerprint(n.Token),
		"expires_at", n.ExpiresAt,
	)
	return nil
}

func (s *LogSink) Alert(ctx context.Context, a SecurityAlert) {
	s.Logger.WarnContext(ctx, "security alert",
		"kind", string(a.Kind),
		"sub", a.Subject,
		"identifier", a.Identifier,
		"source_addr", a.SourceAddr,
		"failures", a.Failures,
		"detail", a.Detail,
	)
}
