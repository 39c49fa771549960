package service

import (
	"context"
	"log/slog"

	"github.com/ironveil/warden/internal/login/domain"
)

// AuditSubscriber logs every established session. Registered on the
// broadcaster ahead of anything that acts on the session, so the audit line
// always precedes redirect resolution.
func AuditSubscriber(logger *slog.Logger) Subscriber {
	return func(_ context.Context, s domain.Session) {
		logger.Info("session established",
			"session_id", s.ID,
			"user_id", s.Identity.UserID,
			"username", s.Identity.Username,
			"admin", s.Identity.IsAdmin,
			"method", s.Method,
		)
	}
}
