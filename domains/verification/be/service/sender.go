package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LogSender writes issued codes to the structured log instead of
// delivering them. Development only.
type LogSender struct {
	Logger *zap.Logger
}

func (s *LogSender) SendCode(_ context.Context, email, code string, expiresAt time.Time) error {
	s.Logger.Info("issued one-time code",
		zap.String("email", email),
		zap.String("code", code),
		zap.Time("expires_at", expiresAt),
	)
	return nil
}

var _ CodeSender = (*LogSender)(nil)
