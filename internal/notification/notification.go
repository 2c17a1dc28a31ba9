// Package notification delivers operational messages raised during
// synchronization and provisioning, such as readonly-system skips and
// uniform password handouts.
package notification

import (
	"context"
	"log/slog"
)

// Topics group related messages so downstream channels can route them.
const (
	TopicSystemReadonly  = "provisioning:system-readonly"
	TopicUniformPassword = "provisioning:uniform-password"
	TopicSyncResult      = "sync:result"
)

// Manager sends a message on a topic to the given recipients. An empty
// recipient list addresses the operators channel.
type Manager interface {
	Send(ctx context.Context, topic, message string, recipients []string) error
}

// LogManager writes every notification to the structured log. It is the
// default manager when no external channel is configured.
type LogManager struct {
	logger *slog.Logger
}

func NewLogManager(logger *slog.Logger) *LogManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogManager{logger: logger}
}

func (m *LogManager) Send(ctx context.Context, topic, message string, recipients []string) error {
	m.logger.InfoContext(ctx, "notification sent",
		slog.String("topic", topic),
		slog.String("message", message),
		slog.Int("recipients", len(recipients)),
	)
	return nil
}
