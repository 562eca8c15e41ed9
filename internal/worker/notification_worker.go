package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/CrawlerEmporium/issuecrawler/internal/service"
)

// LogMessenger writes direct messages to the log. Stands in for the chat
// platform collaborator in headless deployments.
type LogMessenger struct {
	logger *zap.Logger
}

// NewLogMessenger constructs the messenger.
func NewLogMessenger(logger *zap.Logger) *LogMessenger {
	return &LogMessenger{logger: logger}
}

// SendDirect logs the message instead of delivering it.
func (m *LogMessenger) SendDirect(ctx context.Context, userID, message string) error {
	m.logger.Info("direct message",
		zap.String("user_id", userID),
		zap.String("message", message))
	return nil
}

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
