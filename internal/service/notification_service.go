package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/CrawlerEmporium/issuecrawler/internal/events"
)

// Messenger delivers a direct message to one user. Implemented by the chat
// platform collaborator.
type Messenger interface {
	SendDirect(ctx context.Context, userID, message string) error
}

// NotificationService fans lifecycle events out to ticket subscribers. A
// delivery failure for one subscriber never aborts delivery to the rest.
type NotificationService struct {
	dispatcher events.Dispatcher
	messenger  Messenger
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, messenger Messenger, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		messenger:  messenger,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to every lifecycle event type.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketResolved,
		events.EventTicketReopened,
		events.EventTicketReidentified,
		events.EventTicketMerged,
		events.EventTicketAssigned,
		events.EventVoteCast,
		events.EventReproVerdict,
		events.EventNoteAdded,
	} {
		n.dispatcher.Subscribe(eventType, n.handleEvent)
	}
}

func (n *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	n.logger.Info("lifecycle event",
		zap.String("type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Int("subscribers", len(event.Subscribers)))
	n.Notify(ctx, event.Subscribers, event.Message)
	return nil
}

// Notify attempts direct delivery to each subscriber. Failures are logged per
// recipient and swallowed.
func (n *NotificationService) Notify(ctx context.Context, subscribers []string, message string) {
	if n.messenger == nil || message == "" {
		return
	}
	for _, userID := range subscribers {
		if err := n.messenger.SendDirect(ctx, userID, message); err != nil {
			n.logger.Warn("subscriber delivery failed",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}
}
