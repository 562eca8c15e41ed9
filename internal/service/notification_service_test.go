package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/CrawlerEmporium/issuecrawler/internal/events"
)

type fakeMessenger struct {
	mu        sync.Mutex
	delivered map[string][]string
	failing   map[string]bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		delivered: make(map[string][]string),
		failing:   make(map[string]bool),
	}
}

func (m *fakeMessenger) SendDirect(ctx context.Context, userID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing[userID] {
		return errors.New("dm closed")
	}
	m.delivered[userID] = append(m.delivered[userID], message)
	return nil
}

func TestNotifySkipsFailedRecipients(t *testing.T) {
	messenger := newFakeMessenger()
	messenger.failing["bob"] = true
	svc := NewNotificationService(nil, messenger, zap.NewNop())

	svc.Notify(context.Background(), []string{"alice", "bob", "carol"}, "BUG-1 was resolved")

	for _, user := range []string{"alice", "carol"} {
		if len(messenger.delivered[user]) != 1 {
			t.Errorf("%s received %d messages, want 1", user, len(messenger.delivered[user]))
		}
	}
	if len(messenger.delivered["bob"]) != 0 {
		t.Error("delivery to bob should have failed")
	}
}

func TestRegisterHandlersFansOutLifecycleEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	messenger := newFakeMessenger()
	svc := NewNotificationService(dispatcher, messenger, zap.NewNop())
	svc.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:        events.EventTicketResolved,
		CommunityID: "guild-1",
		TicketID:    "BUG-1",
		Subscribers: []string{"alice", "bob"},
		Message:     "BUG-1 was resolved",
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, user := range []string{"alice", "bob"} {
		if len(messenger.delivered[user]) != 1 {
			t.Fatalf("%s received %d messages, want 1", user, len(messenger.delivered[user]))
		}
	}
}

func TestNotifyEmptyMessageIsNoOp(t *testing.T) {
	messenger := newFakeMessenger()
	svc := NewNotificationService(nil, messenger, zap.NewNop())

	svc.Notify(context.Background(), []string{"alice"}, "")
	if len(messenger.delivered) != 0 {
		t.Fatal("empty message should not be delivered")
	}
}
