package events

import (
	"context"
	"errors"
	"testing"
)

func TestPublishDeliversPerType(t *testing.T) {
	d := NewInMemoryDispatcher()
	var resolved, created int
	d.Subscribe(EventTicketResolved, func(ctx context.Context, ev Event) error {
		resolved++
		return nil
	})
	d.Subscribe(EventTicketCreated, func(ctx context.Context, ev Event) error {
		created++
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventTicketResolved, TicketID: "BUG-1"}); err != nil {
		t.Fatal(err)
	}
	if resolved != 1 || created != 0 {
		t.Fatalf("resolved = %d, created = %d; want 1, 0", resolved, created)
	}
}

func TestPublishContinuesPastFailingHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var order []string
	d.Subscribe(EventVoteCast, func(ctx context.Context, ev Event) error {
		order = append(order, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventVoteCast, func(ctx context.Context, ev Event) error {
		order = append(order, "second")
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventVoteCast}); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("handler order = %v", order)
	}
}

func TestPublishWithNoListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	if err := d.Publish(context.Background(), Event{Type: EventNoteAdded}); err != nil {
		t.Fatalf("publish with no listeners: %v", err)
	}
}
