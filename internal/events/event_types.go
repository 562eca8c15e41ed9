package events

import (
	"time"
)

// EventType enumerates lifecycle events emitted by the engine.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketResolved     EventType = "ticket_resolved"
	EventTicketReopened     EventType = "ticket_reopened"
	EventTicketReidentified EventType = "ticket_reidentified"
	EventTicketMerged       EventType = "ticket_merged"
	EventTicketAssigned     EventType = "ticket_assigned"
	EventTicketUntracked    EventType = "ticket_untracked"
	EventVoteCast           EventType = "vote_cast"
	EventReproVerdict       EventType = "repro_verdict"
	EventNoteAdded          EventType = "note_added"
)

// Event is one lifecycle notification. Subscribers listed on the event are the
// ticket's subscriber set at the time of the mutation.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	CommunityID string    `json:"community_id"`
	TicketID    string    `json:"ticket_id"`
	ActorID     string    `json:"actor_id"`
	Subscribers []string  `json:"subscribers"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Payload     any       `json:"payload,omitempty"`
}

// VoteCastPayload payload.
type VoteCastPayload struct {
	Stance    string `json:"stance"`
	Upvotes   int    `json:"upvotes"`
	Downvotes int    `json:"downvotes"`
	Shrugs    int    `json:"shrugs"`
}

// ReproVerdictPayload payload.
type ReproVerdictPayload struct {
	Verdict      string `json:"verdict"`
	Verification int    `json:"verification"`
}

// TicketResolvedPayload payload.
type TicketResolvedPayload struct {
	Comment   string `json:"comment,omitempty"`
	IsPending bool   `json:"is_pending"`
}

// TicketReidentifiedPayload payload.
type TicketReidentifiedPayload struct {
	OldTicketID string `json:"old_ticket_id"`
	NewTicketID string `json:"new_ticket_id"`
}

// TicketMergedPayload payload.
type TicketMergedPayload struct {
	DuplicateID string `json:"duplicate_id"`
	TargetID    string `json:"target_id"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID *string `json:"assignee_id,omitempty"`
}

// NoteAddedPayload payload.
type NoteAddedPayload struct {
	AuthorID string `json:"author_id"`
	Preview  string `json:"preview"`
}
