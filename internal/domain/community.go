package domain

import "time"

// Default thresholds applied at community registration.
const (
	DefaultVoteThreshold = 5
	DefaultNoteThreshold = 5
)

// Community is an isolated tenant: one chat server with its own identifier
// namespace, manager list, and thresholds.
type Community struct {
	ID               string
	TrackerChannelID string
	Repo             *string
	// VoteThreshold is the net score at which an open feature/support ticket
	// is escalated to the external tracker.
	VoteThreshold int
	// NoteThreshold caps how many follow-up attachments are copied into a
	// newly mirrored issue for non-bug kinds.
	NoteThreshold int
	Identifiers   []Identifier
	CreatedAt     time.Time
}

// Identifier is a short per-community code (e.g. "BUG", "FR") prefixing ticket
// ids. Each identifier fixes the kind of tickets created under it.
type Identifier struct {
	CommunityID string
	Code        string
	Kind        TicketKind
}

// FindIdentifier returns the identifier with the given code, if registered.
func (c *Community) FindIdentifier(code string) (Identifier, bool) {
	for _, ident := range c.Identifiers {
		if ident.Code == code {
			return ident, true
		}
	}
	return Identifier{}, false
}

// Manager is a moderation account scoped to one community.
type Manager struct {
	CommunityID string
	UserID      string
	SecretHash  string
	CreatedAt   time.Time
}
