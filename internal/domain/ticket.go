package domain

import "time"

// TicketKind classifies a tracked item. Fixed at creation; determines which
// vote/verification operations are legal.
type TicketKind string

const (
	KindBug            TicketKind = "BUG"
	KindFeatureRequest TicketKind = "FEATURE_REQUEST"
	KindSupport        TicketKind = "SUPPORT"
)

// Priority is an integer severity code. 0..7 are open states, with 6 the
// default for newly opened tickets. -1 marks a resolved ticket and -2 a
// resolved ticket awaiting a release.
const (
	PriorityCritical     = 0
	PrioritySevere       = 1
	PriorityMajor        = 2
	PriorityModerate     = 3
	PriorityMinor        = 4
	PriorityTrivial      = 5
	PriorityPending      = 6
	PriorityInReview     = 7
	PriorityResolved     = -1
	PriorityPatchPending = -2
)

// PriorityLabels maps open priority codes to external tracker labels.
var PriorityLabels = map[int]string{
	PriorityCritical: "P0: Critical",
	PrioritySevere:   "P1: Severe",
	PriorityMajor:    "P2: Major",
	PriorityModerate: "P3: Moderate",
	PriorityMinor:    "P4: Minor",
	PriorityTrivial:  "P5: Trivial",
	PriorityPending:  "P6: Pending",
	PriorityInReview: "In Review",
}

// ParseKind maps a kind tag ("bug", "featurereq", "support") to a TicketKind.
func ParseKind(tag string) (TicketKind, bool) {
	switch tag {
	case "bug", "BUG":
		return KindBug, true
	case "featurereq", "FEATURE_REQUEST":
		return KindFeatureRequest, true
	case "support", "SUPPORT":
		return KindSupport, true
	}
	return "", false
}

// Ticket is the aggregate root for a tracked bug, feature request, or support
// request. TicketID has the form <IDENTIFIER>-<N> and is unique within a
// community's identifier namespace.
type Ticket struct {
	TicketID     string
	CommunityID  string
	Kind         TicketKind
	Title        string
	Priority     int
	Verification int
	Upvotes      int
	Downvotes    int
	Shrugs       int
	ReporterID   string
	AssigneeID   *string
	Subscribers  []string

	ExternalIssueID *int
	ExternalRepo    *string

	JumpURL               *string
	PresentationMessageID *string
	ThreadID              *string

	TrackerChannelID string
	Milestones       []string

	OpenedAt      time.Time
	ClosedAt      *time.Time
	LastUpdatedAt time.Time
}

// IsOpen reports whether the ticket is in an open state.
func (t *Ticket) IsOpen() bool {
	return t.Priority != PriorityResolved
}

// IsVotable reports whether vote tallies apply to this kind.
func (t *Ticket) IsVotable() bool {
	return t.Kind == KindFeatureRequest || t.Kind == KindSupport
}

// Score is the net vote score used for escalation and tier labels.
func (t *Ticket) Score() int {
	return t.Upvotes - t.Downvotes
}

// IsMirrored reports whether an external issue is linked.
func (t *Ticket) IsMirrored() bool {
	return t.ExternalIssueID != nil && t.ExternalRepo != nil
}

// IsSubscribed reports whether the user is in the subscriber set.
func (t *Ticket) IsSubscribed(userID string) bool {
	for _, id := range t.Subscribers {
		if id == userID {
			return true
		}
	}
	return false
}

// Subscribe adds a user to the subscriber set; idempotent.
func (t *Ticket) Subscribe(userID string) {
	if t.IsSubscribed(userID) {
		return
	}
	t.Subscribers = append(t.Subscribers, userID)
}

// Unsubscribe removes a user from the subscriber set; idempotent.
func (t *Ticket) Unsubscribe(userID string) {
	for i, id := range t.Subscribers {
		if id == userID {
			t.Subscribers = append(t.Subscribers[:i], t.Subscribers[i+1:]...)
			return
		}
	}
}

// KindTag returns the external tracker tag for the ticket kind.
func (t *Ticket) KindTag() string {
	switch t.Kind {
	case KindBug:
		return "bug"
	case KindSupport:
		return "support"
	default:
		return "featurereq"
	}
}
