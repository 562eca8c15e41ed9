package domain

import "time"

// VerificationCode tags an attachment with its role in the log.
type VerificationCode int

const (
	CodeNote        VerificationCode = 0
	CodeCanRepro    VerificationCode = 1
	CodeCannotRepro VerificationCode = -1
	CodeUpvote      VerificationCode = 2
	CodeDownvote    VerificationCode = -2
	CodeIndifferent VerificationCode = 3
)

// IsVote reports whether the code represents a vote stance. A user may hold at
// most one of these at a time on a votable ticket.
func (c VerificationCode) IsVote() bool {
	return c == CodeUpvote || c == CodeDownvote || c == CodeIndifferent
}

// IsNoteLike reports whether the code shows up in "notes only" views.
func (c VerificationCode) IsNoteLike() bool {
	return c == CodeNote || c == CodeCanRepro || c == CodeCannotRepro
}

// Attachment is one timestamped annotation in a ticket's append-only log.
// Insertion order is significant.
type Attachment struct {
	ID               string
	TicketID         string
	CommunityID      string
	AuthorID         string
	Message          string
	VerificationCode VerificationCode
	// Mirrored marks attachments that have already been pushed to the
	// external tracker as comments.
	Mirrored  bool
	CreatedAt time.Time
}
