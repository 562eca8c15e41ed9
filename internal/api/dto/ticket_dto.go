package dto

import (
	"time"

	"github.com/CrawlerEmporium/issuecrawler/internal/domain"
)

// CreateTicketRequest opens a ticket under an identifier code.
type CreateTicketRequest struct {
	Identifier      string `json:"identifier"`
	ReporterID      string `json:"reporter_id"`
	Title           string `json:"title"`
	FirstAttachment string `json:"first_attachment"`
}

// VoteRequest casts an upvote, downvote or shrug.
type VoteRequest struct {
	UserID  string `json:"user_id"`
	Comment string `json:"comment"`
}

// NoteRequest appends a free-form note. Mirror defaults to true when omitted:
// callers must opt out of pushing the note to the external issue.
type NoteRequest struct {
	AuthorID string `json:"author_id"`
	Text     string `json:"text"`
	Mirror   *bool  `json:"mirror"`
}

// ShouldMirror resolves the mirror flag, treating an omitted field as true.
func (r NoteRequest) ShouldMirror() bool {
	return r.Mirror == nil || *r.Mirror
}

// ResolveRequest closes a ticket. CloseExternal defaults to true when omitted.
type ResolveRequest struct {
	Comment       string `json:"comment"`
	CloseExternal *bool  `json:"close_external"`
	Pending       bool   `json:"pending"`
}

// ShouldCloseExternal resolves the close flag, treating an omitted field as true.
func (r ResolveRequest) ShouldCloseExternal() bool {
	return r.CloseExternal == nil || *r.CloseExternal
}

// UnresolveRequest reopens a resolved ticket. OpenExternal defaults to true
// when omitted.
type UnresolveRequest struct {
	Comment      string `json:"comment"`
	OpenExternal *bool  `json:"open_external"`
}

// ShouldOpenExternal resolves the reopen flag, treating an omitted field as true.
func (r UnresolveRequest) ShouldOpenExternal() bool {
	return r.OpenExternal == nil || *r.OpenExternal
}

// ReidentifyRequest moves a ticket under another identifier code.
type ReidentifyRequest struct {
	Identifier string `json:"identifier"`
}

// MergeRequest folds a duplicate into a target ticket.
type MergeRequest struct {
	TargetID string `json:"target_id"`
}

// AssignRequest sets the assignee.
type AssignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// ReleaseRequest drains the pending-release queue.
type ReleaseRequest struct {
	Note string `json:"note"`
}

// AttachmentResponse is one entry of a ticket's append-only log.
type AttachmentResponse struct {
	ID               string    `json:"id"`
	AuthorID         string    `json:"author_id"`
	Message          string    `json:"message,omitempty"`
	VerificationCode int       `json:"verification_code"`
	Mirrored         bool      `json:"mirrored"`
	CreatedAt        time.Time `json:"created_at"`
}

// TicketResponse is the wire form of a ticket.
type TicketResponse struct {
	TicketID        string               `json:"ticket_id"`
	CommunityID     string               `json:"community_id"`
	Kind            string               `json:"kind"`
	Title           string               `json:"title"`
	Priority        int                  `json:"priority"`
	PriorityLabel   string               `json:"priority_label"`
	Verification    int                  `json:"verification"`
	Upvotes         int                  `json:"upvotes"`
	Downvotes       int                  `json:"downvotes"`
	Shrugs          int                  `json:"shrugs"`
	ReporterID      string               `json:"reporter_id"`
	AssigneeID      *string              `json:"assignee_id,omitempty"`
	Subscribers     []string             `json:"subscribers"`
	ExternalRepo    *string              `json:"external_repo,omitempty"`
	ExternalIssueID *int                 `json:"external_issue_id,omitempty"`
	JumpURL         *string              `json:"jump_url,omitempty"`
	Milestones      []string             `json:"milestones,omitempty"`
	OpenedAt        time.Time            `json:"opened_at"`
	ClosedAt        *time.Time           `json:"closed_at,omitempty"`
	LastUpdatedAt   time.Time            `json:"last_updated_at"`
	Attachments     []AttachmentResponse `json:"attachments,omitempty"`
}

// TicketFromDomain converts a ticket for the wire.
func TicketFromDomain(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		TicketID:        ticket.TicketID,
		CommunityID:     ticket.CommunityID,
		Kind:            ticket.KindTag(),
		Title:           ticket.Title,
		Priority:        ticket.Priority,
		PriorityLabel:   domain.PriorityLabels[ticket.Priority],
		Verification:    ticket.Verification,
		Upvotes:         ticket.Upvotes,
		Downvotes:       ticket.Downvotes,
		Shrugs:          ticket.Shrugs,
		ReporterID:      ticket.ReporterID,
		AssigneeID:      ticket.AssigneeID,
		Subscribers:     ticket.Subscribers,
		ExternalRepo:    ticket.ExternalRepo,
		ExternalIssueID: ticket.ExternalIssueID,
		JumpURL:         ticket.JumpURL,
		Milestones:      ticket.Milestones,
		OpenedAt:        ticket.OpenedAt,
		ClosedAt:        ticket.ClosedAt,
		LastUpdatedAt:   ticket.LastUpdatedAt,
	}
}

// AttachmentFromDomain converts one log entry for the wire.
func AttachmentFromDomain(att *domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:               att.ID,
		AuthorID:         att.AuthorID,
		Message:          att.Message,
		VerificationCode: int(att.VerificationCode),
		Mirrored:         att.Mirrored,
		CreatedAt:        att.CreatedAt,
	}
}
