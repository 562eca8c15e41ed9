package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CrawlerEmporium/issuecrawler/internal/domain"
	"github.com/CrawlerEmporium/issuecrawler/internal/events"
	"github.com/CrawlerEmporium/issuecrawler/internal/observability"
	"github.com/CrawlerEmporium/issuecrawler/internal/presentation"
	"github.com/CrawlerEmporium/issuecrawler/internal/repository"
	"github.com/CrawlerEmporium/issuecrawler/internal/tracker"
	"github.com/CrawlerEmporium/issuecrawler/pkg/util"
)

// Score boundaries that refresh external labels. Checked with exact equality:
// a vote sequence that jumps past a boundary without landing on it does not
// trigger a refresh.
var (
	upvoteBoundaries   = map[int]struct{}{10: {}, 15: {}}
	downvoteBoundaries = map[int]struct{}{9: {}, 14: {}}
)

// CommunityProvider resolves listener configuration for a community.
type CommunityProvider interface {
	Get(ctx context.Context, communityID string) (*domain.Community, error)
}

// TicketService is the ticket lifecycle engine: identity, voting and
// verification accounting, subscriber notification, and external tracker
// mirroring.
type TicketService struct {
	tickets     repository.TicketRepository
	attachments repository.AttachmentRepository
	counters    repository.CounterRepository
	communities CommunityProvider
	pending     repository.PendingReleaseRepository
	dispatcher  events.Dispatcher
	mirror      *tracker.Mirror
	renderer    presentation.Renderer
	logger      *zap.Logger
	metrics     *observability.Metrics
	locks       *ticketLocks
}

// TicketDependencies bundles collaborators for the engine.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	AttachmentRepo repository.AttachmentRepository
	CounterRepo    repository.CounterRepository
	Communities    CommunityProvider
	PendingRepo    repository.PendingReleaseRepository
	Dispatcher     events.Dispatcher
	Mirror         *tracker.Mirror
	Renderer       presentation.Renderer
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// NewTicketService constructs the engine.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		attachments: deps.AttachmentRepo,
		counters:    deps.CounterRepo,
		communities: deps.Communities,
		pending:     deps.PendingRepo,
		dispatcher:  deps.Dispatcher,
		mirror:      deps.Mirror,
		renderer:    deps.Renderer,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		locks:       newTicketLocks(),
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CommunityID     string
	Identifier      string
	ReporterID      string
	Title           string
	FirstAttachment string

	// ExternalRepo/ExternalIssueID link an already-existing tracker issue
	// instead of opening a fresh mirror. Used for webhook imports.
	ExternalRepo    *string
	ExternalIssueID *int
}

// Create allocates a ticket id under the identifier's counter, opens the
// ticket at the default priority with the reporter subscribed, renders it, and
// mirrors bug/support tickets to the external tracker when the community has
// one configured.
func (s *TicketService) Create(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	community, err := s.communities.Get(ctx, input.CommunityID)
	if err != nil {
		return nil, err
	}
	ident, ok := community.FindIdentifier(input.Identifier)
	if !ok {
		return nil, util.NewNotFound("identifier", map[string]any{"identifier": input.Identifier})
	}

	seq, err := s.counters.NextSequence(ctx, community.ID, ident.Code)
	if err != nil {
		if util.HasCode(err, util.CodeNotFound) {
			// A registered identifier without a counter record means
			// provisioning went wrong, not user error.
			return nil, util.NewDomainError(util.CodeNotFound,
				"ticket counter missing; this is a bug, contact support",
				500, map[string]any{"identifier": ident.Code})
		}
		return nil, err
	}

	ticket := &domain.Ticket{
		TicketID:         fmt.Sprintf("%s-%d", ident.Code, seq),
		CommunityID:      community.ID,
		Kind:             ident.Kind,
		Title:            input.Title,
		Priority:         domain.PriorityPending,
		ReporterID:       input.ReporterID,
		Subscribers:      []string{input.ReporterID},
		TrackerChannelID: community.TrackerChannelID,
		ExternalRepo:     input.ExternalRepo,
		ExternalIssueID:  input.ExternalIssueID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	first := &domain.Attachment{
		CommunityID:      ticket.CommunityID,
		TicketID:         ticket.TicketID,
		AuthorID:         input.ReporterID,
		Message:          input.FirstAttachment,
		VerificationCode: domain.CodeNote,
	}
	if err := s.attachments.Append(ctx, first); err != nil {
		return nil, err
	}

	s.setupPresentation(ctx, ticket)

	if !ticket.IsMirrored() && ticket.Kind != domain.KindFeatureRequest && community.Repo != nil {
		if err := s.openMirror(ctx, ticket, community); err != nil {
			s.logSyncFailure("create", ticket, err)
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventTicketCreated,
		CommunityID: ticket.CommunityID,
		TicketID:    ticket.TicketID,
		ActorID:     input.ReporterID,
		Subscribers: ticket.Subscribers,
		Message:     fmt.Sprintf("%s opened: %s", ticket.TicketID, ticket.Title),
	})
	s.metrics.RecordOperation("create")
	return ticket, nil
}

// Get fetches a ticket for rendering.
func (s *TicketService) Get(ctx context.Context, communityID, ticketID string) (*domain.Ticket, []domain.Attachment, error) {
	ticket, err := s.tickets.GetByTicketID(ctx, communityID, ticketID)
	if err != nil {
		return nil, nil, err
	}
	attachments, err := s.attachments.ListByTicket(ctx, communityID, ticketID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, attachments, nil
}

// List returns tickets for a community.
func (s *TicketService) List(ctx context.Context, communityID string, openOnly bool, limit, offset int) ([]domain.Ticket, error) {
	return s.tickets.ListByCommunity(ctx, communityID, openOnly, limit, offset)
}

// Upvote casts or switches a user's vote to Upvote.
func (s *TicketService) Upvote(ctx context.Context, communityID, ticketID, userID, comment string) error {
	return s.castVote(ctx, communityID, ticketID, userID, comment, domain.CodeUpvote)
}

// Downvote casts or switches a user's vote to Downvote.
func (s *TicketService) Downvote(ctx context.Context, communityID, ticketID, userID, comment string) error {
	return s.castVote(ctx, communityID, ticketID, userID, comment, domain.CodeDownvote)
}

// Indifferent casts or switches a user's vote to Indifferent. Never triggers
// escalation.
func (s *TicketService) Indifferent(ctx context.Context, communityID, ticketID, userID, comment string) error {
	return s.castVote(ctx, communityID, ticketID, userID, comment, domain.CodeIndifferent)
}

func (s *TicketService) castVote(ctx context.Context, communityID, ticketID, userID, comment string, stance domain.VerificationCode) error {
	unlock := s.locks.lock(communityID + "/" + ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByTicketID(ctx, communityID, ticketID)
	if err != nil {
		return err
	}
	if !ticket.IsVotable() {
		return util.NewInvalidState("votes do not apply to bug reports", map[string]any{"ticket_id": ticketID})
	}

	log, err := s.attachments.ListByTicket(ctx, communityID, ticketID)
	if err != nil {
		return err
	}
	previous := latestVote(log, userID)
	if previous != nil && previous.VerificationCode == stance {
		return util.NewInvalidState("vote already cast", map[string]any{"ticket_id": ticketID})
	}

	// Retraction and append are one logical transition, performed under the
	// per-ticket lock so no concurrent reader sees the intermediate state.
	if previous != nil {
		if err := s.attachments.Delete(ctx, previous.ID); err != nil {
			return err
		}
		adjustTally(ticket, previous.VerificationCode, -1)
	}
	attachment := &domain.Attachment{
		CommunityID:      communityID,
		TicketID:         ticketID,
		AuthorID:         userID,
		Message:          comment,
		VerificationCode: stance,
	}
	if err := s.attachments.Append(ctx, attachment); err != nil {
		return err
	}
	adjustTally(ticket, stance, 1)

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventVoteCast,
		CommunityID: communityID,
		TicketID:    ticketID,
		ActorID:     userID,
		Subscribers: ticket.Subscribers,
		Message:     fmt.Sprintf("%s received a %s from %s", ticketID, stanceName(stance), userID),
		Payload: events.VoteCastPayload{
			Stance:    stanceName(stance),
			Upvotes:   ticket.Upvotes,
			Downvotes: ticket.Downvotes,
			Shrugs:    ticket.Shrugs,
		},
	})
	s.updatePresentation(ctx, ticket)

	if stance != domain.CodeIndifferent {
		s.afterVote(ctx, ticket, stance)
	}
	s.metrics.RecordOperation("vote")
	return nil
}

// afterVote runs the escalation and boundary-relabel checks. Both are
// best-effort mirror pushes; the internal record is already committed.
func (s *TicketService) afterVote(ctx context.Context, ticket *domain.Ticket, stance domain.VerificationCode) {
	score := ticket.Score()

	if ticket.IsOpen() && !ticket.IsMirrored() {
		community, err := s.communities.Get(ctx, ticket.CommunityID)
		if err == nil && community.Repo != nil && score >= community.VoteThreshold {
			if err := s.openMirror(ctx, ticket, community); err != nil {
				if !util.HasCode(err, util.CodeInvalidState) {
					s.logSyncFailure("escalate", ticket, err)
				}
			}
		}
		return
	}

	boundaries := upvoteBoundaries
	if stance == domain.CodeDownvote {
		boundaries = downvoteBoundaries
	}
	if _, hit := boundaries[score]; hit {
		if err := s.mirror.Relabel(ctx, ticket); err != nil {
			s.logSyncFailure("relabel", ticket, err)
		}
		s.refreshMirrorBody(ctx, ticket)
	}
}

// refreshMirrorBody rewrites the external issue body so its vote tally matches
// the committed tallies. Best-effort like every other mirror push.
func (s *TicketService) refreshMirrorBody(ctx context.Context, ticket *domain.Ticket) {
	community, err := s.communities.Get(ctx, ticket.CommunityID)
	if err != nil {
		return
	}
	log, err := s.attachments.ListByTicket(ctx, ticket.CommunityID, ticket.TicketID)
	if err != nil {
		return
	}
	if err := s.mirror.RefreshBody(ctx, ticket, community, log); err != nil {
		s.logSyncFailure("editbody", ticket, err)
	}
}

// CanRepro records a reproduction confirmation on a bug ticket.
func (s *TicketService) CanRepro(ctx context.Context, communityID, ticketID, userID, comment string) error {
	return s.castVerdict(ctx, communityID, ticketID, userID, comment, domain.CodeCanRepro)
}

// CannotRepro records a failed reproduction on a bug ticket.
func (s *TicketService) CannotRepro(ctx context.Context, communityID, ticketID, userID, comment string) error {
	return s.castVerdict(ctx, communityID, ticketID, userID, comment, domain.CodeCannotRepro)
}

// castVerdict differs from castVote on purpose: verdicts are evidence, not a
// stance, so a user may hold a CanRepro and a CannotRepro at the same time
// and neither retracts the other.
func (s *TicketService) castVerdict(ctx context.Context, communityID, ticketID, userID, comment string, verdict domain.VerificationCode) error {
	unlock := s.locks.lock(communityID + "/" + ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByTicketID(ctx, communityID, ticketID)
	if err != nil {
		return err
	}
	if ticket.Kind != domain.KindBug {
		return util.NewInvalidState("reproduction verdicts only apply to bug reports", map[string]any{"ticket_id": ticketID})
	}

	log, err := s.attachments.ListByTicket(ctx, communityID, ticketID)
	if err != nil {
		return err
	}
	for _, attachment := range log {
		if attachment.AuthorID == userID && attachment.VerificationCode == verdict {
			return util.NewInvalidState("verdict already recorded", map[string]any{"ticket_id": ticketID})
		}
	}

	attachment := &domain.Attachment{
		CommunityID:      communityID,
		TicketID:         ticketID,
		AuthorID:         userID,
		Message:          comment,
		VerificationCode: verdict,
	}
	if err := s.attachments.Append(ctx, attachment); err != nil {
		return err
	}
	ticket.Verification += int(verdict)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventReproVerdict,
		CommunityID: communityID,
		TicketID:    ticketID,
		ActorID:     userID,
		Subscribers: ticket.Subscribers,
		Message:     fmt.Sprintf("%s: %s reported %s", ticketID, userID, verdictName(verdict)),
		Payload: events.ReproVerdictPayload{
			Verdict:      verdictName(verdict),
			Verification: ticket.Verification,
		},
	})
	s.updatePresentation(ctx, ticket)
	s.metrics.RecordOperation("verdict")
	return nil
}

// AddNote appends a note attachment, notifies subscribers, and optionally
// mirrors the text as an external comment.
func (s *TicketService) AddNote(ctx context.Context, communityID, ticketID, authorID, text string, mirrorToExternal bool) error {
	unlock := s.locks.lock(communityID + "/" + ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByTicketID(ctx, communityID, ticketID)
	if err != nil {
		return err
	}
	return s.appendNote(ctx, ticket, authorID, text, mirrorToExternal)
}

func (s *TicketService) appendNote(ctx context.Context, ticket *domain.Ticket, authorID, text string, mirrorToExternal bool) error {
	attachment := &domain.Attachment{
		CommunityID:      ticket.CommunityID,
		TicketID:         ticket.TicketID,
		AuthorID:         authorID,
		Message:          text,
		VerificationCode: domain.CodeNote,
	}
	if err := s.attachments.Append(ctx, attachment); err != nil {
		return err
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventNoteAdded,
		CommunityID: ticket.CommunityID,
		TicketID:    ticket.TicketID,
		ActorID:     authorID,
		Subscribers: ticket.Subscribers,
		Message:     fmt.Sprintf("%s: note from %s", ticket.TicketID, authorID),
		Payload:     events.NoteAddedPayload{AuthorID: authorID, Preview: preview(text, 120)},
	})

	if mirrorToExternal && ticket.IsMirrored() {
		if err := s.mirror.Comment(ctx, ticket, fmt.Sprintf("%s: %s", authorID, text)); err != nil {
			s.logSyncFailure("comment", ticket, err)
		} else if err := s.attachments.MarkMirrored(ctx, []string{attachment.ID}); err != nil {
			s.logger.Warn("mark mirrored failed", zap.Error(err))
		}
	}
	s.metrics.RecordOperation("note")
	return nil
}

// ResolveOptions tunes resolution behavior.
type ResolveOptions struct {
	CloseExternal       bool
	IsPending           bool
	IgnoreAlreadyClosed bool
}

// Resolve closes a ticket: priority goes to the resolved sentinel, subscribers
// are notified, the presentation surface is removed, and the external issue is
// labeled and closed when requested.
func (s *TicketService) Resolve(ctx context.Context, communityID, ticketID, actorID, comment string, opts ResolveOptions) error {
	unlock := s.locks.lock(communityID + "/" + ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByTicketID(ctx, communityID, ticketID)
	if err != nil {
		return err
	}
	return s.resolveLocked(ctx, ticket, actorID, comment, opts)
}

func (s *TicketService) resolveLocked(ctx context.Context, ticket *domain.Ticket, actorID, comment string, opts ResolveOptions) error {
	if !ticket.IsOpen() {
		if !opts.IgnoreAlreadyClosed {
			return util.NewInvalidState("ticket already closed", map[string]any{"ticket_id": ticket.TicketID})
		}
	}

	now := time.Now()
	ticket.Priority = domain.PriorityResolved
	ticket.ClosedAt = &now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}

	if comment != "" {
		if err := s.appendNote(ctx, ticket, actorID, comment, false); err != nil {
			return err
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventTicketResolved,
		CommunityID: ticket.CommunityID,
		TicketID:    ticket.TicketID,
		ActorID:     actorID,
		Subscribers: ticket.Subscribers,
		Message:     fmt.Sprintf("%s was resolved", ticket.TicketID),
		Payload:     events.TicketResolvedPayload{Comment: comment, IsPending: opts.IsPending},
	})

	if err := s.renderer.RemovePresentation(ctx, ticket); err != nil {
		s.logger.Warn("remove presentation failed", zap.String("ticket_id", ticket.TicketID), zap.Error(err))
	}

	if opts.CloseExternal {
		if err := s.mirror.Close(ctx, ticket, comment); err != nil {
			s.logSyncFailure("close", ticket, err)
		}
	}
	if opts.IsPending {
		if err := s.pending.Enqueue(ctx, ticket.CommunityID, ticket.TicketID); err != nil {
			s.logger.Warn("pending release enqueue failed", zap.String("ticket_id", ticket.TicketID), zap.Error(err))
		}
	}
	s.metrics.RecordOperation("resolve")
	return nil
}

// Unresolve reopens a resolved ticket at the default open priority.
func (s *TicketService) Unresolve(ctx context.Context, communityID, ticketID, actorID, comment string, openExternal bool) error {
	unlock := s.locks.lock(communityID + "/" + ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByTicketID(ctx, communityID, ticketID)
	if err != nil {
		return err
	}
	if ticket.IsOpen() {
		return util.NewInvalidState("ticket still open", map[string]any{"ticket_id": ticketID})
	}

	ticket.Priority = domain.PriorityPending
	ticket.ClosedAt = nil
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}

	if comment != "" {
		if err := s.appendNote(ctx, ticket, actorID, comment, false); err != nil {
			return err
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventTicketReopened,
		CommunityID: communityID,
		TicketID:    ticketID,
		ActorID:     actorID,
		Subscribers: ticket.Subscribers,
		Message:     fmt.Sprintf("%s was reopened", ticketID),
	})
	s.setupPresentation(ctx, ticket)

	if openExternal {
		if err := s.mirror.Reopen(ctx, ticket, comment); err != nil {
			s.logSyncFailure("reopen", ticket, err)
		}
	}
	s.metrics.RecordOperation("unresolve")
	return nil
}

// Reidentify moves a ticket under a new identifier: a structural copy is
// created under a freshly allocated id, the old ticket is resolved with a
// reference note, and any external issue follows the new id.
func (s *TicketService) Reidentify(ctx context.Context, communityID, ticketID, actorID, newIdentifier string) (*domain.Ticket, error) {
	unlock := s.locks.lock(communityID + "/" + ticketID)
	defer unlock()

	old, err := s.tickets.GetByTicketID(ctx, communityID, ticketID)
	if err != nil {
		return nil, err
	}
	community, err := s.communities.Get(ctx, communityID)
	if err != nil {
		return nil, err
	}
	ident, ok := community.FindIdentifier(newIdentifier)
	if !ok {
		return nil, util.NewNotFound("identifier", map[string]any{"identifier": newIdentifier})
	}

	seq, err := s.counters.NextSequence(ctx, communityID, ident.Code)
	if err != nil {
		return nil, err
	}

	replacement := &domain.Ticket{
		TicketID:         fmt.Sprintf("%s-%d", ident.Code, seq),
		CommunityID:      communityID,
		Kind:             ident.Kind,
		Title:            old.Title,
		Priority:         old.Priority,
		Verification:     old.Verification,
		Upvotes:          old.Upvotes,
		Downvotes:        old.Downvotes,
		Shrugs:           old.Shrugs,
		ReporterID:       old.ReporterID,
		AssigneeID:       old.AssigneeID,
		Subscribers:      append([]string{}, old.Subscribers...),
		ExternalIssueID:  old.ExternalIssueID,
		ExternalRepo:     old.ExternalRepo,
		TrackerChannelID: old.TrackerChannelID,
		Milestones:       append([]string{}, old.Milestones...),
	}
	if err := s.tickets.Create(ctx, replacement); err != nil {
		return nil, err
	}

	log, err := s.attachments.ListByTicket(ctx, communityID, ticketID)
	if err != nil {
		return nil, err
	}
	for _, attachment := range log {
		copied := attachment
		copied.ID = ""
		copied.TicketID = replacement.TicketID
		if err := s.attachments.Append(ctx, &copied); err != nil {
			return nil, err
		}
	}

	// The external issue follows the replacement; detach it from the old
	// record so resolving the old ticket cannot touch it.
	old.ExternalIssueID = nil
	old.ExternalRepo = nil
	if err := s.resolveLocked(ctx, old, actorID,
		fmt.Sprintf("Reassigned as %s", replacement.TicketID),
		ResolveOptions{CloseExternal: false}); err != nil {
		return nil, err
	}

	s.setupPresentation(ctx, replacement)

	if replacement.IsMirrored() {
		if err := s.mirror.Retitle(ctx, replacement, replacement.Title, replacement.TicketID+": "); err != nil {
			s.logSyncFailure("retitle", replacement, err)
		}
		if err := s.mirror.Relabel(ctx, replacement); err != nil {
			s.logSyncFailure("relabel", replacement, err)
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventTicketReidentified,
		CommunityID: communityID,
		TicketID:    replacement.TicketID,
		ActorID:     actorID,
		Subscribers: replacement.Subscribers,
		Message:     fmt.Sprintf("%s is now tracked as %s", ticketID, replacement.TicketID),
		Payload: events.TicketReidentifiedPayload{
			OldTicketID: ticketID,
			NewTicketID: replacement.TicketID,
		},
	})
	s.metrics.RecordOperation("reidentify")
	return replacement, nil
}

// Merge copies the duplicate's attachment log onto the target without
// re-mirroring each entry, resolves the duplicate, and leaves a system note
// on the target.
func (s *TicketService) Merge(ctx context.Context, communityID, duplicateID, targetID, actorID string) error {
	if duplicateID == targetID {
		return util.NewInvalidState("cannot merge a ticket into itself", map[string]any{"ticket_id": duplicateID})
	}
	first, second := duplicateID, targetID
	if second < first {
		first, second = second, first
	}
	unlockFirst := s.locks.lock(communityID + "/" + first)
	defer unlockFirst()
	unlockSecond := s.locks.lock(communityID + "/" + second)
	defer unlockSecond()

	duplicate, err := s.tickets.GetByTicketID(ctx, communityID, duplicateID)
	if err != nil {
		return err
	}
	target, err := s.tickets.GetByTicketID(ctx, communityID, targetID)
	if err != nil {
		return err
	}

	log, err := s.attachments.ListByTicket(ctx, communityID, duplicateID)
	if err != nil {
		return err
	}
	for _, attachment := range log {
		copied := attachment
		copied.ID = ""
		copied.TicketID = target.TicketID
		copied.Mirrored = true
		if err := s.attachments.Append(ctx, &copied); err != nil {
			return err
		}
	}

	if err := s.appendNote(ctx, target, actorID,
		fmt.Sprintf("Merged %s into this ticket", duplicateID), false); err != nil {
		return err
	}
	if err := s.resolveLocked(ctx, duplicate, actorID,
		fmt.Sprintf("Merged into %s", targetID),
		ResolveOptions{CloseExternal: true}); err != nil {
		return err
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventTicketMerged,
		CommunityID: communityID,
		TicketID:    targetID,
		ActorID:     actorID,
		Subscribers: target.Subscribers,
		Message:     fmt.Sprintf("%s was merged into %s", duplicateID, targetID),
		Payload:     events.TicketMergedPayload{DuplicateID: duplicateID, TargetID: targetID},
	})
	s.metrics.RecordOperation("merge")
	return nil
}

// Assign sets the assignee, recorded via a note for the audit trail.
func (s *TicketService) Assign(ctx context.Context, communityID, ticketID, actorID, assigneeID string) error {
	unlock := s.locks.lock(communityID + "/" + ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByTicketID(ctx, communityID, ticketID)
	if err != nil {
		return err
	}
	ticket.AssigneeID = &assigneeID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}
	if err := s.appendNote(ctx, ticket, actorID,
		fmt.Sprintf("Assigned to %s", assigneeID), false); err != nil {
		return err
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventTicketAssigned,
		CommunityID: communityID,
		TicketID:    ticketID,
		ActorID:     actorID,
		Subscribers: ticket.Subscribers,
		Message:     fmt.Sprintf("%s was assigned to %s", ticketID, assigneeID),
		Payload:     events.TicketAssignedPayload{AssigneeID: &assigneeID},
	})
	s.metrics.RecordOperation("assign")
	return nil
}

// Unassign clears the assignee, recorded via a note for the audit trail.
func (s *TicketService) Unassign(ctx context.Context, communityID, ticketID, actorID string) error {
	unlock := s.locks.lock(communityID + "/" + ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByTicketID(ctx, communityID, ticketID)
	if err != nil {
		return err
	}
	ticket.AssigneeID = nil
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}
	if err := s.appendNote(ctx, ticket, actorID, "Unassigned", false); err != nil {
		return err
	}
	s.metrics.RecordOperation("unassign")
	return nil
}

// Subscribe adds a user to the ticket's subscriber set; idempotent.
func (s *TicketService) Subscribe(ctx context.Context, communityID, ticketID, userID string) error {
	unlock := s.locks.lock(communityID + "/" + ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByTicketID(ctx, communityID, ticketID)
	if err != nil {
		return err
	}
	if ticket.IsSubscribed(userID) {
		return nil
	}
	ticket.Subscribe(userID)
	return s.tickets.Update(ctx, ticket)
}

// Unsubscribe removes a user from the ticket's subscriber set; idempotent.
func (s *TicketService) Unsubscribe(ctx context.Context, communityID, ticketID, userID string) error {
	unlock := s.locks.lock(communityID + "/" + ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByTicketID(ctx, communityID, ticketID)
	if err != nil {
		return err
	}
	if !ticket.IsSubscribed(userID) {
		return nil
	}
	ticket.Unsubscribe(userID)
	return s.tickets.Update(ctx, ticket)
}

// Untrack hard-deletes the ticket and its log. Reachable from any state;
// terminal for the record. Manager-only, enforced at the dispatch surface.
func (s *TicketService) Untrack(ctx context.Context, communityID, ticketID, actorID string) error {
	unlock := s.locks.lock(communityID + "/" + ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByTicketID(ctx, communityID, ticketID)
	if err != nil {
		return err
	}
	if err := s.renderer.RemovePresentation(ctx, ticket); err != nil {
		s.logger.Warn("remove presentation failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
	if err := s.attachments.DeleteByTicket(ctx, communityID, ticketID); err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, communityID, ticketID); err != nil {
		return err
	}
	s.publishEvent(ctx, events.Event{
		Type:        events.EventTicketUntracked,
		CommunityID: communityID,
		TicketID:    ticketID,
		ActorID:     actorID,
		Subscribers: ticket.Subscribers,
		Message:     fmt.Sprintf("%s is no longer tracked", ticketID),
	})
	s.metrics.RecordOperation("untrack")
	return nil
}

// Release drains the pending-release queue, leaving a release note on each
// queued ticket and mirroring it as an external comment where linked.
func (s *TicketService) Release(ctx context.Context, communityID, actorID, releaseNote string) ([]string, error) {
	queued, err := s.pending.List(ctx, communityID)
	if err != nil {
		return nil, err
	}
	for _, ticketID := range queued {
		ticket, err := s.tickets.GetByTicketID(ctx, communityID, ticketID)
		if err != nil {
			s.logger.Warn("pending ticket missing", zap.String("ticket_id", ticketID), zap.Error(err))
			continue
		}
		if err := s.appendNote(ctx, ticket, actorID, releaseNote, true); err != nil {
			return nil, err
		}
	}
	if err := s.pending.Clear(ctx, communityID); err != nil {
		return nil, err
	}
	s.metrics.RecordOperation("release")
	return queued, nil
}

// openMirror creates the external issue and commits the linkage.
func (s *TicketService) openMirror(ctx context.Context, ticket *domain.Ticket, community *domain.Community) error {
	log, err := s.attachments.ListByTicket(ctx, ticket.CommunityID, ticket.TicketID)
	if err != nil {
		return err
	}
	result, err := s.mirror.Open(ctx, ticket, community, log)
	if err != nil {
		return err
	}
	ticket.ExternalIssueID = &result.IssueNumber
	ticket.ExternalRepo = &result.Repo
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return err
	}
	if err := s.attachments.MarkMirrored(ctx, result.MirroredAttachmentIDs); err != nil {
		s.logger.Warn("mark mirrored failed", zap.Error(err))
	}
	return nil
}

func (s *TicketService) setupPresentation(ctx context.Context, ticket *domain.Ticket) {
	ref, err := s.renderer.SetupPresentation(ctx, ticket)
	if err != nil {
		s.logger.Warn("setup presentation failed", zap.String("ticket_id", ticket.TicketID), zap.Error(err))
		return
	}
	if ref == nil {
		return
	}
	ticket.PresentationMessageID = &ref.MessageID
	ticket.ThreadID = &ref.ThreadID
	ticket.JumpURL = &ref.JumpURL
	if err := s.tickets.Update(ctx, ticket); err != nil {
		s.logger.Warn("persist presentation refs failed", zap.String("ticket_id", ticket.TicketID), zap.Error(err))
	}
}

func (s *TicketService) updatePresentation(ctx context.Context, ticket *domain.Ticket) {
	if err := s.renderer.UpdatePresentation(ctx, ticket); err != nil {
		s.logger.Warn("update presentation failed", zap.String("ticket_id", ticket.TicketID), zap.Error(err))
	}
}

func (s *TicketService) logSyncFailure(op string, ticket *domain.Ticket, err error) {
	s.metrics.RecordSyncFailure(op)
	s.logger.Warn("external tracker sync failed",
		zap.String("op", op),
		zap.String("ticket_id", ticket.TicketID),
		zap.Error(err))
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// latestVote returns the most recent vote-type attachment by the user.
func latestVote(log []domain.Attachment, userID string) *domain.Attachment {
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].AuthorID == userID && log[i].VerificationCode.IsVote() {
			return &log[i]
		}
	}
	return nil
}

func adjustTally(ticket *domain.Ticket, stance domain.VerificationCode, delta int) {
	switch stance {
	case domain.CodeUpvote:
		ticket.Upvotes += delta
	case domain.CodeDownvote:
		ticket.Downvotes += delta
	case domain.CodeIndifferent:
		ticket.Shrugs += delta
	}
}

func stanceName(stance domain.VerificationCode) string {
	switch stance {
	case domain.CodeUpvote:
		return "upvote"
	case domain.CodeDownvote:
		return "downvote"
	default:
		return "shrug"
	}
}

func verdictName(verdict domain.VerificationCode) string {
	if verdict == domain.CodeCanRepro {
		return "can reproduce"
	}
	return "cannot reproduce"
}

// preview truncates on rune boundaries so multi-byte text never yields an
// invalid tail in notification payloads.
func preview(body string, max int) string {
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// ticketLocks serializes mutations per ticket id so the read-mutate-commit
// cycle cannot interleave for the same ticket.
type ticketLocks struct {
	mu sync.Mutex
	m  map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newTicketLocks() *ticketLocks {
	return &ticketLocks{m: make(map[string]*lockEntry)}
}

func (l *ticketLocks) lock(key string) func() {
	l.mu.Lock()
	entry, ok := l.m[key]
	if !ok {
		entry = &lockEntry{}
		l.m[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.m, key)
		}
		l.mu.Unlock()
	}
}
