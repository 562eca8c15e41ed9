package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CrawlerEmporium/issuecrawler/internal/domain"
	"github.com/CrawlerEmporium/issuecrawler/internal/repository"
	"github.com/CrawlerEmporium/issuecrawler/pkg/util"
)

// MilestoneService manages milestone records and their ticket links.
type MilestoneService struct {
	milestones repository.MilestoneRepository
	tickets    repository.TicketRepository
	logger     *zap.Logger
}

// NewMilestoneService constructs the service.
func NewMilestoneService(milestones repository.MilestoneRepository, tickets repository.TicketRepository, logger *zap.Logger) *MilestoneService {
	return &MilestoneService{milestones: milestones, tickets: tickets, logger: logger}
}

// Create opens a new milestone.
func (s *MilestoneService) Create(ctx context.Context, communityID, title, description string) (*domain.Milestone, error) {
	if title == "" {
		return nil, util.NewValidationError("title required", nil)
	}
	milestone := &domain.Milestone{
		MilestoneID: uuid.NewString(),
		CommunityID: communityID,
		Title:       title,
		Description: description,
	}
	if err := s.milestones.Create(ctx, milestone); err != nil {
		return nil, err
	}
	return milestone, nil
}

// Get fetches one milestone.
func (s *MilestoneService) Get(ctx context.Context, communityID, milestoneID string) (*domain.Milestone, error) {
	return s.milestones.GetByID(ctx, communityID, milestoneID)
}

// List returns all milestones for a community.
func (s *MilestoneService) List(ctx context.Context, communityID string) ([]domain.Milestone, error) {
	return s.milestones.ListByCommunity(ctx, communityID)
}

// Link attaches a ticket to a milestone. The milestone record commits first,
// then the ticket's back-reference.
func (s *MilestoneService) Link(ctx context.Context, communityID, milestoneID, ticketID string) error {
	milestone, err := s.milestones.GetByID(ctx, communityID, milestoneID)
	if err != nil {
		return err
	}
	ticket, err := s.tickets.GetByTicketID(ctx, communityID, ticketID)
	if err != nil {
		return err
	}

	milestone.AddTicket(ticketID)
	if err := s.milestones.Update(ctx, milestone); err != nil {
		return err
	}

	linked := false
	for _, id := range ticket.Milestones {
		if id == milestoneID {
			linked = true
			break
		}
	}
	if !linked {
		ticket.Milestones = append(ticket.Milestones, milestoneID)
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
	}
	return nil
}

// Unlink detaches a ticket from a milestone; both sides commit.
func (s *MilestoneService) Unlink(ctx context.Context, communityID, milestoneID, ticketID string) error {
	milestone, err := s.milestones.GetByID(ctx, communityID, milestoneID)
	if err != nil {
		return err
	}
	milestone.RemoveTicket(ticketID)
	if err := s.milestones.Update(ctx, milestone); err != nil {
		return err
	}

	ticket, err := s.tickets.GetByTicketID(ctx, communityID, ticketID)
	if err != nil {
		// Ticket may have been untracked; the milestone side is already
		// consistent.
		if util.HasCode(err, util.CodeNotFound) {
			return nil
		}
		return err
	}
	for i, id := range ticket.Milestones {
		if id == milestoneID {
			ticket.Milestones = append(ticket.Milestones[:i], ticket.Milestones[i+1:]...)
			return s.tickets.Update(ctx, ticket)
		}
	}
	return nil
}

// Close marks the milestone closed without touching its tickets.
func (s *MilestoneService) Close(ctx context.Context, communityID, milestoneID string) error {
	milestone, err := s.milestones.GetByID(ctx, communityID, milestoneID)
	if err != nil {
		return err
	}
	if milestone.Closed {
		return util.NewInvalidState("milestone already closed", map[string]any{"milestone_id": milestoneID})
	}
	milestone.Closed = true
	return s.milestones.Update(ctx, milestone)
}

// Delete removes the milestone and clears ticket back-references.
func (s *MilestoneService) Delete(ctx context.Context, communityID, milestoneID string) error {
	milestone, err := s.milestones.GetByID(ctx, communityID, milestoneID)
	if err != nil {
		return err
	}
	for _, ticketID := range milestone.TicketIDs {
		ticket, err := s.tickets.GetByTicketID(ctx, communityID, ticketID)
		if err != nil {
			continue
		}
		for i, id := range ticket.Milestones {
			if id == milestoneID {
				ticket.Milestones = append(ticket.Milestones[:i], ticket.Milestones[i+1:]...)
				if err := s.tickets.Update(ctx, ticket); err != nil {
					s.logger.Warn("clear milestone back-reference failed",
						zap.String("ticket_id", ticketID), zap.Error(err))
				}
				break
			}
		}
	}
	return s.milestones.Delete(ctx, communityID, milestoneID)
}
