package domain

import "time"

// Milestone groups tickets across identifiers. Many-to-many with Ticket via
// back-references on both sides; whichever side mutates first commits its own
// record, then the other.
type Milestone struct {
	MilestoneID string
	CommunityID string
	Title       string
	Description string
	Closed      bool
	TicketIDs   []string
	CreatedAt   time.Time
}

// HasTicket reports whether the ticket is already linked.
func (m *Milestone) HasTicket(ticketID string) bool {
	for _, id := range m.TicketIDs {
		if id == ticketID {
			return true
		}
	}
	return false
}

// AddTicket links a ticket; idempotent.
func (m *Milestone) AddTicket(ticketID string) {
	if m.HasTicket(ticketID) {
		return
	}
	m.TicketIDs = append(m.TicketIDs, ticketID)
}

// RemoveTicket unlinks a ticket; idempotent.
func (m *Milestone) RemoveTicket(ticketID string) {
	for i, id := range m.TicketIDs {
		if id == ticketID {
			m.TicketIDs = append(m.TicketIDs[:i], m.TicketIDs[i+1:]...)
			return
		}
	}
}
