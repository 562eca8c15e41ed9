package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/CrawlerEmporium/issuecrawler/internal/domain"
	"github.com/CrawlerEmporium/issuecrawler/internal/presentation"
	"github.com/CrawlerEmporium/issuecrawler/pkg/util"
)

func ticketKey(communityID, ticketID string) string {
	return communityID + "/" + ticketID
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]domain.Ticket)}
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ticketKey(ticket.CommunityID, ticket.TicketID)
	if _, exists := r.tickets[key]; exists {
		return util.NewConflict("ticket exists", nil)
	}
	if ticket.OpenedAt.IsZero() {
		ticket.OpenedAt = time.Now()
	}
	ticket.LastUpdatedAt = ticket.OpenedAt
	r.tickets[key] = *ticket
	return nil
}

func (r *fakeTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ticketKey(ticket.CommunityID, ticket.TicketID)
	if _, exists := r.tickets[key]; !exists {
		return util.NewNotFound("ticket", nil)
	}
	ticket.LastUpdatedAt = time.Now()
	r.tickets[key] = *ticket
	return nil
}

func (r *fakeTicketRepo) GetByTicketID(ctx context.Context, communityID, ticketID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, exists := r.tickets[ticketKey(communityID, ticketID)]
	if !exists {
		return nil, util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	copied := ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetByExternalIssue(ctx context.Context, repo string, issueNumber int) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.ExternalRepo != nil && *ticket.ExternalRepo == repo &&
			ticket.ExternalIssueID != nil && *ticket.ExternalIssueID == issueNumber {
			copied := ticket
			return &copied, nil
		}
	}
	return nil, util.NewNotFound("ticket", nil)
}

func (r *fakeTicketRepo) ListByCommunity(ctx context.Context, communityID string, openOnly bool, limit, offset int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.CommunityID != communityID {
			continue
		}
		if openOnly && !ticket.IsOpen() {
			continue
		}
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TicketID < result[j].TicketID })
	return result, nil
}

func (r *fakeTicketRepo) Delete(ctx context.Context, communityID, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ticketKey(communityID, ticketID)
	if _, exists := r.tickets[key]; !exists {
		return util.NewNotFound("ticket", nil)
	}
	delete(r.tickets, key)
	return nil
}

type fakeAttachmentRepo struct {
	mu   sync.Mutex
	seq  int
	rows []domain.Attachment
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{}
}

func (r *fakeAttachmentRepo) Append(ctx context.Context, attachment *domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	attachment.ID = fmt.Sprintf("att-%d", r.seq)
	attachment.CreatedAt = time.Now()
	r.rows = append(r.rows, *attachment)
	return nil
}

func (r *fakeAttachmentRepo) ListByTicket(ctx context.Context, communityID, ticketID string) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Attachment
	for _, row := range r.rows {
		if row.CommunityID == communityID && row.TicketID == ticketID {
			result = append(result, row)
		}
	}
	return result, nil
}

func (r *fakeAttachmentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, row := range r.rows {
		if row.ID == id {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeAttachmentRepo) MarkMirrored(ctx context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	marked := map[string]struct{}{}
	for _, id := range ids {
		marked[id] = struct{}{}
	}
	for i := range r.rows {
		if _, ok := marked[r.rows[i].ID]; ok {
			r.rows[i].Mirrored = true
		}
	}
	return nil
}

func (r *fakeAttachmentRepo) DeleteByTicket(ctx context.Context, communityID, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.CommunityID == communityID && row.TicketID == ticketID {
			continue
		}
		kept = append(kept, row)
	}
	r.rows = kept
	return nil
}

type fakeCounterRepo struct {
	mu     sync.Mutex
	values map[string]int64
}

func newFakeCounterRepo() *fakeCounterRepo {
	return &fakeCounterRepo{values: make(map[string]int64)}
}

func (r *fakeCounterRepo) NextSequence(ctx context.Context, communityID, identifier string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := communityID + "/" + identifier
	if _, exists := r.values[key]; !exists {
		return 0, util.NewNotFound("identifier", nil)
	}
	r.values[key]++
	return r.values[key], nil
}

func (r *fakeCounterRepo) Seed(ctx context.Context, communityID, identifier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := communityID + "/" + identifier
	if _, exists := r.values[key]; !exists {
		r.values[key] = 0
	}
	return nil
}

func (r *fakeCounterRepo) Remove(ctx context.Context, communityID, identifier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.values, communityID+"/"+identifier)
	return nil
}

type fakePendingRepo struct {
	mu     sync.Mutex
	queued map[string][]string
}

func newFakePendingRepo() *fakePendingRepo {
	return &fakePendingRepo{queued: make(map[string][]string)}
}

func (r *fakePendingRepo) Enqueue(ctx context.Context, communityID, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.queued[communityID] {
		if id == ticketID {
			return nil
		}
	}
	r.queued[communityID] = append(r.queued[communityID], ticketID)
	return nil
}

func (r *fakePendingRepo) List(ctx context.Context, communityID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.queued[communityID]...), nil
}

func (r *fakePendingRepo) Clear(ctx context.Context, communityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.queued, communityID)
	return nil
}

type fakeCommunityProvider struct {
	mu          sync.Mutex
	communities map[string]domain.Community
}

func newFakeCommunityProvider(communities ...domain.Community) *fakeCommunityProvider {
	p := &fakeCommunityProvider{communities: make(map[string]domain.Community)}
	for _, community := range communities {
		p.communities[community.ID] = community
	}
	return p
}

func (p *fakeCommunityProvider) Get(ctx context.Context, communityID string) (*domain.Community, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	community, exists := p.communities[communityID]
	if !exists {
		return nil, util.NewNotFound("community", map[string]any{"community_id": communityID})
	}
	copied := community
	return &copied, nil
}

type fakeRenderer struct {
	mu       sync.Mutex
	setups   int
	updates  int
	removals int
}

func (r *fakeRenderer) SetupPresentation(ctx context.Context, ticket *domain.Ticket) (*presentation.Ref, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setups++
	return &presentation.Ref{
		MessageID: "msg-" + ticket.TicketID,
		ThreadID:  "thr-" + ticket.TicketID,
		JumpURL:   "https://chat/" + ticket.TicketID,
	}, nil
}

func (r *fakeRenderer) UpdatePresentation(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	return nil
}

func (r *fakeRenderer) RemovePresentation(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removals++
	return nil
}

type fakeTrackerClient struct {
	mu         sync.Mutex
	nextIssue  int
	created    []createdIssue
	comments   []string
	labelEdits [][]string
	titleEdits []string
	closed     []int
	reopened   []int
	failNext   error
}

type createdIssue struct {
	Repo   string
	Title  string
	Body   string
	Labels []string
}

func (c *fakeTrackerClient) CreateIssue(ctx context.Context, repo, title, body string, labels []string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext != nil {
		err := c.failNext
		c.failNext = nil
		return 0, err
	}
	c.nextIssue++
	c.created = append(c.created, createdIssue{Repo: repo, Title: title, Body: body, Labels: labels})
	return c.nextIssue, nil
}

func (c *fakeTrackerClient) AddComment(ctx context.Context, repo string, issue int, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.comments = append(c.comments, body)
	return nil
}

func (c *fakeTrackerClient) EditLabels(ctx context.Context, repo string, issue int, labels []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.labelEdits = append(c.labelEdits, labels)
	return nil
}

func (c *fakeTrackerClient) EditBody(ctx context.Context, repo string, issue int, body string) error {
	return nil
}

func (c *fakeTrackerClient) EditTitle(ctx context.Context, repo string, issue int, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.titleEdits = append(c.titleEdits, title)
	return nil
}

func (c *fakeTrackerClient) CloseIssue(ctx context.Context, repo string, issue int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = append(c.closed, issue)
	return nil
}

func (c *fakeTrackerClient) OpenIssue(ctx context.Context, repo string, issue int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reopened = append(c.reopened, issue)
	return nil
}
