package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/CrawlerEmporium/issuecrawler/internal/domain"
	"github.com/CrawlerEmporium/issuecrawler/internal/events"
	"github.com/CrawlerEmporium/issuecrawler/internal/observability"
	"github.com/CrawlerEmporium/issuecrawler/internal/tracker"
	"github.com/CrawlerEmporium/issuecrawler/pkg/util"
)

const testCommunity = "guild-1"

type engineFixture struct {
	svc         *TicketService
	tickets     *fakeTicketRepo
	attachments *fakeAttachmentRepo
	counters    *fakeCounterRepo
	pending     *fakePendingRepo
	client      *fakeTrackerClient
	renderer    *fakeRenderer
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
}

func testCommunityConfig(repo *string) domain.Community {
	return domain.Community{
		ID:               testCommunity,
		TrackerChannelID: "chan-1",
		Repo:             repo,
		VoteThreshold:    3,
		NoteThreshold:    2,
		Identifiers: []domain.Identifier{
			{CommunityID: testCommunity, Code: "BUG", Kind: domain.KindBug},
			{CommunityID: testCommunity, Code: "FR", Kind: domain.KindFeatureRequest},
			{CommunityID: testCommunity, Code: "SUP", Kind: domain.KindSupport},
			{CommunityID: testCommunity, Code: "GHOST", Kind: domain.KindBug},
		},
	}
}

func newEngineFixture(t *testing.T, community domain.Community) *engineFixture {
	t.Helper()
	f := &engineFixture{
		tickets:     newFakeTicketRepo(),
		attachments: newFakeAttachmentRepo(),
		counters:    newFakeCounterRepo(),
		pending:     newFakePendingRepo(),
		client:      &fakeTrackerClient{},
		renderer:    &fakeRenderer{},
		dispatcher:  events.NewInMemoryDispatcher(),
		metrics:     observability.NewMetrics(),
	}
	ctx := context.Background()
	for _, ident := range community.Identifiers {
		if ident.Code == "GHOST" {
			// Left unseeded to exercise the missing-counter path.
			continue
		}
		if err := f.counters.Seed(ctx, community.ID, ident.Code); err != nil {
			t.Fatalf("seed counter: %v", err)
		}
	}
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:     f.tickets,
		AttachmentRepo: f.attachments,
		CounterRepo:    f.counters,
		Communities:    newFakeCommunityProvider(community),
		PendingRepo:    f.pending,
		Dispatcher:     f.dispatcher,
		Mirror:         tracker.NewMirror(f.client, zap.NewNop()),
		Renderer:       f.renderer,
		Logger:         zap.NewNop(),
		Metrics:        f.metrics,
	})
	return f
}

func (f *engineFixture) create(t *testing.T, identifier, reporter, title string) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.Create(context.Background(), TicketCreateInput{
		CommunityID:     testCommunity,
		Identifier:      identifier,
		ReporterID:      reporter,
		Title:           title,
		FirstAttachment: "initial report",
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func repoPtr(repo string) *string { return &repo }

func TestCreateAllocatesSequentialIDs(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(nil))

	order := []struct {
		identifier string
		want       string
	}{
		{"BUG", "BUG-1"},
		{"FR", "FR-1"},
		{"BUG", "BUG-2"},
		{"FR", "FR-2"},
		{"BUG", "BUG-3"},
	}
	for _, step := range order {
		ticket := f.create(t, step.identifier, "alice", "title")
		if ticket.TicketID != step.want {
			t.Fatalf("ticket id = %s, want %s", ticket.TicketID, step.want)
		}
	}
}

func TestCreateDefaults(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(nil))

	ticket := f.create(t, "FR", "alice", "add dark mode")
	if ticket.Priority != domain.PriorityPending {
		t.Errorf("priority = %d, want %d", ticket.Priority, domain.PriorityPending)
	}
	if !ticket.IsSubscribed("alice") {
		t.Error("reporter not subscribed")
	}
	if ticket.Kind != domain.KindFeatureRequest {
		t.Errorf("kind = %s", ticket.Kind)
	}

	log, err := f.attachments.ListByTicket(context.Background(), testCommunity, ticket.TicketID)
	if err != nil {
		t.Fatal(err)
	}
	if len(log) != 1 || log[0].Message != "initial report" {
		t.Fatalf("first attachment not recorded: %+v", log)
	}
	if f.renderer.setups != 1 {
		t.Errorf("presentation setups = %d, want 1", f.renderer.setups)
	}
}

func TestCreateBugMirrorsImmediately(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(repoPtr("acme/game")))

	ticket := f.create(t, "BUG", "alice", "crash on save")
	if !ticket.IsMirrored() {
		t.Fatal("bug ticket not mirrored at creation")
	}
	if len(f.client.created) != 1 {
		t.Fatalf("created issues = %d, want 1", len(f.client.created))
	}
	issue := f.client.created[0]
	if issue.Title != "BUG-1: crash on save" {
		t.Errorf("issue title = %q", issue.Title)
	}
	if !hasString(issue.Labels, "bug") {
		t.Errorf("labels missing kind tag: %v", issue.Labels)
	}
}

func TestCreateFeatureRequestNotMirroredAtCreation(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(repoPtr("acme/game")))

	ticket := f.create(t, "FR", "alice", "add dark mode")
	if ticket.IsMirrored() {
		t.Fatal("feature request mirrored before reaching the vote threshold")
	}
}

func TestCreateMissingCounterReportsBug(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(nil))

	_, err := f.svc.Create(context.Background(), TicketCreateInput{
		CommunityID: testCommunity,
		Identifier:  "GHOST",
		ReporterID:  "alice",
		Title:       "title",
	})
	if err == nil {
		t.Fatal("expected error for unseeded counter")
	}
	if !strings.Contains(err.Error(), "contact support") {
		t.Errorf("error should flag internal misprovisioning, got %v", err)
	}
}

func TestVoteOnBugRejected(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(nil))
	ticket := f.create(t, "BUG", "alice", "crash")

	err := f.svc.Upvote(context.Background(), testCommunity, ticket.TicketID, "bob", "")
	if !util.HasCode(err, util.CodeInvalidState) {
		t.Fatalf("err = %v, want INVALID_STATE", err)
	}
}

func TestVoteSwitchRetractsPrevious(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(nil))
	ticket := f.create(t, "FR", "alice", "dark mode")
	ctx := context.Background()

	if err := f.svc.Upvote(ctx, testCommunity, ticket.TicketID, "bob", "yes please"); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Downvote(ctx, testCommunity, ticket.TicketID, "bob", "changed my mind"); err != nil {
		t.Fatal(err)
	}

	got, err := f.tickets.GetByTicketID(ctx, testCommunity, ticket.TicketID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Upvotes != 0 || got.Downvotes != 1 {
		t.Errorf("tallies = +%d/-%d, want +0/-1", got.Upvotes, got.Downvotes)
	}

	log, _ := f.attachments.ListByTicket(ctx, testCommunity, ticket.TicketID)
	votes := 0
	for _, attachment := range log {
		if attachment.AuthorID == "bob" && attachment.VerificationCode.IsVote() {
			votes++
		}
	}
	if votes != 1 {
		t.Errorf("vote attachments for bob = %d, want 1 after retraction", votes)
	}
}

func TestVoteSameStanceRejected(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(nil))
	ticket := f.create(t, "FR", "alice", "dark mode")
	ctx := context.Background()

	if err := f.svc.Upvote(ctx, testCommunity, ticket.TicketID, "bob", ""); err != nil {
		t.Fatal(err)
	}
	err := f.svc.Upvote(ctx, testCommunity, ticket.TicketID, "bob", "")
	if !util.HasCode(err, util.CodeInvalidState) {
		t.Fatalf("err = %v, want INVALID_STATE", err)
	}
}

func TestEscalationAtExactThreshold(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(repoPtr("acme/game")))
	ticket := f.create(t, "FR", "alice", "dark mode")
	ctx := context.Background()

	for i, user := range []string{"bob", "carol"} {
		if err := f.svc.Upvote(ctx, testCommunity, ticket.TicketID, user, ""); err != nil {
			t.Fatal(err)
		}
		got, _ := f.tickets.GetByTicketID(ctx, testCommunity, ticket.TicketID)
		if got.IsMirrored() {
			t.Fatalf("mirrored after %d votes, threshold is 3", i+1)
		}
	}

	if err := f.svc.Upvote(ctx, testCommunity, ticket.TicketID, "dave", ""); err != nil {
		t.Fatal(err)
	}
	got, _ := f.tickets.GetByTicketID(ctx, testCommunity, ticket.TicketID)
	if !got.IsMirrored() {
		t.Fatal("not mirrored at exact threshold")
	}
	if len(f.client.created) != 1 {
		t.Fatalf("created issues = %d, want 1", len(f.client.created))
	}
	body := f.client.created[0].Body
	if !strings.Contains(body, "Votes: +3 / -0 / 0 indifferent") {
		t.Errorf("issue body missing vote tally: %q", body)
	}
}

func TestIndifferentNeverEscalates(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(repoPtr("acme/game")))
	ticket := f.create(t, "FR", "alice", "dark mode")
	ctx := context.Background()

	for _, user := range []string{"bob", "carol", "dave", "erin"} {
		if err := f.svc.Indifferent(ctx, testCommunity, ticket.TicketID, user, ""); err != nil {
			t.Fatal(err)
		}
	}
	got, _ := f.tickets.GetByTicketID(ctx, testCommunity, ticket.TicketID)
	if got.IsMirrored() {
		t.Fatal("shrugs escalated the ticket")
	}
	if got.Shrugs != 4 {
		t.Errorf("shrugs = %d, want 4", got.Shrugs)
	}
}

func TestBoundaryRelabelExactEquality(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name        string
		upvotes     int
		wantRelabel bool
		wantTier    string
	}{
		{"landing on ten", 9, true, "+10"},
		{"landing on fifteen", 14, true, "+15"},
		{"jumping past ten", 10, false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newEngineFixture(t, testCommunityConfig(repoPtr("acme/game")))
			issue := 77
			repo := "acme/game"
			seeded := &domain.Ticket{
				TicketID:        "FR-99",
				CommunityID:     testCommunity,
				Kind:            domain.KindFeatureRequest,
				Title:           "popular ask",
				Priority:        domain.PriorityPending,
				Upvotes:         tc.upvotes,
				ReporterID:      "alice",
				Subscribers:     []string{"alice"},
				ExternalIssueID: &issue,
				ExternalRepo:    &repo,
			}
			if err := f.tickets.Create(ctx, seeded); err != nil {
				t.Fatal(err)
			}

			if err := f.svc.Upvote(ctx, testCommunity, "FR-99", "zed", ""); err != nil {
				t.Fatal(err)
			}
			if tc.wantRelabel {
				if len(f.client.labelEdits) != 1 {
					t.Fatalf("label edits = %d, want 1", len(f.client.labelEdits))
				}
				if !hasString(f.client.labelEdits[0], tc.wantTier) {
					t.Errorf("labels = %v, want tier %s", f.client.labelEdits[0], tc.wantTier)
				}
			} else if len(f.client.labelEdits) != 0 {
				t.Errorf("label edits = %d, want 0 when not landing on a boundary", len(f.client.labelEdits))
			}
		})
	}
}

func TestVerdictsCoexistAndAccumulate(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(nil))
	ticket := f.create(t, "BUG", "alice", "crash")
	ctx := context.Background()

	if err := f.svc.CanRepro(ctx, testCommunity, ticket.TicketID, "bob", "repros on windows"); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.CannotRepro(ctx, testCommunity, ticket.TicketID, "bob", "not on linux"); err != nil {
		t.Fatal(err)
	}

	got, _ := f.tickets.GetByTicketID(ctx, testCommunity, ticket.TicketID)
	if got.Verification != 0 {
		t.Errorf("verification = %d, want 0 (+1 and -1 coexist)", got.Verification)
	}

	log, _ := f.attachments.ListByTicket(ctx, testCommunity, ticket.TicketID)
	verdicts := 0
	for _, attachment := range log {
		if attachment.AuthorID == "bob" && !attachment.VerificationCode.IsVote() && attachment.VerificationCode != domain.CodeNote {
			verdicts++
		}
	}
	if verdicts != 2 {
		t.Errorf("verdict attachments = %d, want both retained", verdicts)
	}
}

func TestDuplicateVerdictRejected(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(nil))
	ticket := f.create(t, "BUG", "alice", "crash")
	ctx := context.Background()

	if err := f.svc.CanRepro(ctx, testCommunity, ticket.TicketID, "bob", ""); err != nil {
		t.Fatal(err)
	}
	err := f.svc.CanRepro(ctx, testCommunity, ticket.TicketID, "bob", "")
	if !util.HasCode(err, util.CodeInvalidState) {
		t.Fatalf("err = %v, want INVALID_STATE", err)
	}
}

func TestVerdictOnFeatureRequestRejected(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(nil))
	ticket := f.create(t, "FR", "alice", "dark mode")

	err := f.svc.CanRepro(context.Background(), testCommunity, ticket.TicketID, "bob", "")
	if !util.HasCode(err, util.CodeInvalidState) {
		t.Fatalf("err = %v, want INVALID_STATE", err)
	}
}

func TestResolveUnresolveRoundTrip(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(nil))
	ticket := f.create(t, "FR", "alice", "dark mode")
	ctx := context.Background()

	if err := f.svc.Resolve(ctx, testCommunity, ticket.TicketID, "mgr", "shipped", ResolveOptions{}); err != nil {
		t.Fatal(err)
	}
	got, _ := f.tickets.GetByTicketID(ctx, testCommunity, ticket.TicketID)
	if got.Priority != domain.PriorityResolved || got.ClosedAt == nil {
		t.Fatalf("resolve did not close: priority=%d closedAt=%v", got.Priority, got.ClosedAt)
	}
	if f.renderer.removals != 1 {
		t.Errorf("presentation removals = %d, want 1", f.renderer.removals)
	}

	err := f.svc.Resolve(ctx, testCommunity, ticket.TicketID, "mgr", "", ResolveOptions{})
	if !util.HasCode(err, util.CodeInvalidState) {
		t.Fatalf("second resolve err = %v, want INVALID_STATE", err)
	}

	if err := f.svc.Unresolve(ctx, testCommunity, ticket.TicketID, "mgr", "regressed", true); err != nil {
		t.Fatal(err)
	}
	got, _ = f.tickets.GetByTicketID(ctx, testCommunity, ticket.TicketID)
	if got.Priority != domain.PriorityPending || got.ClosedAt != nil {
		t.Fatalf("unresolve did not restore defaults: priority=%d closedAt=%v", got.Priority, got.ClosedAt)
	}

	err = f.svc.Unresolve(ctx, testCommunity, ticket.TicketID, "mgr", "", true)
	if !util.HasCode(err, util.CodeInvalidState) {
		t.Fatalf("second unresolve err = %v, want INVALID_STATE", err)
	}
}

func TestResolvePendingQueuesForRelease(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(nil))
	first := f.create(t, "BUG", "alice", "crash one")
	second := f.create(t, "BUG", "bob", "crash two")
	ctx := context.Background()

	for _, ticket := range []*domain.Ticket{first, second} {
		if err := f.svc.Resolve(ctx, testCommunity, ticket.TicketID, "mgr", "fixed in next patch", ResolveOptions{IsPending: true}); err != nil {
			t.Fatal(err)
		}
	}
	queued, _ := f.pending.List(ctx, testCommunity)
	if len(queued) != 2 {
		t.Fatalf("queued = %v, want both tickets", queued)
	}

	released, err := f.svc.Release(ctx, testCommunity, "mgr", "v1.2 is out")
	if err != nil {
		t.Fatal(err)
	}
	if len(released) != 2 {
		t.Fatalf("released = %v", released)
	}
	queued, _ = f.pending.List(ctx, testCommunity)
	if len(queued) != 0 {
		t.Fatalf("queue not drained: %v", queued)
	}

	log, _ := f.attachments.ListByTicket(ctx, testCommunity, first.TicketID)
	found := false
	for _, attachment := range log {
		if attachment.Message == "v1.2 is out" {
			found = true
		}
	}
	if !found {
		t.Error("release note not appended to queued ticket")
	}
}

func TestReidentifyMovesTicket(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(repoPtr("acme/game")))
	ticket := f.create(t, "BUG", "alice", "misfiled report")
	ctx := context.Background()

	if err := f.svc.AddNote(ctx, testCommunity, ticket.TicketID, "bob", "details", false); err != nil {
		t.Fatal(err)
	}

	replacement, err := f.svc.Reidentify(ctx, testCommunity, ticket.TicketID, "mgr", "FR")
	if err != nil {
		t.Fatal(err)
	}
	if replacement.TicketID != "FR-1" {
		t.Fatalf("replacement id = %s, want FR-1", replacement.TicketID)
	}
	if !replacement.IsMirrored() {
		t.Fatal("external linkage did not follow the replacement")
	}

	old, err := f.tickets.GetByTicketID(ctx, testCommunity, ticket.TicketID)
	if err != nil {
		t.Fatal(err)
	}
	if old.IsOpen() {
		t.Error("old ticket left open")
	}
	if old.IsMirrored() {
		t.Error("external linkage not detached from old ticket")
	}
	if len(f.client.closed) != 0 {
		t.Error("reidentify closed the external issue; it should follow the new id")
	}

	oldLog, _ := f.attachments.ListByTicket(ctx, testCommunity, ticket.TicketID)
	found := false
	for _, attachment := range oldLog {
		if strings.Contains(attachment.Message, "Reassigned as FR-1") {
			found = true
		}
	}
	if !found {
		t.Error("old ticket missing reassignment note")
	}

	newLog, _ := f.attachments.ListByTicket(ctx, testCommunity, replacement.TicketID)
	if len(newLog) < 2 {
		t.Errorf("attachment history not copied: %d entries", len(newLog))
	}
	if len(f.client.titleEdits) != 1 || !strings.HasPrefix(f.client.titleEdits[0], "FR-1: ") {
		t.Errorf("external title not updated: %v", f.client.titleEdits)
	}
}

func TestMergeFoldsDuplicateIntoTarget(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(nil))
	duplicate := f.create(t, "FR", "alice", "dark mode please")
	target := f.create(t, "FR", "bob", "dark mode")
	ctx := context.Background()

	if err := f.svc.Merge(ctx, testCommunity, duplicate.TicketID, target.TicketID, "mgr"); err != nil {
		t.Fatal(err)
	}

	dup, _ := f.tickets.GetByTicketID(ctx, testCommunity, duplicate.TicketID)
	if dup.IsOpen() {
		t.Error("duplicate left open after merge")
	}

	targetLog, _ := f.attachments.ListByTicket(ctx, testCommunity, target.TicketID)
	copied := 0
	noteFound := false
	for _, attachment := range targetLog {
		if attachment.Mirrored && attachment.Message == "initial report" {
			copied++
		}
		if strings.Contains(attachment.Message, "Merged "+duplicate.TicketID) {
			noteFound = true
		}
	}
	if copied != 1 {
		t.Errorf("copied attachments marked mirrored = %d, want 1", copied)
	}
	if !noteFound {
		t.Error("target missing merge note")
	}
}

func TestMergeSelfRejected(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(nil))
	ticket := f.create(t, "FR", "alice", "dark mode")

	err := f.svc.Merge(context.Background(), testCommunity, ticket.TicketID, ticket.TicketID, "mgr")
	if !util.HasCode(err, util.CodeInvalidState) {
		t.Fatalf("err = %v, want INVALID_STATE", err)
	}
}

func TestSubscribeUnsubscribeIdempotent(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(nil))
	ticket := f.create(t, "FR", "alice", "dark mode")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := f.svc.Subscribe(ctx, testCommunity, ticket.TicketID, "bob"); err != nil {
			t.Fatal(err)
		}
	}
	got, _ := f.tickets.GetByTicketID(ctx, testCommunity, ticket.TicketID)
	if len(got.Subscribers) != 2 {
		t.Fatalf("subscribers = %v, want alice and bob once each", got.Subscribers)
	}

	for i := 0; i < 2; i++ {
		if err := f.svc.Unsubscribe(ctx, testCommunity, ticket.TicketID, "bob"); err != nil {
			t.Fatal(err)
		}
	}
	got, _ = f.tickets.GetByTicketID(ctx, testCommunity, ticket.TicketID)
	if len(got.Subscribers) != 1 || got.Subscribers[0] != "alice" {
		t.Fatalf("subscribers = %v, want just alice", got.Subscribers)
	}
}

func TestUntrackHardDeletes(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(nil))
	ticket := f.create(t, "FR", "alice", "dark mode")
	ctx := context.Background()

	if err := f.svc.Untrack(ctx, testCommunity, ticket.TicketID, "mgr"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.tickets.GetByTicketID(ctx, testCommunity, ticket.TicketID); !util.HasCode(err, util.CodeNotFound) {
		t.Fatalf("ticket still present: %v", err)
	}
	log, _ := f.attachments.ListByTicket(ctx, testCommunity, ticket.TicketID)
	if len(log) != 0 {
		t.Fatalf("attachment log not deleted: %d entries", len(log))
	}
}

func TestAssignLeavesAuditNote(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(nil))
	ticket := f.create(t, "BUG", "alice", "crash")
	ctx := context.Background()

	if err := f.svc.Assign(ctx, testCommunity, ticket.TicketID, "mgr", "dev-1"); err != nil {
		t.Fatal(err)
	}
	got, _ := f.tickets.GetByTicketID(ctx, testCommunity, ticket.TicketID)
	if got.AssigneeID == nil || *got.AssigneeID != "dev-1" {
		t.Fatalf("assignee = %v", got.AssigneeID)
	}

	if err := f.svc.Unassign(ctx, testCommunity, ticket.TicketID, "mgr"); err != nil {
		t.Fatal(err)
	}
	got, _ = f.tickets.GetByTicketID(ctx, testCommunity, ticket.TicketID)
	if got.AssigneeID != nil {
		t.Fatalf("assignee not cleared: %v", *got.AssigneeID)
	}

	log, _ := f.attachments.ListByTicket(ctx, testCommunity, ticket.TicketID)
	var audit []string
	for _, attachment := range log {
		if attachment.VerificationCode == domain.CodeNote && attachment.AuthorID == "mgr" {
			audit = append(audit, attachment.Message)
		}
	}
	if len(audit) != 2 {
		t.Fatalf("audit notes = %v, want assignment and unassignment", audit)
	}
}

func TestMirroredNoteMarksAttachment(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(repoPtr("acme/game")))
	ticket := f.create(t, "BUG", "alice", "crash")
	ctx := context.Background()

	if err := f.svc.AddNote(ctx, testCommunity, ticket.TicketID, "bob", "stack trace attached", true); err != nil {
		t.Fatal(err)
	}
	if len(f.client.comments) != 1 {
		t.Fatalf("external comments = %d, want 1", len(f.client.comments))
	}

	log, _ := f.attachments.ListByTicket(ctx, testCommunity, ticket.TicketID)
	for _, attachment := range log {
		if attachment.Message == "stack trace attached" && !attachment.Mirrored {
			t.Error("mirrored note not marked")
		}
	}
}

func TestPreviewTruncatesOnRuneBoundaries(t *testing.T) {
	cases := []struct {
		body string
		max  int
		want string
	}{
		{"short", 120, "short"},
		{"exactly four", 12, "exactly four"},
		{"die Tür klemmt überall im Menü", 12, "die Tür k..."},
		{"日本語のクラッシュレポート", 6, "日本語..."},
		{"héllo", 2, "hé"},
	}
	for _, tc := range cases {
		got := preview(tc.body, tc.max)
		if got != tc.want {
			t.Errorf("preview(%q, %d) = %q, want %q", tc.body, tc.max, got, tc.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("preview(%q, %d) produced invalid UTF-8: %q", tc.body, tc.max, got)
		}
	}
}

func TestOperationsAreCounted(t *testing.T) {
	f := newEngineFixture(t, testCommunityConfig(nil))
	ticket := f.create(t, "FR", "alice", "add dark mode")
	ctx := context.Background()

	if err := f.svc.Upvote(ctx, testCommunity, ticket.TicketID, "bob", ""); err != nil {
		t.Fatal(err)
	}
	if got := f.metrics.OperationCount("create"); got != 1 {
		t.Errorf("create count = %d, want 1", got)
	}
	if got := f.metrics.OperationCount("vote"); got != 1 {
		t.Errorf("vote count = %d, want 1", got)
	}
	if got := f.metrics.OperationCount("resolve"); got != 0 {
		t.Errorf("resolve count = %d, want 0", got)
	}
}

func hasString(values []string, want string) bool {
	for _, value := range values {
		if value == want {
			return true
		}
	}
	return false
}
