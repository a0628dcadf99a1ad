package service

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/repository/memory"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

var (
	owner    = domain.Actor{ID: "user-1", Kind: domain.ActorEndUser}
	stranger = domain.Actor{ID: "user-2", Kind: domain.ActorEndUser}
	agent    = domain.Actor{ID: "agent-1", Kind: domain.ActorAdmin}
)

func newTicketService() *TicketService {
	return NewTicketService(TicketDependencies{TicketRepo: memory.NewTicketRepository()})
}

func createTicket(t *testing.T, svc *TicketService, actor domain.Actor) *domain.Ticket {
	t.Helper()
	ticket, err := svc.Create(context.Background(), actor, TicketCreateInput{
		Subject:     "printer on fire",
		Description: "it is actually on fire",
		Category:    "Technical Issue",
	})
	require.NoError(t, err)
	return ticket
}

func httpStatus(err error) int {
	return apperrors.ToDomainError(err).HTTPStatus
}

func TestTicketCreateDefaults(t *testing.T) {
	svc := newTicketService()
	ticket := createTicket(t, svc, owner)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, owner.ID, ticket.OwnerID)
	assert.True(t, strings.HasPrefix(ticket.TicketID, "TKT-"), "ticket id %q", ticket.TicketID)
	assert.Nil(t, ticket.AssigneeID)
	assert.Nil(t, ticket.Resolution)
}

func TestTicketCreateValidation(t *testing.T) {
	svc := newTicketService()
	ctx := context.Background()

	_, err := svc.Create(ctx, owner, TicketCreateInput{Subject: "  ", Description: "d", Category: "c"})
	require.Error(t, err)
	assert.Equal(t, 400, httpStatus(err))

	_, err = svc.Create(ctx, owner, TicketCreateInput{
		Subject: "s", Description: "d", Category: "c", Priority: "urgent-ish",
	})
	require.Error(t, err)
	assert.Equal(t, 400, httpStatus(err))
}

func TestTicketAccessScoping(t *testing.T) {
	svc := newTicketService()
	ctx := context.Background()
	ticket := createTicket(t, svc, owner)

	_, err := svc.Get(ctx, owner, ticket.TicketID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, stranger, ticket.TicketID)
	require.Error(t, err)
	assert.Equal(t, 403, httpStatus(err))

	_, err = svc.Get(ctx, agent, ticket.TicketID)
	require.NoError(t, err)

	_, err = svc.ListAll(ctx, owner)
	require.Error(t, err)
	assert.Equal(t, 403, httpStatus(err))

	all, err := svc.ListAll(ctx, agent)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTicketGetUnknown(t *testing.T) {
	svc := newTicketService()

	_, err := svc.Get(context.Background(), owner, "TKT-nope")
	require.Error(t, err)
	assert.Equal(t, 404, httpStatus(err))
}

func TestAssignMovesOpenToInProgress(t *testing.T) {
	svc := newTicketService()
	ctx := context.Background()
	ticket := createTicket(t, svc, owner)

	updated, err := svc.Assign(ctx, agent, ticket.TicketID, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, agent.ID, *updated.AssigneeID)
}

func TestAssignKeepsNonOpenStatus(t *testing.T) {
	svc := newTicketService()
	ctx := context.Background()
	ticket := createTicket(t, svc, owner)

	_, err := svc.SetStatus(ctx, agent, ticket.TicketID, domain.TicketStatusResolved)
	require.NoError(t, err)

	updated, err := svc.Assign(ctx, agent, ticket.TicketID, "agent-2")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)
	assert.Equal(t, "agent-2", *updated.AssigneeID)
}

func TestAssignClosedTicketRejected(t *testing.T) {
	svc := newTicketService()
	ctx := context.Background()
	ticket := createTicket(t, svc, owner)

	_, err := svc.Close(ctx, owner, ticket.TicketID)
	require.NoError(t, err)

	_, err = svc.Assign(ctx, agent, ticket.TicketID, agent.ID)
	require.Error(t, err)
	assert.Equal(t, 422, httpStatus(err))
	assert.Equal(t, "INVALID_STATE", apperrors.ToDomainError(err).Code)
}

func TestAssignRequiresStaff(t *testing.T) {
	svc := newTicketService()
	ticket := createTicket(t, svc, owner)

	_, err := svc.Assign(context.Background(), owner, ticket.TicketID, "agent-2")
	require.Error(t, err)
	assert.Equal(t, 403, httpStatus(err))
}

func TestResolvedStampsResolutionRecord(t *testing.T) {
	svc := newTicketService()
	ctx := context.Background()
	ticket := createTicket(t, svc, owner)

	before := time.Now()
	resolved, err := svc.SetStatus(ctx, agent, ticket.TicketID, domain.TicketStatusResolved)
	require.NoError(t, err)
	require.NotNil(t, resolved.Resolution)
	assert.Equal(t, agent.ID, resolved.Resolution.ResolvedBy)
	assert.False(t, resolved.Resolution.ResolvedAt.Before(before))

	// leaving resolved keeps the record for audit
	reopened, err := svc.SetStatus(ctx, agent, ticket.TicketID, domain.TicketStatusOpen)
	require.NoError(t, err)
	require.NotNil(t, reopened.Resolution)
	assert.Equal(t, agent.ID, reopened.Resolution.ResolvedBy)
}

func TestResolutionNotesRequireRecord(t *testing.T) {
	svc := newTicketService()
	ctx := context.Background()
	ticket := createTicket(t, svc, owner)

	_, err := svc.SetResolutionNotes(ctx, agent, ticket.TicketID, "duplicate of TKT-1")
	require.Error(t, err)
	assert.Equal(t, 422, httpStatus(err))

	_, err = svc.SetStatus(ctx, agent, ticket.TicketID, domain.TicketStatusResolved)
	require.NoError(t, err)

	updated, err := svc.SetResolutionNotes(ctx, agent, ticket.TicketID, "duplicate of TKT-1")
	require.NoError(t, err)
	assert.Equal(t, "duplicate of TKT-1", updated.Resolution.Notes)
}

func TestAppendMessageReopening(t *testing.T) {
	cases := []struct {
		name   string
		status domain.TicketStatus
		actor  domain.Actor
		want   domain.TicketStatus
	}{
		{"staff message reopens closed", domain.TicketStatusClosed, agent, domain.TicketStatusOpen},
		{"owner message keeps closed", domain.TicketStatusClosed, owner, domain.TicketStatusClosed},
		{"owner message reopens resolved", domain.TicketStatusResolved, owner, domain.TicketStatusOpen},
		{"staff message keeps resolved", domain.TicketStatusResolved, agent, domain.TicketStatusResolved},
		{"owner message keeps open", domain.TicketStatusOpen, owner, domain.TicketStatusOpen},
		{"staff message keeps in-progress", domain.TicketStatusInProgress, agent, domain.TicketStatusInProgress},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTicketService()
			ctx := context.Background()
			ticket := createTicket(t, svc, owner)
			if tc.status != domain.TicketStatusOpen {
				_, err := svc.SetStatus(ctx, agent, ticket.TicketID, tc.status)
				require.NoError(t, err)
			}

			updated, err := svc.AppendMessage(ctx, tc.actor, ticket.TicketID, "hello?")
			require.NoError(t, err)
			assert.Equal(t, tc.want, updated.Status)
		})
	}
}

func TestAppendMessageAccumulates(t *testing.T) {
	svc := newTicketService()
	ctx := context.Background()
	ticket := createTicket(t, svc, owner)

	_, err := svc.AppendMessage(ctx, owner, ticket.TicketID, "first")
	require.NoError(t, err)
	_, err = svc.AppendMessage(ctx, agent, ticket.TicketID, "second")
	require.NoError(t, err)

	got, err := svc.Get(ctx, owner, ticket.TicketID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "first", got.Messages[0].Body)
	assert.Equal(t, domain.MessageRoleUser, got.Messages[0].Role)
	assert.Equal(t, "second", got.Messages[1].Body)
	assert.Equal(t, domain.MessageRoleAdmin, got.Messages[1].Role)

	// a field update must not clobber the thread
	subject := "updated subject"
	_, err = svc.Update(ctx, owner, ticket.TicketID, TicketUpdateInput{Subject: &subject})
	require.NoError(t, err)
	got, err = svc.Get(ctx, owner, ticket.TicketID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
}

func TestAppendMessageValidation(t *testing.T) {
	svc := newTicketService()
	ticket := createTicket(t, svc, owner)

	_, err := svc.AppendMessage(context.Background(), owner, ticket.TicketID, "   ")
	require.Error(t, err)
	assert.Equal(t, 400, httpStatus(err))

	_, err = svc.AppendMessage(context.Background(), stranger, ticket.TicketID, "hi")
	require.Error(t, err)
	assert.Equal(t, 403, httpStatus(err))
}

func TestUpdateFieldScoping(t *testing.T) {
	svc := newTicketService()
	ctx := context.Background()
	ticket := createTicket(t, svc, owner)

	status := domain.TicketStatusResolved
	_, err := svc.Update(ctx, owner, ticket.TicketID, TicketUpdateInput{Status: &status})
	require.Error(t, err)
	assert.Equal(t, 403, httpStatus(err))

	assignee := "agent-2"
	_, err = svc.Update(ctx, owner, ticket.TicketID, TicketUpdateInput{AssigneeID: &assignee})
	require.Error(t, err)
	assert.Equal(t, 403, httpStatus(err))

	subject := "calmer subject"
	priority := domain.TicketPriorityLow
	updated, err := svc.Update(ctx, owner, ticket.TicketID, TicketUpdateInput{
		Subject:  &subject,
		Priority: &priority,
	})
	require.NoError(t, err)
	assert.Equal(t, "calmer subject", updated.Subject)
	assert.Equal(t, domain.TicketPriorityLow, updated.Priority)

	updated, err = svc.Update(ctx, agent, ticket.TicketID, TicketUpdateInput{
		Status:     &status,
		AssigneeID: &assignee,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)
	assert.Equal(t, "agent-2", *updated.AssigneeID)
	require.NotNil(t, updated.Resolution)
}

func TestCloseScoping(t *testing.T) {
	svc := newTicketService()
	ctx := context.Background()
	ticket := createTicket(t, svc, owner)

	_, err := svc.Close(ctx, stranger, ticket.TicketID)
	require.Error(t, err)
	assert.Equal(t, 403, httpStatus(err))

	closed, err := svc.Close(ctx, owner, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
}

func TestStringPreviewRuneSafe(t *testing.T) {
	assert.Equal(t, "short", stringPreview(" short ", 120))

	got := stringPreview(strings.Repeat("ü", 130), 120)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("ü", 117)+"...", got)
}

func TestListForOwnerNewestFirst(t *testing.T) {
	svc := newTicketService()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	svc.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	first := createTicket(t, svc, owner)
	second := createTicket(t, svc, owner)
	createTicket(t, svc, stranger)

	tickets, err := svc.ListForOwner(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, second.TicketID, tickets[0].TicketID)
	assert.Equal(t, first.TicketID, tickets[1].TicketID)
}
