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
)

func newEscalationFixture() (*EscalationService, *ChatService, *TicketService) {
	chats := newChatService()
	tickets := newTicketService()
	return NewEscalationService(chats, tickets, nil), chats, tickets
}

func seedChat(t *testing.T, chats *ChatService, bodies ...string) *domain.Chat {
	t.Helper()
	ctx := context.Background()
	chat, err := chats.GetOrCreate(ctx, owner, stranger.ID)
	require.NoError(t, err)
	for _, body := range bodies {
		_, err := chats.AppendMessage(ctx, owner, chat.ID, body, "")
		require.NoError(t, err)
	}
	return chat
}

func TestDeriveSubject(t *testing.T) {
	short := "app crashes on login"
	long := strings.Repeat("my keyboard types two letters every time I press ", 2)

	t.Run("short body passes through", func(t *testing.T) {
		msgs := []domain.Message{{Role: domain.MessageRoleUser, Body: short}}
		assert.Equal(t, short, DeriveSubject(msgs))
	})

	t.Run("long body truncates with ellipsis", func(t *testing.T) {
		msgs := []domain.Message{{Role: domain.MessageRoleUser, Body: long}}
		got := DeriveSubject(msgs)
		assert.Len(t, got, 53)
		assert.Equal(t, long[:50]+"...", got)
	})

	t.Run("multibyte body truncates on runes", func(t *testing.T) {
		msgs := []domain.Message{{Role: domain.MessageRoleUser, Body: strings.Repeat("ü", 60)}}
		got := DeriveSubject(msgs)
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, strings.Repeat("ü", 50)+"...", got)
	})

	t.Run("skips non-user messages", func(t *testing.T) {
		msgs := []domain.Message{
			{Role: domain.MessageRoleAI, Body: "hello, how can I help?"},
			{Role: domain.MessageRoleUser, Body: short},
		}
		assert.Equal(t, short, DeriveSubject(msgs))
	})

	t.Run("falls back without user messages", func(t *testing.T) {
		assert.Equal(t, "Support Request", DeriveSubject(nil))
	})
}

func TestDeriveCategory(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{"my bill is wrong", "Billing"},
		{"I was charged twice", "Billing"},
		{"app crashes with an error on login", "Technical Issue"},
		{"I want my money back, refund please", "Refund/Return"},
		{"cannot update my profile", "Account"},
		{"hi", "General Inquiry"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			msgs := []domain.Message{{Role: domain.MessageRoleUser, Body: tc.body}}
			assert.Equal(t, tc.want, DeriveCategory(msgs))
		})
	}
}

func TestDeriveCategoryRuleOrder(t *testing.T) {
	// "error" (technical) outranks "billing" regardless of word position
	msgs := []domain.Message{{Role: domain.MessageRoleUser, Body: "billing page shows an error"}}
	assert.Equal(t, "Technical Issue", DeriveCategory(msgs))
}

func TestRenderTranscript(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	msgs := []domain.Message{
		{Role: domain.MessageRoleUser, Body: "my order never arrived", Timestamp: ts},
		{Role: domain.MessageRoleAI, Body: "let me check that for you", Timestamp: ts.Add(time.Minute)},
	}

	got := RenderTranscript(msgs)
	assert.True(t, strings.HasPrefix(got, "Customer Support Chat Transcript:\n\n"))
	assert.Contains(t, got, "[2024-05-01 09:30:00] Customer: my order never arrived\n\n")
	assert.Contains(t, got, "[2024-05-01 09:31:00] AI Support: let me check that for you\n\n")
}

func TestEscalateDerivesTicketFields(t *testing.T) {
	svc, chats, _ := newEscalationFixture()
	ctx := context.Background()
	chat := seedChat(t, chats, "there is a bug in the checkout flow")

	ticket, err := svc.CreateTicketFromChat(ctx, owner, chat.ID, EscalationInput{})
	require.NoError(t, err)

	assert.Equal(t, "there is a bug in the checkout flow", ticket.Subject)
	assert.Equal(t, "Technical Issue", ticket.Category)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, owner.ID, ticket.OwnerID)
	assert.Contains(t, ticket.Description, "Customer Support Chat Transcript:")
	assert.Contains(t, ticket.Description, "Customer: there is a bug in the checkout flow")
}

func TestEscalateExplicitFieldsWin(t *testing.T) {
	svc, chats, _ := newEscalationFixture()
	ctx := context.Background()
	chat := seedChat(t, chats, "there is a bug in the checkout flow")

	ticket, err := svc.CreateTicketFromChat(ctx, owner, chat.ID, EscalationInput{
		Subject:  "checkout broken",
		Category: "Billing",
		Priority: domain.TicketPriorityCritical,
	})
	require.NoError(t, err)

	assert.Equal(t, "checkout broken", ticket.Subject)
	assert.Equal(t, "Billing", ticket.Category)
	assert.Equal(t, domain.TicketPriorityCritical, ticket.Priority)
	// description still derived from the transcript
	assert.Contains(t, ticket.Description, "Customer Support Chat Transcript:")
}

func TestEscalateRequiresParticipant(t *testing.T) {
	svc, chats, _ := newEscalationFixture()
	ctx := context.Background()
	chat := seedChat(t, chats, "hi")

	outsider := domain.Actor{ID: "user-9", Kind: domain.ActorEndUser}
	_, err := svc.CreateTicketFromChat(ctx, outsider, chat.ID, EscalationInput{})
	require.Error(t, err)
	assert.Equal(t, 403, httpStatus(err))
}

func TestEscalatedTicketIsIndependent(t *testing.T) {
	svc, chats, tickets := newEscalationFixture()
	ctx := context.Background()
	chat := seedChat(t, chats, "there is a bug somewhere")

	ticket, err := svc.CreateTicketFromChat(ctx, owner, chat.ID, EscalationInput{})
	require.NoError(t, err)

	// later chat activity does not touch the ticket
	_, err = chats.AppendMessage(ctx, owner, chat.ID, "never mind, found it", "")
	require.NoError(t, err)

	got, err := tickets.Get(ctx, owner, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, ticket.Description, got.Description)
	assert.NotContains(t, got.Description, "never mind")
}
