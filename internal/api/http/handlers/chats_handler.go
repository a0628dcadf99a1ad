package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-platform/internal/api/dto"
	"github.com/spec-kit/support-platform/internal/auth"
	"github.com/spec-kit/support-platform/internal/relay"
	"github.com/spec-kit/support-platform/internal/service"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

// ChatsHandler manages chat endpoints. Appends made over HTTP are pushed
// through the relay as well, so socket-connected participants see them live.
type ChatsHandler struct {
	chats      *service.ChatService
	escalation *service.EscalationService
	relay      *relay.Relay
}

// NewChatsHandler constructs handler.
func NewChatsHandler(chatService *service.ChatService, escalationService *service.EscalationService, r *relay.Relay) *ChatsHandler {
	return &ChatsHandler{chats: chatService, escalation: escalationService, relay: r}
}

// ListChats GET /chats.
func (h *ChatsHandler) ListChats(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	chats, err := h.chats.ListForParticipant(c.Context(), principal.User.ID)
	if err != nil {
		return err
	}
	items := make([]dto.ChatResponse, 0, len(chats))
	for i := range chats {
		items = append(items, dto.ChatFromDomain(&chats[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateChat POST /chats. Returns the existing chat for the pair when one
// already exists.
func (h *ChatsHandler) CreateChat(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateChatRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	chat, err := h.chats.GetOrCreate(c.Context(), principal.Actor(), req.UserID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.ChatFromDomain(chat)})
}

// GetChat GET /chats/:id.
func (h *ChatsHandler) GetChat(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	chat, err := h.chats.Get(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ChatFromDomain(chat)})
}

// GetHistory GET /chats/:id/history. The message log only.
func (h *ChatsHandler) GetHistory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	chat, err := h.chats.Get(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MessagesFromDomain(chat.Messages)})
}

// AddMessage POST /chats/:id/messages.
func (h *ChatsHandler) AddMessage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ChatMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	chatID := c.Params("id")
	msg, err := h.chats.AppendMessage(c.Context(), principal.Actor(), chatID, req.Content, req.Sentiment)
	if err != nil {
		return err
	}
	h.relay.BroadcastMessage(chatID, dto.MessageFromDomain(msg))
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.MessageFromDomain(msg)})
}

// Escalate POST /chats/:id/escalate. Derives a ticket from the transcript;
// explicit fields in the body override derivation.
func (h *ChatsHandler) Escalate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.EscalateChatRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.escalation.CreateTicketFromChat(c.Context(), principal.Actor(), c.Params("id"), service.EscalationInput{
		Subject:     req.Subject,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}
