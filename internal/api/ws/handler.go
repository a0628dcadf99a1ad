// Package ws is the websocket edge of the realtime relay. Clients
// authenticate with a token query parameter on the upgrade request, then
// exchange JSON frames: join_chat, send_message, typing_start and
// typing_stop inbound; receive_message and user_typing outbound.
package ws

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-platform/internal/api/dto"
	"github.com/spec-kit/support-platform/internal/auth"
	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/relay"
	"github.com/spec-kit/support-platform/internal/repository"
	"github.com/spec-kit/support-platform/internal/service"
)

// Inbound event types.
const (
	eventJoinChat    = "join_chat"
	eventSendMessage = "send_message"
	eventTypingStart = "typing_start"
	eventTypingStop  = "typing_stop"
)

type inboundEvent struct {
	Type      string           `json:"type"`
	ChatID    string           `json:"chatId"`
	Content   string           `json:"content"`
	Sentiment domain.Sentiment `json:"sentiment"`
	User      string           `json:"user"`
}

// Handler upgrades connections and runs the per-connection read loop.
type Handler struct {
	relay      *relay.Relay
	chats      *service.ChatService
	tokens     *auth.TokenManager
	users      repository.UserRepository
	logger     *zap.Logger
	bufferSize int
}

// NewHandler constructs the websocket handler.
func NewHandler(r *relay.Relay, chats *service.ChatService, tokens *auth.TokenManager, users repository.UserRepository, bufferSize int, logger *zap.Logger) *Handler {
	return &Handler{
		relay:      r,
		chats:      chats,
		tokens:     tokens,
		users:      users,
		logger:     logger,
		bufferSize: bufferSize,
	}
}

// UpgradeGuard rejects plain HTTP requests on the websocket route.
func (h *Handler) UpgradeGuard(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve returns the connection handler for the websocket route.
func (h *Handler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		user, err := h.authenticate(conn)
		if err != nil {
			_ = conn.WriteJSON(relay.Event{Type: "error", Payload: fiber.Map{"message": "unauthorized"}})
			_ = conn.Close()
			return
		}

		cl := newClient(uuid.NewString(), domain.ActorForUser(user), user.Name, conn, h.bufferSize, h.logger)
		h.logger.Info("websocket connected",
			zap.String("connection_id", cl.id),
			zap.String("user_id", user.ID))

		go cl.writePump()
		defer func() {
			h.relay.Leave(cl)
			cl.close()
			h.logger.Info("websocket disconnected", zap.String("connection_id", cl.id))
		}()

		h.readLoop(cl)
	})
}

func (h *Handler) authenticate(conn *websocket.Conn) (*domain.User, error) {
	token := conn.Query("token")
	if token == "" {
		return nil, errors.New("missing token")
	}
	claims, err := h.tokens.ParseToken(token)
	if err != nil {
		return nil, err
	}
	user, err := h.users.GetByID(context.Background(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("user not found")
		}
		return nil, err
	}
	if user.Status != domain.UserStatusActive {
		return nil, errors.New("account suspended")
	}
	return user, nil
}

func (h *Handler) readLoop(cl *client) {
	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var event inboundEvent
		if err := cl.conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed",
					zap.String("connection_id", cl.id),
					zap.Error(err))
			}
			return
		}
		_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		h.dispatch(cl, event)
	}
}

// dispatch handles one inbound frame. A failed frame is reported back to the
// sender and dropped; it never tears the connection down.
func (h *Handler) dispatch(cl *client, event inboundEvent) {
	switch event.Type {
	case eventJoinChat:
		if event.ChatID == "" {
			h.sendError(cl, "chatId required")
			return
		}
		h.relay.Join(cl, event.ChatID)

	case eventSendMessage:
		msg, err := h.chats.AppendMessage(context.Background(), cl.actor, event.ChatID, event.Content, event.Sentiment)
		if err != nil {
			h.logger.Warn("websocket message rejected",
				zap.String("connection_id", cl.id),
				zap.String("chat_id", event.ChatID),
				zap.Error(err))
			h.sendError(cl, "message rejected")
			return
		}
		h.relay.BroadcastMessage(event.ChatID, dto.MessageFromDomain(msg))

	case eventTypingStart:
		h.relay.BroadcastTyping(event.ChatID, h.typingName(cl, event), true, cl)

	case eventTypingStop:
		h.relay.BroadcastTyping(event.ChatID, h.typingName(cl, event), false, cl)

	default:
		h.sendError(cl, "unknown event type")
	}
}

func (h *Handler) typingName(cl *client, event inboundEvent) string {
	if event.User != "" {
		return event.User
	}
	return cl.name
}

func (h *Handler) sendError(cl *client, message string) {
	_ = cl.Send(relay.Event{Type: "error", Payload: fiber.Map{"message": message}})
}
