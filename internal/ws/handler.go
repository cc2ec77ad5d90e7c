package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messenger-service/internal/auth"
	"messenger-service/internal/chatkey"
	"messenger-service/internal/delivery"
	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/presence"
	"messenger-service/internal/registry"
	"messenger-service/internal/repositories"
)

// Handler owns the websocket endpoint: handshake, authentication, the read
// loop, and the connection teardown.
type Handler struct {
	hub      *Hub
	sessions *registry.Registry
	engine   *delivery.Engine
	presence *presence.Manager
	verifier auth.Verifier
}

// NewHandler constructs a Handler.
func NewHandler(hub *Hub, sessions *registry.Registry, engine *delivery.Engine, presenceMgr *presence.Manager, verifier auth.Verifier) *Handler {
	return &Handler{
		hub:      hub,
		sessions: sessions,
		engine:   engine,
		presence: presenceMgr,
		verifier: verifier,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, registers the client and starts its read
// loop.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messenger-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	userID, err := h.verifier.Verify(ctx, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	client := newClient(conn, info)

	h.sessions.Register(userID, client)
	h.hub.Add(client)
	h.presence.HandleConnect(ctx, userID)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, observability.RoutingKeyWS, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   lifecyclePayload(info, "ws_connect", 0, ""),
	}, observability.BuildHeaders(requestID, traceID))

	go h.readLoop(context.WithoutCancel(ctx), client)
}

func (h *Handler) readLoop(ctx context.Context, client *Client) {
	info := client.info
	var closeReason string
	defer func() {
		// A reconnect replaces the registry entry before the old read
		// loop exits; only the connection still registered counts as a
		// real departure.
		if h.sessions.Unregister(info.UserID, client) {
			h.presence.HandleDisconnect(ctx, info.UserID)
		}
		h.hub.Remove(client)
		client.Close()

		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		_ = observability.PublishEvent(ctx, observability.RoutingKeyWS, observability.EventEnvelope{
			EventType: "ws_events",
			EventName: "ws_disconnect",
			Payload:   lifecyclePayload(info, "ws_disconnect", time.Since(info.ConnectedAt).Milliseconds(), closeReason),
		}, observability.BuildHeaders(info.RequestID, info.TraceID))
	}()

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				_ = observability.PublishEvent(ctx, observability.RoutingKeyWS, observability.EventEnvelope{
					EventType: "ws_events",
					EventName: "ws_error",
					Payload:   lifecyclePayload(info, "ws_error", time.Since(info.ConnectedAt).Milliseconds(), closeReason),
				}, observability.BuildHeaders(info.RequestID, info.TraceID))
			}
			return
		}
		h.dispatch(ctx, client, raw)
	}
}

func (h *Handler) dispatch(ctx context.Context, client *Client, raw []byte) {
	var frame models.Event
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.sendError(client, "", "malformed event frame")
		return
	}

	userID := client.UserID()
	observability.IncWSEvent(frame.Event)

	switch frame.Event {
	case models.EventUserOnline:
		h.presence.HandleForeground(ctx, userID)

	case models.EventUserOffline:
		h.presence.HandleBackground(ctx, userID)

	case models.EventJoinChat:
		var req models.JoinChatRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			h.sendError(client, "", "malformed joinChat payload")
			return
		}
		key, err := chatkey.Derive(userID, req.OtherUserID)
		if err != nil {
			h.sendError(client, "", "invalid chat participant")
			return
		}
		h.hub.Join(key, client)

	case models.EventSendMessage:
		var req models.SendMessageRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			h.sendError(client, "", "malformed sendMessage payload")
			return
		}
		if err := h.engine.SendMessage(ctx, userID, req); err != nil {
			h.sendError(client, req.ClientMessageID, sendErrorText(err))
		}

	case models.EventMessageDelivered:
		var req models.MessageDeliveredRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			h.sendError(client, "", "malformed messageDelivered payload")
			return
		}
		if err := h.engine.MarkDelivered(ctx, req.MessageID, req.From); err != nil {
			log.Printf("ws: mark delivered failed for %s: %v", req.MessageID, err)
		}

	case models.EventMessagesRead:
		var req models.MessagesReadRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			h.sendError(client, "", "malformed messagesRead payload")
			return
		}
		if err := h.engine.MarkRead(ctx, userID, req.MessageIDs, req.From); err != nil {
			log.Printf("ws: mark read failed for %s: %v", userID, err)
		}

	case models.EventDeleteForMe:
		var req models.DeleteMessageRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			h.sendError(client, "", "malformed deleteForMe payload")
			return
		}
		if err := h.engine.DeleteForMe(ctx, userID, req.MessageID); err != nil {
			h.sendError(client, "", deleteErrorText(err))
		}

	case models.EventDeleteForAll:
		var req models.DeleteMessageRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			h.sendError(client, "", "malformed deleteForEveryone payload")
			return
		}
		if err := h.engine.DeleteForEveryone(ctx, userID, req.MessageID); err != nil {
			h.sendError(client, "", deleteErrorText(err))
		}

	default:
		log.Printf("ws: unknown event %q from %s", frame.Event, userID)
	}
}

func (h *Handler) sendError(client *Client, clientMessageID, text string) {
	if err := client.Send(models.EventMessageError, models.MessageErrorEvent{
		ClientMessageID: clientMessageID,
		Error:           text,
	}); err != nil {
		log.Printf("ws: error event to %s failed: %v", client.UserID(), err)
	}
}

func sendErrorText(err error) string {
	switch {
	case errors.Is(err, delivery.ErrEmptyBody):
		return "message body is empty"
	case errors.Is(err, chatkey.ErrSameUser), errors.Is(err, chatkey.ErrEmptyUserID):
		return "invalid recipient"
	case errors.Is(err, repositories.ErrUserNotFound):
		return "recipient not found"
	default:
		return "failed to send message"
	}
}

func deleteErrorText(err error) string {
	switch {
	case errors.Is(err, repositories.ErrMessageNotFound):
		return "message not found"
	case errors.Is(err, delivery.ErrNotParticipant):
		return "not a participant of this message"
	case errors.Is(err, delivery.ErrNotSender):
		return "only the sender can delete for everyone"
	default:
		return "failed to delete message"
	}
}

func lifecyclePayload(info ConnInfo, event string, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return c.Query("token")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}
