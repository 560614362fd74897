package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"spark-service/internal/auth"
	"spark-service/internal/models"
	"spark-service/internal/observability"
	"spark-service/internal/repositories"
	"spark-service/internal/service"
)

// Gateway hosts the single realtime endpoint. A connection is admitted
// only with a valid realtime token in the handshake; no anonymous
// socket ever reaches the room layer.
type Gateway struct {
	hub      *Hub
	messages *service.MessageService
	users    repositories.UserRepository
	tokens   *auth.Authenticator
}

// NewGateway constructs a Gateway.
func NewGateway(hub *Hub, messages *service.MessageService, users repositories.UserRepository, tokens *auth.Authenticator) *Gateway {
	return &Gateway{hub: hub, messages: messages, users: users, tokens: tokens}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle verifies the handshake token, upgrades the connection, joins
// the user room and starts the inbound action loop.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("spark-service/ws").Start(c.Request.Context(), "realtime.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.Query("token")
	if token == "" {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			token = parts[1]
		}
	}

	claims, err := g.tokens.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	// Identity is resolved from the store, same as the session
	// middleware does. Token claims only prove who the caller is; the
	// snapshots written to messages come from the canonical record.
	user, err := g.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve identity"})
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
		UserID:      user.ID,
		Handle:      user.Handle,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	cl := g.hub.Register(conn, info)

	observability.IncWSActive("realtime")
	observability.IncWSEvent("realtime", "ws_connect")
	headers := observability.BuildHeaders(requestID, traceID)
	_ = observability.PublishEvent(ctx, "ws_events.realtime", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   wsEventPayload(info, "ws_connect", 0, ""),
	}, headers)

	// net/http cancels the request context as soon as Handle returns,
	// even for hijacked connections. The loop keeps the span and trace
	// values but must not inherit that cancellation.
	go g.readLoop(context.WithoutCancel(ctx), cl, headers)
}

func (g *Gateway) readLoop(ctx context.Context, cl *client, headers map[string]string) {
	var closeReason string
	defer func() {
		g.hub.Unregister(cl.conn)
		observability.DecWSActive("realtime")
		observability.IncWSEvent("realtime", "ws_disconnect")
		_ = observability.PublishEvent(ctx, "ws_events.realtime", observability.EventEnvelope{
			EventType: "ws_events",
			EventName: "ws_disconnect",
			Payload:   wsEventPayload(cl.info, "ws_disconnect", time.Since(cl.info.ConnectedAt), closeReason),
		}, headers)
		cl.conn.Close()
	}()

	for {
		_, payload, err := cl.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("realtime", "ws_error")
				_ = observability.PublishEvent(ctx, "ws_events.realtime", observability.EventEnvelope{
					EventType: "ws_events",
					EventName: "ws_error",
					Payload:   wsEventPayload(cl.info, "ws_error", time.Since(cl.info.ConnectedAt), closeReason),
				}, headers)
			}
			return
		}

		var action ClientAction
		if err := json.Unmarshal(payload, &action); err != nil {
			g.ack(cl, Ack{Action: "unknown", Error: "invalid_payload"})
			continue
		}
		g.dispatch(ctx, cl, action)
	}
}

// dispatch mirrors the REST surface: the same service methods run the
// same authorization and persistence, only the transport differs.
func (g *Gateway) dispatch(ctx context.Context, cl *client, action ClientAction) {
	switch action.Action {
	case ActionJoinConversation:
		// Participancy is re-derived from the store on every join;
		// nothing is trusted from a previous connection.
		if _, err := g.messages.ConversationForUser(ctx, action.ConversationID, cl.info.UserID); err != nil {
			g.ack(cl, Ack{Ref: action.Ref, Action: action.Action, Error: failureName(err)})
			return
		}
		g.hub.JoinConversation(action.ConversationID, cl.conn)
		g.ack(cl, Ack{Ref: action.Ref, Action: action.Action, OK: true})

	case ActionLeaveConversation:
		g.hub.LeaveConversation(action.ConversationID, cl.conn)
		g.ack(cl, Ack{Ref: action.Ref, Action: action.Action, OK: true})

	case ActionSendMessage:
		actor := models.UserSnapshot{ID: cl.info.UserID, Handle: cl.info.Handle, DisplayName: cl.info.DisplayName, AvatarURL: cl.info.AvatarURL}
		msg, err := g.messages.Send(ctx, action.ConversationID, actor, action.Body)
		if err != nil {
			g.ack(cl, Ack{Ref: action.Ref, Action: action.Action, Error: failureName(err)})
			return
		}
		g.ack(cl, Ack{Ref: action.Ref, Action: action.Action, OK: true, Message: &msg})

	default:
		g.ack(cl, Ack{Ref: action.Ref, Action: action.Action, Error: "unknown_action"})
	}
}

func (g *Gateway) ack(cl *client, ack Ack) {
	ack.Event = "ack"
	if err := cl.writeJSON(ack); err != nil {
		g.hub.Unregister(cl.conn)
		cl.conn.Close()
	}
}

// failureName maps service errors to the stable strings clients key
// their inline feedback on.
func failureName(err error) string {
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		return "not_found"
	case errors.Is(err, service.ErrNotConnected):
		return "not_connected"
	case errors.Is(err, service.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, service.ErrMessageTooLong):
		return "message_too_long"
	case errors.Is(err, service.ErrConnectionConflict):
		return "conflict"
	default:
		return "internal"
	}
}
