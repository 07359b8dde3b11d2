package storefront

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dukerupert/arena/internal/chat"
	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/realtime"
	"github.com/dukerupert/arena/internal/telemetry"
)

const (
	chatWriteWait    = 10 * time.Second
	chatPongWait     = 60 * time.Second
	chatPingPeriod   = (chatPongWait * 9) / 10
	chatMaxFrameSize = 8 * 1024
	chatEventBuffer  = 64
)

// Chat command types sent by the client.
const (
	CommandSend      = "send"
	CommandLoadOlder = "load_older"
	CommandRetry     = "retry"
	CommandViewport  = "viewport"
)

// chatCommand is one client frame.
type chatCommand struct {
	Type     string         `json:"type"`
	Content  string         `json:"content,omitempty"`
	LocalID  string         `json:"local_id,omitempty"`
	Viewport *chat.Viewport `json:"viewport,omitempty"`
}

// ChatHandler serves the support chat of an order over a websocket.
type ChatHandler struct {
	orders   Orders
	messages domain.MessageStore
	feed     realtime.Subscriber
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewChatHandler creates a chat handler. An empty allowedOrigins accepts
// only same-host origins. metrics may be nil.
func NewChatHandler(orders Orders, messages domain.MessageStore, feed realtime.Subscriber, allowedOrigins []string, metrics *telemetry.BusinessMetrics, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &ChatHandler{
		orders:   orders,
		messages: messages,
		feed:     feed,
		metrics:  metrics,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, origin)
		}
	}
	return h
}

// Serve handles GET /api/orders/{id}/chat
func (h *ChatHandler) Serve(w http.ResponseWriter, r *http.Request) {
	order, ok := loadOrder(w, r, h.orders, "chat.connect")
	if !ok {
		return
	}
	viewer := domain.UserFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Debug("chat upgrade failed", "order_id", order.ID, "error", err)
		return
	}
	defer conn.Close()

	disconnected := h.metrics.ChatConnected()
	defer disconnected()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	logger := h.logger.With("order_id", order.ID, "user_id", viewer.ID)

	events := make(chan chat.Event, chatEventBuffer)
	push := func(ev chat.Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		default:
			// A client that cannot keep up is dropped; it reloads on reconnect.
			logger.Warn("chat client too slow, disconnecting")
			cancel()
		}
	}

	view := chat.New(order.ID, viewer.ID, h.messages, h.feed,
		chat.WithLogger(logger),
		chat.WithListener(push),
		chat.WithObserver(h.metrics.ObserveChat),
	)
	defer view.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(ctx, conn, events, logger)
		cancel()
	}()

	if err := view.Open(ctx); err != nil && !domain.IsAborted(err) {
		logger.Warn("chat open failed", "error", err)
	}

	h.readLoop(ctx, conn, view, push, logger)
	cancel()
	<-done
}

// readLoop dispatches client commands until the connection fails or ctx ends.
func (h *ChatHandler) readLoop(ctx context.Context, conn *websocket.Conn, view *chat.Sync, push func(chat.Event), logger *slog.Logger) {
	conn.SetReadLimit(chatMaxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(chatPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(chatPongWait))
	})

	for ctx.Err() == nil {
		var cmd chatCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("chat read failed", "error", err)
			}
			return
		}

		if err := h.dispatch(ctx, view, cmd); err != nil && !domain.IsAborted(err) {
			push(chat.Event{
				Kind:    chat.EventError,
				HasMore: view.HasMore(),
				State:   view.State(),
				Message: domain.ErrorMessage(err),
			})
		}
	}
}

func (h *ChatHandler) dispatch(ctx context.Context, view *chat.Sync, cmd chatCommand) error {
	switch cmd.Type {
	case CommandSend:
		return view.Send(ctx, cmd.Content)
	case CommandLoadOlder:
		return view.LoadOlder(ctx)
	case CommandRetry:
		return view.Retry(ctx, cmd.LocalID)
	case CommandViewport:
		if cmd.Viewport == nil {
			return domain.Invalid("chat.viewport", "Viewport is required")
		}
		view.Observe(*cmd.Viewport)
		return nil
	default:
		return domain.Invalid("chat.command", "Unknown command")
	}
}

// writeLoop is the only writer of conn.
func (h *ChatHandler) writeLoop(ctx context.Context, conn *websocket.Conn, events <-chan chat.Event, logger *slog.Logger) {
	ticker := time.NewTicker(chatPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					logger.Debug("chat write failed", "error", err)
				}
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
