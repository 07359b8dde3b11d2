package storefront

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/arena/internal/chat"
	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/realtime"
	"github.com/dukerupert/arena/internal/session"
)

type memoryMessages struct {
	mu   sync.Mutex
	rows []domain.Message
}

func (m *memoryMessages) RecentMessages(_ context.Context, orderID uuid.UUID, offset, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Message
	for i := len(m.rows) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		if m.rows[i].OrderID == orderID {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *memoryMessages) CreateMessage(_ context.Context, in domain.NewMessage) (*domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := domain.Message{ID: uuid.New(), OrderID: in.OrderID, SenderID: in.SenderID, Content: in.Content, CreatedAt: time.Now()}
	m.rows = append(m.rows, msg)
	return &msg, nil
}

func chatServer(t *testing.T, h *ChatHandler, s *session.Session, orderID uuid.UUID) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = withSession(r, s)
		r.SetPathValue("id", orderID.String())
		h.Serve(w, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readEvent(t *testing.T, conn *websocket.Conn) chat.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev chat.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestChatHandler_SnapshotAndSend(t *testing.T) {
	owner := newSession("0", domain.RoleUser)
	order := &domain.Order{ID: uuid.New(), UserID: owner.UserID}
	messages := &memoryMessages{rows: []domain.Message{
		{ID: uuid.New(), OrderID: order.ID, SenderID: owner.UserID, Content: "where is my order?", CreatedAt: time.Now()},
	}}
	h := NewChatHandler(&mockOrders{orders: map[uuid.UUID]*domain.Order{order.ID: order}}, messages, realtime.NewLocalBus(nil), nil, nil, nil)

	conn, _, err := websocket.DefaultDialer.Dial(chatServer(t, h, owner, order.ID), nil)
	require.NoError(t, err)
	defer conn.Close()

	snapshot := readEvent(t, conn)
	assert.Equal(t, chat.EventSnapshot, snapshot.Kind)
	require.Len(t, snapshot.Entries, 1)
	assert.Equal(t, "where is my order?", snapshot.Entries[0].Content)

	require.NoError(t, conn.WriteJSON(chatCommand{Type: CommandSend, Content: "  hello  "}))

	appended := readEvent(t, conn)
	assert.Equal(t, chat.EventAppend, appended.Kind)
	require.Len(t, appended.Entries, 1)
	assert.Equal(t, "pending", appended.Entries[0].Kind)

	replaced := readEvent(t, conn)
	assert.Equal(t, chat.EventReplace, replaced.Kind)
	assert.Equal(t, 1, replaced.Index)
	require.Len(t, replaced.Entries, 1)
	assert.Equal(t, "confirmed", replaced.Entries[0].Kind)
	assert.Equal(t, "hello", replaced.Entries[0].Content)
}

func TestChatHandler_UnknownCommandReportsError(t *testing.T) {
	owner := newSession("0", domain.RoleUser)
	order := &domain.Order{ID: uuid.New(), UserID: owner.UserID}
	h := NewChatHandler(&mockOrders{orders: map[uuid.UUID]*domain.Order{order.ID: order}}, &memoryMessages{}, realtime.NewLocalBus(nil), nil, nil, nil)

	conn, _, err := websocket.DefaultDialer.Dial(chatServer(t, h, owner, order.ID), nil)
	require.NoError(t, err)
	defer conn.Close()

	readEvent(t, conn)
	require.NoError(t, conn.WriteJSON(chatCommand{Type: "dance"}))

	ev := readEvent(t, conn)
	assert.Equal(t, chat.EventError, ev.Kind)
	assert.Equal(t, "Unknown command", ev.Message)
}

func TestChatHandler_RejectsStrangers(t *testing.T) {
	order := &domain.Order{ID: uuid.New(), UserID: uuid.New()}
	h := NewChatHandler(&mockOrders{orders: map[uuid.UUID]*domain.Order{order.ID: order}}, &memoryMessages{}, realtime.NewLocalBus(nil), nil, nil, nil)

	_, resp, err := websocket.DefaultDialer.Dial(chatServer(t, h, newSession("0", domain.RoleUser), order.ID), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
