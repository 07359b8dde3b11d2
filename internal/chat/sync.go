package chat

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/realtime"
)

// PageSize is the number of messages fetched per history page.
const PageSize = 50

// State is the activity of a Sync.
type State string

const (
	StateInitialLoad  State = "initial_load"
	StateIdle         State = "idle"
	StateLoadingOlder State = "loading_older"
	StateSending      State = "sending"
	StateError        State = "error"
)

// EventKind identifies a change pushed to the client.
type EventKind string

const (
	EventSnapshot EventKind = "snapshot"
	EventAppend   EventKind = "append"
	EventPrepend  EventKind = "prepend"
	EventReplace  EventKind = "replace"
	EventRemove   EventKind = "remove"
	EventError    EventKind = "error"
)

// Event is one change to the visible list.
type Event struct {
	Kind EventKind `json:"type"`

	// Entries holds the whole list for snapshots, the new rows for
	// append/prepend, and the single replacement for replace.
	Entries []EntryView `json:"entries,omitempty"`

	// Index locates replace and remove events.
	Index int `json:"index,omitempty"`

	HasMore        bool   `json:"has_more"`
	State          State  `json:"state"`
	ScrollToBottom bool   `json:"scroll_to_bottom,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Listener receives events in the order the list changed, one call at a
// time, without the Sync's lock held.
type Listener func(Event)

// Observer counts send outcomes: "sent", "failed" or "retried".
type Observer func(outcome string)

// Sync is the message list of one open chat view. Open subscribes and loads
// the newest page; Close tears the subscription down. A Sync cannot be
// reopened.
type Sync struct {
	orderID  uuid.UUID
	senderID uuid.UUID
	messages domain.MessageStore
	feed     realtime.Subscriber
	logger   *slog.Logger
	listener Listener
	observer Observer
	now      func() time.Time

	mu          sync.Mutex
	entries     []Entry
	known       map[uuid.UUID]struct{}
	hasMore     bool
	loading     bool
	loadingOld  bool
	sending     int
	failed      bool
	generation  uint64
	closed      bool
	sub         realtime.Subscription
	viewport    Viewport
	hasViewport bool

	// outbox holds events not yet handed to the listener; draining is set
	// while one goroutine delivers them.
	outbox   []Event
	draining bool
}

// Option configures a Sync.
type Option func(*Sync)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sync) {
		s.logger = logger
	}
}

// WithListener sets the event listener.
func WithListener(fn Listener) Option {
	return func(s *Sync) {
		s.listener = fn
	}
}

// WithObserver registers a send outcome observer (metrics).
func WithObserver(fn Observer) Option {
	return func(s *Sync) {
		s.observer = fn
	}
}

// New creates the sync for orderID as seen by senderID.
func New(orderID, senderID uuid.UUID, messages domain.MessageStore, feed realtime.Subscriber, opts ...Option) *Sync {
	s := &Sync{
		orderID:  orderID,
		senderID: senderID,
		messages: messages,
		feed:     feed,
		logger:   slog.Default(),
		now:      time.Now,
		known:    make(map[uuid.UUID]struct{}),
		loading:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("order_id", orderID)
	return s
}

// State returns the current activity.
func (s *Sync) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Sync) stateLocked() State {
	switch {
	case s.loading:
		return StateInitialLoad
	case s.loadingOld:
		return StateLoadingOlder
	case s.sending > 0:
		return StateSending
	case s.failed:
		return StateError
	}
	return StateIdle
}

// Entries returns a copy of the list in display order.
func (s *Sync) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// HasMore reports whether older history may exist.
func (s *Sync) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Observe records the client's scroll geometry.
func (s *Sync) Observe(v Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = v
	s.hasViewport = true
}

// Open subscribes to the order's feed and loads the newest page. The
// subscription starts first so no insert between load and subscribe is lost.
func (s *Sync) Open(ctx context.Context) error {
	const op = "chat.open"

	sub, err := s.feed.Subscribe(s.orderID, s.HandleInsert)
	if err != nil {
		return domain.Internal(err, op, "Failed to connect to chat")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = sub.Unsubscribe()
		return domain.Aborted(op, nil)
	}
	s.sub = sub
	gen := s.generation
	s.mu.Unlock()

	page, err := s.messages.RecentMessages(ctx, s.orderID, 0, PageSize)

	s.mu.Lock()
	if s.stale(gen) {
		s.mu.Unlock()
		return domain.Aborted(op, err)
	}
	s.loading = false
	if err != nil {
		s.failed = true
		s.emitLocked(s.eventLocked(EventError, nil, 0, "Failed to load messages"))
		s.mu.Unlock()
		s.flush()
		return domain.WrapError(err, domain.ErrorCode(err), op, "Failed to load messages")
	}

	// Realtime arrivals during the load stay after the loaded page.
	arrived := s.entries
	s.entries = make([]Entry, 0, len(page)+len(arrived))
	for _, msg := range chronological(page) {
		if _, ok := s.known[msg.ID]; ok {
			continue
		}
		s.known[msg.ID] = struct{}{}
		s.entries = append(s.entries, ConfirmedEntry{Message: msg})
	}
	s.entries = append(s.entries, arrived...)
	s.hasMore = len(page) == PageSize

	ev := s.eventLocked(EventSnapshot, s.entries, 0, "")
	ev.ScrollToBottom = true
	s.emitLocked(ev)
	s.mu.Unlock()

	s.flush()
	return nil
}

// LoadOlder fetches the page before the oldest loaded message and prepends
// it. The offset is the number of confirmed messages held, so messages that
// arrived in realtime are counted. It is a no-op while another page loads or
// when no older history exists.
func (s *Sync) LoadOlder(ctx context.Context) error {
	const op = "chat.load_older"

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Aborted(op, nil)
	}
	if s.loading || s.loadingOld || !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	offset := s.confirmedLocked()
	s.loadingOld = true
	gen := s.generation
	s.mu.Unlock()

	page, err := s.messages.RecentMessages(ctx, s.orderID, offset, PageSize)

	s.mu.Lock()
	if s.stale(gen) {
		s.mu.Unlock()
		return domain.Aborted(op, err)
	}
	s.loadingOld = false
	if err != nil {
		s.failed = true
		s.emitLocked(s.eventLocked(EventError, nil, 0, "Failed to load older messages"))
		s.mu.Unlock()
		s.flush()
		return domain.WrapError(err, domain.ErrorCode(err), op, "Failed to load older messages")
	}

	older := make([]Entry, 0, len(page))
	for _, msg := range chronological(page) {
		if _, ok := s.known[msg.ID]; ok {
			continue
		}
		s.known[msg.ID] = struct{}{}
		older = append(older, ConfirmedEntry{Message: msg})
	}
	s.entries = append(older, s.entries...)
	s.hasMore = len(page) == PageSize
	s.failed = false

	s.emitLocked(s.eventLocked(EventPrepend, older, 0, ""))
	s.mu.Unlock()

	s.flush()
	return nil
}

// Send appends an optimistic entry and persists it. On success the entry is
// replaced in place by the stored row; on failure it becomes a FailedEntry
// and is kept.
func (s *Sync) Send(ctx context.Context, content string) error {
	const op = "chat.send"

	content = strings.TrimSpace(content)
	if content == "" {
		return domain.ErrEmptyMessage
	}
	if len(content) > domain.MaxMessageLength {
		return domain.Invalid(op, "Message is too long")
	}

	payload := domain.NewMessage{OrderID: s.orderID, SenderID: s.senderID, Content: content}
	pending := PendingEntry{LocalID: uuid.NewString(), Payload: payload, QueuedAt: s.now()}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Aborted(op, nil)
	}
	s.entries = append(s.entries, pending)
	s.sending++
	ev := s.eventLocked(EventAppend, []Entry{pending}, 0, "")
	ev.ScrollToBottom = true
	s.emitLocked(ev)
	s.mu.Unlock()

	s.flush()
	return s.deliver(ctx, op, pending)
}

// Retry resends a failed entry in place.
func (s *Sync) Retry(ctx context.Context, localID string) error {
	const op = "chat.retry"

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Aborted(op, nil)
	}
	i := s.indexLocal(localID)
	failed, ok := entryAt[FailedEntry](s.entries, i)
	if !ok {
		s.mu.Unlock()
		return domain.NotFound(op, "failed message", localID)
	}
	pending := PendingEntry{LocalID: failed.LocalID, Payload: failed.Payload, QueuedAt: s.now()}
	s.entries[i] = pending
	s.sending++
	s.emitLocked(s.eventLocked(EventReplace, []Entry{pending}, i, ""))
	s.mu.Unlock()

	s.flush()
	s.observe("retried")
	return s.deliver(ctx, op, pending)
}

func (s *Sync) deliver(ctx context.Context, op string, pending PendingEntry) error {
	msg, err := s.messages.CreateMessage(ctx, pending.Payload)

	s.mu.Lock()
	s.sending--
	if s.closed {
		s.mu.Unlock()
		return domain.Aborted(op, err)
	}

	i := s.indexLocal(pending.LocalID)
	if err != nil {
		s.failed = true
		if i >= 0 {
			failed := FailedEntry{LocalID: pending.LocalID, Payload: pending.Payload, Reason: domain.ErrorMessage(err)}
			s.entries[i] = failed
			s.emitLocked(s.eventLocked(EventReplace, []Entry{failed}, i, ""))
		}
		s.emitLocked(s.eventLocked(EventError, nil, 0, "Message failed to send"))
		s.mu.Unlock()

		s.logger.Warn("chat message failed to send", "local_id", pending.LocalID, "error", err)
		s.flush()
		s.observe("failed")
		return domain.WrapError(err, domain.ErrorCode(err), op, "Message failed to send")
	}

	s.known[msg.ID] = struct{}{}
	s.failed = false

	// A realtime copy may have been appended before the send returned.
	for j := len(s.entries) - 1; j >= 0; j-- {
		if j != i && durableID(s.entries[j]) == msg.ID {
			s.entries = slices.Delete(s.entries, j, j+1)
			s.emitLocked(s.eventLocked(EventRemove, nil, j, ""))
			if j < i {
				i--
			}
		}
	}

	confirmed := ConfirmedEntry{Message: *msg}
	if i >= 0 {
		s.entries[i] = confirmed
		s.emitLocked(s.eventLocked(EventReplace, []Entry{confirmed}, i, ""))
	} else {
		s.entries = append(s.entries, confirmed)
		s.emitLocked(s.eventLocked(EventAppend, []Entry{confirmed}, 0, ""))
	}
	s.mu.Unlock()

	s.flush()
	s.observe("sent")
	return nil
}

// HandleInsert applies a realtime insert. Rows of other orders and rows
// whose durable id is already held are ignored.
func (s *Sync) HandleInsert(msg domain.Message) {
	s.mu.Lock()
	if s.closed || msg.OrderID != s.orderID || msg.ID == uuid.Nil {
		s.mu.Unlock()
		return
	}
	if _, ok := s.known[msg.ID]; ok {
		s.mu.Unlock()
		return
	}
	s.known[msg.ID] = struct{}{}

	entry := ConfirmedEntry{Message: msg}
	s.entries = append(s.entries, entry)

	if s.loading {
		s.mu.Unlock()
		return
	}
	ev := s.eventLocked(EventAppend, []Entry{entry}, 0, "")
	ev.ScrollToBottom = !s.hasViewport || s.viewport.NearBottom()
	s.emitLocked(ev)
	s.mu.Unlock()

	s.flush()
}

// Close ends the subscription and discards every response still in flight.
func (s *Sync) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.generation++
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub == nil {
		return nil
	}
	return sub.Unsubscribe()
}

// stale reports whether a response started at gen must be discarded.
// Callers hold s.mu.
func (s *Sync) stale(gen uint64) bool {
	return s.closed || gen != s.generation
}

func (s *Sync) confirmedLocked() int {
	n := 0
	for _, e := range s.entries {
		if _, ok := e.(ConfirmedEntry); ok {
			n++
		}
	}
	return n
}

func (s *Sync) indexLocal(id string) int {
	return slices.IndexFunc(s.entries, func(e Entry) bool { return localID(e) == id })
}

func (s *Sync) eventLocked(kind EventKind, entries []Entry, index int, message string) Event {
	ev := Event{
		Kind:    kind,
		Index:   index,
		HasMore: s.hasMore,
		State:   s.stateLocked(),
		Message: message,
	}
	if entries != nil {
		ev.Entries = Views(entries)
	}
	return ev
}

// emitLocked queues ev behind every event of earlier changes. Callers hold
// s.mu and call flush after releasing it.
func (s *Sync) emitLocked(ev Event) {
	if s.listener == nil {
		return
	}
	s.outbox = append(s.outbox, ev)
}

// flush hands queued events to the listener. If another goroutine is already
// delivering, that goroutine picks up the new events in order.
func (s *Sync) flush() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.outbox) > 0 {
		batch := s.outbox
		s.outbox = nil
		s.mu.Unlock()
		for _, ev := range batch {
			s.listener(ev)
		}
		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}

func (s *Sync) observe(outcome string) {
	if s.observer != nil {
		s.observer(outcome)
	}
}

// chronological reverses a newest-first page.
func chronological(page []domain.Message) []domain.Message {
	out := slices.Clone(page)
	slices.Reverse(out)
	return out
}

func entryAt[T Entry](entries []Entry, i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(entries) {
		return zero, false
	}
	e, ok := entries[i].(T)
	return e, ok
}
