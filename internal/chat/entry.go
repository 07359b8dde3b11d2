// Package chat keeps the message list of one open order support chat in
// sync with the gateway: paged history, realtime inserts and optimistic sends.
package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/arena/internal/domain"
)

// Entry is one row of the visible message list. It is exactly one of
// ConfirmedEntry, PendingEntry or FailedEntry.
type Entry interface {
	entry()
}

// ConfirmedEntry is a message the gateway has persisted.
type ConfirmedEntry struct {
	Message domain.Message
}

// PendingEntry is an optimistic message whose send is outstanding.
// LocalID never leaves the process and is never compared to durable ids.
type PendingEntry struct {
	LocalID  string
	Payload  domain.NewMessage
	QueuedAt time.Time
}

// FailedEntry is an optimistic message whose send was rejected. It stays in
// the list until retried.
type FailedEntry struct {
	LocalID string
	Payload domain.NewMessage
	Reason  string
}

func (ConfirmedEntry) entry() {}
func (PendingEntry) entry()   {}
func (FailedEntry) entry()    {}

// EntryView is the wire form of an Entry.
type EntryView struct {
	Kind      string     `json:"kind"`
	ID        *uuid.UUID `json:"id,omitempty"`
	LocalID   string     `json:"local_id,omitempty"`
	SenderID  uuid.UUID  `json:"sender_id"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// View renders an entry for the client.
func View(e Entry) EntryView {
	switch e := e.(type) {
	case ConfirmedEntry:
		id, at := e.Message.ID, e.Message.CreatedAt
		return EntryView{Kind: "confirmed", ID: &id, SenderID: e.Message.SenderID, Content: e.Message.Content, CreatedAt: &at}
	case PendingEntry:
		return EntryView{Kind: "pending", LocalID: e.LocalID, SenderID: e.Payload.SenderID, Content: e.Payload.Content}
	case FailedEntry:
		return EntryView{Kind: "failed", LocalID: e.LocalID, SenderID: e.Payload.SenderID, Content: e.Payload.Content, Error: e.Reason}
	}
	return EntryView{}
}

// Views renders a list of entries.
func Views(entries []Entry) []EntryView {
	out := make([]EntryView, len(entries))
	for i, e := range entries {
		out[i] = View(e)
	}
	return out
}

func localID(e Entry) string {
	switch e := e.(type) {
	case PendingEntry:
		return e.LocalID
	case FailedEntry:
		return e.LocalID
	}
	return ""
}

func durableID(e Entry) uuid.UUID {
	if c, ok := e.(ConfirmedEntry); ok {
		return c.Message.ID
	}
	return uuid.Nil
}
