// Package optimistic keeps a conversation's message list responsive while
// sends are in flight. A send shows up immediately as a pending entry keyed by
// a synthetic id; once the authoritative row lands (response or push) the
// pending copy is suppressed, and a failed send rolls back and hands the
// compose text back to the caller.
package optimistic

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/helio-trials/PatientEngageBack/internal/models"
	"github.com/helio-trials/PatientEngageBack/internal/services"
)

// PendingSend is a locally-tagged message awaiting confirmation.
type PendingSend struct {
	LocalID        string    `json:"local_id"`
	ConversationID int64     `json:"conversation_id"`
	Content        string    `json:"content"`
	MessageType    string    `json:"message_type"`
	Priority       string    `json:"priority"`
	IsOptimistic   bool      `json:"is_optimistic"`
	IssuedAt       time.Time `json:"issued_at"`
}

// Entry is one rendered slot: either a confirmed row or a pending send.
type Entry struct {
	Message *models.Message `json:"message,omitempty"`
	Pending *PendingSend    `json:"pending,omitempty"`
}

func (e Entry) IsOptimistic() bool {
	return e.Pending != nil
}

// View is the reconciled message list for a single conversation. Pending
// entries always render after every confirmed row, in the order they were
// issued. Completions may arrive out of order; everything resolves by
// LocalID, never by position.
type View struct {
	mu             sync.Mutex
	conversationID int64
	confirmed      []models.Message
	confirmedIDs   map[int64]struct{}
	pending        []PendingSend
}

func NewView(conversationID int64) *View {
	return &View{
		conversationID: conversationID,
		confirmedIDs:   make(map[int64]struct{}),
	}
}

// Begin appends a pending entry for a send that was just issued and returns
// its synthetic id.
func (v *View) Begin(content, messageType, priority string) PendingSend {
	entry := PendingSend{
		LocalID:        uuid.NewString(),
		ConversationID: v.conversationID,
		Content:        content,
		MessageType:    messageType,
		Priority:       priority,
		IsOptimistic:   true,
		IssuedAt:       time.Now().UTC(),
	}

	v.mu.Lock()
	v.pending = append(v.pending, entry)
	v.mu.Unlock()
	return entry
}

// Confirm resolves a pending send against the authoritative row. The pending
// copy is dropped so the message never shows twice.
func (v *View) Confirm(localID string, message *models.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.removePending(localID)
	if message != nil {
		v.absorbLocked(*message)
	}
}

// Fail rolls back a pending send. The original compose text is returned so
// the caller can restore the input field; ok is false for an unknown id.
func (v *View) Fail(localID string) (restored string, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, entry := range v.pending {
		if entry.LocalID == localID {
			restored = entry.Content
			ok = true
			break
		}
	}
	v.removePending(localID)
	return restored, ok
}

// Absorb ingests a row that arrived outside the send path (push event or
// re-fetch). Duplicate server ids are ignored.
func (v *View) Absorb(message models.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.absorbLocked(message)
}

// Snapshot renders the list: confirmed rows in arrival order, then pending
// sends in issue order.
func (v *View) Snapshot() []Entry {
	v.mu.Lock()
	defer v.mu.Unlock()

	entries := make([]Entry, 0, len(v.confirmed)+len(v.pending))
	for i := range v.confirmed {
		entries = append(entries, Entry{Message: &v.confirmed[i]})
	}
	for i := range v.pending {
		entries = append(entries, Entry{Pending: &v.pending[i]})
	}
	return entries
}

func (v *View) PendingCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pending)
}

func (v *View) absorbLocked(message models.Message) {
	if message.ConversationID != v.conversationID {
		return
	}
	if _, seen := v.confirmedIDs[message.ID]; seen {
		return
	}
	v.confirmedIDs[message.ID] = struct{}{}
	v.confirmed = append(v.confirmed, message)
}

func (v *View) removePending(localID string) {
	for i, entry := range v.pending {
		if entry.LocalID == localID {
			v.pending = append(v.pending[:i], v.pending[i+1:]...)
			return
		}
	}
}

// Sender is the slice of the messaging facade a send needs.
type Sender interface {
	SendMessage(ctx context.Context, actorID int64, role string, input services.SendMessageInput) (*services.MessageDelivery, error)
}

// Send runs the full optimistic cycle for one message: show it pending, issue
// the real send, then confirm or roll back. On failure the returned restored
// string carries the original compose text and the error is the facade's.
func Send(
	ctx context.Context,
	view *View,
	sender Sender,
	actorID int64,
	role string,
	input services.SendMessageInput,
) (message *models.Message, restored string, err error) {
	entry := view.Begin(input.Content, input.MessageType, input.Priority)

	delivery, err := sender.SendMessage(ctx, actorID, role, input)
	if err != nil {
		restored, _ = view.Fail(entry.LocalID)
		return nil, restored, err
	}

	view.Confirm(entry.LocalID, delivery.Message)
	return delivery.Message, "", nil
}
