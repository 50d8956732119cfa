package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/orbitalworks/verdict/internal/storage"
)

// Broker fans out Postgres LISTEN/NOTIFY messages to SSE subscribers.
// It runs a background goroutine that calls db.WaitForNotification in a loop
// and sends each payload to the subscribers of the originating organization.
type Broker struct {
	db         *storage.DB
	logger     *slog.Logger
	bufferSize int

	mu          sync.RWMutex
	subscribers map[chan []byte]uuid.UUID
}

// NewBroker creates a new SSE broker. Call Start to begin listening.
// bufferSize is the per-subscriber channel depth; a full buffer drops events
// for that subscriber rather than blocking the rest.
func NewBroker(db *storage.DB, logger *slog.Logger, bufferSize int) *Broker {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Broker{
		db:          db,
		logger:      logger,
		bufferSize:  bufferSize,
		subscribers: make(map[chan []byte]uuid.UUID),
	}
}

// Start begins listening on the decisions channel.
// It blocks, so call it in a goroutine. Returns when ctx is cancelled.
func (b *Broker) Start(ctx context.Context) {
	if err := b.db.Listen(ctx, storage.ChannelDecisions); err != nil {
		b.logger.Error("broker: listen decisions", "error", err)
		return
	}

	b.logger.Info("broker: listening for notifications", "channel", storage.ChannelDecisions)

	for {
		channel, payload, err := b.db.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return // Shutting down.
			}
			b.logger.Warn("broker: notification error, retrying", "error", err)
			continue
		}
		b.dispatch(channel, payload)
	}
}

// dispatch routes one notification payload to the right subscribers. The
// payload's org_id field scopes delivery; payloads without one go to every
// subscriber.
func (b *Broker) dispatch(channel, payload string) {
	var meta struct {
		Event string    `json:"event"`
		OrgID uuid.UUID `json:"org_id"`
	}
	if err := json.Unmarshal([]byte(payload), &meta); err != nil {
		b.logger.Warn("broker: unparseable notification payload, dropping", "channel", channel, "error", err)
		return
	}

	eventType := meta.Event
	if eventType == "" {
		eventType = channel
	}
	b.broadcast(meta.OrgID, formatSSE(eventType, payload))
}

// Subscribe returns a channel receiving SSE-formatted events for orgID.
// The caller must call Unsubscribe when done.
func (b *Broker) Subscribe(orgID uuid.UUID) chan []byte {
	ch := make(chan []byte, b.bufferSize)
	b.mu.Lock()
	b.subscribers[ch] = orgID
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subscribers, ch)
	b.mu.Unlock()
	close(ch)
}

// broadcast sends an event to every subscriber of orgID. A zero orgID means
// the event is unscoped and goes to everyone. Subscribers with a full buffer
// miss the event so one slow client cannot block the others.
func (b *Broker) broadcast(orgID uuid.UUID, event []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch, subOrg := range b.subscribers {
		if orgID != uuid.Nil && subOrg != orgID {
			continue
		}
		select {
		case ch <- event:
		default:
			// Subscriber buffer full, drop this event for them.
		}
	}
}

// formatSSE formats a notification as a Server-Sent Events message.
func formatSSE(eventType, data string) []byte {
	return []byte("event: " + eventType + "\ndata: " + data + "\n\n")
}
