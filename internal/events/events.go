// Package events carries room events out of the process: archival, message
// streams and pub/sub mirrors. Snapshot fan-out to connected clients lives in
// the room actor; this package never feeds back into room state.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/DoyleJ11/auction-backend/internal/engine"
)

// Event is the envelope published for every engine event worth sharing.
type Event struct {
	ID        string           `json:"id"`
	RoomID    string           `json:"room_id"`
	Type      engine.EventType `json:"type"`
	Lot       int              `json:"lot,omitempty"`
	TeamID    string           `json:"team_id,omitempty"`
	Amount    int64            `json:"amount,omitempty"`
	Item      *engine.Item     `json:"item,omitempty"`
	Skipped   bool             `json:"skipped,omitempty"`
	Version   int              `json:"version"`
	Timestamp time.Time        `json:"timestamp"`
}

// FromEngine wraps engine events for roomID. Timer ticks are dropped; they
// are visible in snapshots and too chatty for sinks.
func FromEngine(roomID string, version int, at time.Time, evs []engine.Event) []Event {
	out := make([]Event, 0, len(evs))
	for _, e := range evs {
		if e.Type == engine.EvtTimerTicked {
			continue
		}
		ev := Event{
			ID:        uuid.NewString(),
			RoomID:    roomID,
			Type:      e.Type,
			Lot:       e.Lot,
			TeamID:    e.TeamID,
			Amount:    e.Amount,
			Skipped:   e.Skipped,
			Version:   version,
			Timestamp: at.UTC(),
		}
		if e.Item.ID != "" {
			item := e.Item
			ev.Item = &item
		}
		out = append(out, ev)
	}
	return out
}

type Sink interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Multi publishes to every sink and joins their errors.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                          { return nil }
