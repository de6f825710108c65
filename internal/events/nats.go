package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSSink publishes each event on auction.events.<room>.<type>.
type NATSSink struct {
	conn *nats.Conn
}

func NewNATSSink(url string) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.Name("auction-backend"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSSink{conn: conn}, nil
}

func Subject(ev Event) string {
	return fmt.Sprintf("auction.events.%s.%s", ev.RoomID, ev.Type)
}

func (s *NATSSink) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := s.conn.Publish(Subject(ev), data); err != nil {
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}
	return nil
}

func (s *NATSSink) Close() error {
	return s.conn.Drain()
}
