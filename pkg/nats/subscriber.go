package nats

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// MessageHandler processes one raw event payload.
type MessageHandler func(subject string, data []byte)

// Subscriber listens for events from NATS.
type Subscriber struct {
	nc   *nats.Conn
	subs []*nats.Subscription
}

func NewSubscriber(url string) (*Subscriber, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &Subscriber{nc: nc}, nil
}

// Subscribe registers a handler for a subject pattern (wildcards allowed).
func (s *Subscriber) Subscribe(subject string, handler MessageHandler) error {
	sub, err := s.nc.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}
