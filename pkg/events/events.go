package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"

	"github.com/diagnosis/jf-travel/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url, name string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(toMessage(msg))
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(toMessage(msg))
	})
	return err
}

// Drain lets in-flight handlers finish before the connection closes.
func (n *NATSEventBus) Drain() error {
	return n.conn.Drain()
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

func toMessage(msg *nats.Msg) *Message {
	now := time.Now()
	return &Message{
		Subject:   msg.Subject,
		Data:      msg.Data,
		Timestamp: now,
		ID:        fmt.Sprintf("%d", now.UnixNano()),
	}
}

// NopBus drops every event. Used when NATS is unreachable at startup and in tests.
type NopBus struct{}

func (NopBus) Publish(context.Context, string, interface{}) error  { return nil }
func (NopBus) Subscribe(string, func(*Message)) error              { return nil }
func (NopBus) QueueSubscribe(string, string, func(*Message)) error { return nil }
func (NopBus) Close() error                                        { return nil }

// Subjects
const (
	BookingCreated       = "booking.created"
	BookingStatusChanged = "booking.status_changed"
	BookingDeleted       = "booking.deleted"

	TourCreated = "tour.created"
	TourUpdated = "tour.updated"
	TourDeleted = "tour.deleted"

	RateChanged = "rate.changed"

	DepositCreated = "deposit.created"
	DepositSettled = "deposit.settled"

	UserSignedUp = "user.signed_up"
)

// Event payloads
type BookingCreatedEvent struct {
	BookingID    int64           `json:"booking_id"`
	UserID       int64           `json:"user_id"`
	UserEmail    string          `json:"user_email"`
	UserName     string          `json:"user_name"`
	TourID       int64           `json:"tour_id"`
	TourName     string          `json:"tour_name"`
	TravelDate   time.Time       `json:"travel_date"`
	Travelers    int             `json:"travelers"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Currency     string          `json:"currency"`
	DisplayTotal string          `json:"display_total"`
	CreatedAt    time.Time       `json:"created_at"`
}

type BookingStatusChangedEvent struct {
	BookingID int64     `json:"booking_id"`
	UserID    int64     `json:"user_id"`
	UserEmail string    `json:"user_email"`
	UserName  string    `json:"user_name"`
	TourName  string    `json:"tour_name"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ChangedBy int64     `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

type BookingDeletedEvent struct {
	BookingID int64     `json:"booking_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

type TourEvent struct {
	TourID int64  `json:"tour_id"`
	Name   string `json:"name"`
}

type RateChangedEvent struct {
	Code    string          `json:"code"`
	Rate    decimal.Decimal `json:"rate"`
	Deleted bool            `json:"deleted"`
}

type DepositEvent struct {
	DepositID   int64           `json:"deposit_id"`
	ReferenceID string          `json:"reference_id"`
	UserID      int64           `json:"user_id"`
	UserEmail   string          `json:"user_email"`
	UserName    string          `json:"user_name"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	Credited    decimal.Decimal `json:"credited"`
	At          time.Time       `json:"at"`
}

type UserSignedUpEvent struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}
