package notifier_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/jf-travel/pkg/events"
	"github.com/diagnosis/jf-travel/services/notify/internal/mailer"
	"github.com/diagnosis/jf-travel/services/notify/internal/notifier"
)

type mockMailer struct {
	sent    []mailer.Email
	sendErr error
}

func (m *mockMailer) Send(_ context.Context, email mailer.Email) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, email)
	return nil
}

func message(t *testing.T, subject string, payload interface{}) *events.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &events.Message{Subject: subject, Data: data, Timestamp: time.Now()}
}

func TestHandle_BookingCreated(t *testing.T) {
	m := &mockMailer{}
	n := notifier.New(m, "en")

	err := n.Handle(context.Background(), message(t, events.BookingCreated, events.BookingCreatedEvent{
		BookingID:    12,
		UserEmail:    "ada@example.com",
		UserName:     "Ada",
		TourName:     "Lagos Lagoon Cruise",
		TravelDate:   time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC),
		Travelers:    2,
		TotalPrice:   decimal.RequireFromString("2598"),
		Currency:     "NGN",
		DisplayTotal: "4,000,920.00 NGN",
	}))
	require.NoError(t, err)
	require.Len(t, m.sent, 1)

	email := m.sent[0]
	assert.Equal(t, "ada@example.com", email.ToEmail)
	assert.Equal(t, "Booking received: Lagos Lagoon Cruise", email.Subject)
	assert.Contains(t, email.Text, "#12")
	assert.Contains(t, email.Text, "2030-01-10")
	assert.Contains(t, email.Text, "4,000,920.00 NGN")
	assert.Contains(t, email.HTML, "<p>Hi Ada,</p>")
}

func TestHandle_StatusChangedEscapesHTML(t *testing.T) {
	m := &mockMailer{}
	n := notifier.New(m, "en")

	err := n.Handle(context.Background(), message(t, events.BookingStatusChanged, events.BookingStatusChangedEvent{
		BookingID: 3,
		UserEmail: "ada@example.com",
		TourName:  "<b>Safari</b>",
		From:      "pending",
		To:        "confirmed",
	}))
	require.NoError(t, err)
	require.Len(t, m.sent, 1)
	assert.Equal(t, "Booking confirmed: <b>Safari</b>", m.sent[0].Subject)
	assert.Contains(t, m.sent[0].Text, "Hi there,")
	assert.NotContains(t, m.sent[0].HTML, "<b>")
}

func TestHandle_DepositSettled(t *testing.T) {
	m := &mockMailer{}
	n := notifier.New(m, "en")

	ev := events.DepositEvent{
		ReferenceID: "ref-1",
		UserEmail:   "ada@example.com",
		Amount:      decimal.RequireFromString("92"),
		Currency:    "EUR",
		Status:      "success",
	}
	require.NoError(t, n.Handle(context.Background(), message(t, events.DepositSettled, ev)))

	ev.Status = "failed"
	require.NoError(t, n.Handle(context.Background(), message(t, events.DepositSettled, ev)))

	require.Len(t, m.sent, 2)
	assert.Equal(t, "Deposit received", m.sent[0].Subject)
	assert.Contains(t, m.sent[0].Text, "92.00 EUR")
	assert.Equal(t, "Deposit failed", m.sent[1].Subject)
}

func TestHandle_SkipsMissingRecipient(t *testing.T) {
	m := &mockMailer{}
	n := notifier.New(m, "en")

	err := n.Handle(context.Background(), message(t, events.BookingStatusChanged, events.BookingStatusChangedEvent{BookingID: 1}))
	require.NoError(t, err)
	assert.Empty(t, m.sent)
}

func TestHandle_Errors(t *testing.T) {
	m := &mockMailer{sendErr: errors.New("smtp down")}
	n := notifier.New(m, "en")

	err := n.Handle(context.Background(), &events.Message{Subject: events.TourCreated, Data: []byte(`{}`)})
	assert.ErrorIs(t, err, notifier.ErrUnhandledSubject)

	err = n.Handle(context.Background(), &events.Message{Subject: events.BookingCreated, Data: []byte(`{`)})
	assert.Error(t, err)

	err = n.Handle(context.Background(), message(t, events.BookingCreated, events.BookingCreatedEvent{UserEmail: "ada@example.com"}))
	assert.ErrorContains(t, err, "smtp down")
}
