package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/diagnosis/jf-travel/pkg/events"
	"github.com/diagnosis/jf-travel/pkg/logger"
	"github.com/diagnosis/jf-travel/pkg/money"
	"github.com/diagnosis/jf-travel/services/notify/internal/mailer"
)

// Subjects the notifier handles.
var Subjects = []string{
	events.BookingCreated,
	events.BookingStatusChanged,
	events.DepositSettled,
}

var ErrUnhandledSubject = errors.New("unhandled subject")

// Notifier turns domain events into e-mails.
type Notifier struct {
	mailer mailer.Service
	locale string
}

func New(m mailer.Service, locale string) *Notifier {
	return &Notifier{mailer: m, locale: locale}
}

// Handle decodes msg and sends the matching e-mail. Events without a
// recipient address are skipped.
func (n *Notifier) Handle(ctx context.Context, msg *events.Message) error {
	email, err := n.compose(msg)
	if err != nil {
		return err
	}
	if email == nil {
		logger.DebugContext(ctx, "Event has no recipient", "subject", msg.Subject)
		return nil
	}
	if err := n.mailer.Send(ctx, *email); err != nil {
		return fmt.Errorf("send %s e-mail: %w", msg.Subject, err)
	}
	logger.InfoContext(ctx, "Notification sent", "subject", msg.Subject, "to", email.ToEmail)
	return nil
}

func (n *Notifier) compose(msg *events.Message) (*mailer.Email, error) {
	switch msg.Subject {
	case events.BookingCreated:
		var ev events.BookingCreatedEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", msg.Subject, err)
		}
		if ev.UserEmail == "" {
			return nil, nil
		}
		total := ev.DisplayTotal
		if total == "" {
			total = money.Format(ev.TotalPrice, ev.Currency, n.locale)
		}
		lines := []string{
			fmt.Sprintf("Hi %s,", greetingName(ev.UserName)),
			fmt.Sprintf("Your booking #%d for %s has been received.", ev.BookingID, ev.TourName),
			fmt.Sprintf("Travel date: %s", ev.TravelDate.Format("2006-01-02")),
			fmt.Sprintf("Travelers: %d", ev.Travelers),
			fmt.Sprintf("Total: %s", total),
			"We will confirm it shortly.",
		}
		return build(ev.UserEmail, ev.UserName, "Booking received: "+ev.TourName, lines), nil

	case events.BookingStatusChanged:
		var ev events.BookingStatusChangedEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", msg.Subject, err)
		}
		if ev.UserEmail == "" {
			return nil, nil
		}
		lines := []string{
			fmt.Sprintf("Hi %s,", greetingName(ev.UserName)),
			fmt.Sprintf("Your booking #%d for %s is now %s.", ev.BookingID, ev.TourName, ev.To),
		}
		return build(ev.UserEmail, ev.UserName, fmt.Sprintf("Booking %s: %s", ev.To, ev.TourName), lines), nil

	case events.DepositSettled:
		var ev events.DepositEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", msg.Subject, err)
		}
		if ev.UserEmail == "" {
			return nil, nil
		}
		amount := money.Format(ev.Amount, ev.Currency, n.locale)
		lines := []string{fmt.Sprintf("Hi %s,", greetingName(ev.UserName))}
		subject := "Deposit failed"
		if ev.Status == "success" {
			subject = "Deposit received"
			lines = append(lines, fmt.Sprintf("Your deposit of %s (ref %s) has been credited to your wallet.", amount, ev.ReferenceID))
		} else {
			lines = append(lines, fmt.Sprintf("Your deposit of %s (ref %s) could not be completed.", amount, ev.ReferenceID))
		}
		return build(ev.UserEmail, ev.UserName, subject, lines), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnhandledSubject, msg.Subject)
}

func greetingName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}

func build(to, name, subject string, lines []string) *mailer.Email {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(l))
		b.WriteString("</p>")
	}
	return &mailer.Email{
		ToEmail: to,
		ToName:  name,
		Subject: subject,
		Text:    strings.Join(lines, "\n"),
		HTML:    b.String(),
	}
}
