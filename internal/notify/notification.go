package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind identifies the event a notification was produced for.
type Kind string

const (
	KindBookingReceived   Kind = "booking_received"
	KindBookingConfirmed  Kind = "booking_confirmed"
	KindBookingCompleted  Kind = "booking_completed"
	KindBookingCancelled  Kind = "booking_cancelled"
	KindOnboardingUpdate  Kind = "onboarding_status"
	KindAccountActivation Kind = "account_activation"
)

// Notification is the queued unit of work. ID is the idempotency key used
// by the delivery ledger.
type Notification struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	To      string `json:"to"`
	ToName  string `json:"to_name,omitempty"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

// Email converts the notification into a provider message.
func (n Notification) Email() EmailMessage {
	return EmailMessage{To: n.To, ToName: n.ToName, Subject: n.Subject, Body: n.Text, HTML: n.HTML}
}

func (n Notification) validate() error {
	if strings.TrimSpace(n.To) == "" {
		return fmt.Errorf("notify: recipient required")
	}
	if strings.TrimSpace(n.Subject) == "" {
		return fmt.Errorf("notify: subject required")
	}
	return nil
}

func encodeNotification(n Notification) (string, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("notify: encode notification: %w", err)
	}
	return string(raw), nil
}

func decodeNotification(body string) (Notification, error) {
	var n Notification
	if err := json.Unmarshal([]byte(body), &n); err != nil {
		return Notification{}, fmt.Errorf("notify: decode notification: %w", err)
	}
	if n.ID == "" {
		return Notification{}, fmt.Errorf("notify: notification missing id")
	}
	return n, nil
}
