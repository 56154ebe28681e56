package models

import "time"

// Виды писем.
const (
	KindWelcome = "welcome"
	KindDigest  = "digest"
)

// Content — отрендеренное письмо без адресата.
type Content struct {
	Subject string
	Text    string
	HTML    string
}

// Message — письмо одному получателю.
type Message struct {
	To      string
	Kind    string
	Subject string
	Text    string
	HTML    string
}

// NewMessage адресует отрендеренное письмо получателю.
func NewMessage(to, kind string, c Content) Message {
	return Message{
		To:      to,
		Kind:    kind,
		Subject: c.Subject,
		Text:    c.Text,
		HTML:    c.HTML,
	}
}

// Receipt подтверждает доставку письма транспортом.
type Receipt struct {
	Recipient string    `json:"recipient"`
	MessageID string    `json:"message_id"`
	SentAt    time.Time `json:"sent_at"`
}
