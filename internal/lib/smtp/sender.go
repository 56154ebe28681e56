package smtp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/market-digest/internal/lib/sl"
	"github.com/magabrotheeeer/market-digest/internal/models"
)

// Sender отправляет письма через SMTP, по одной сессии на письмо.
type Sender struct {
	dialer   Dialer
	from     mail.Address
	log      *slog.Logger
	newID    func() string
	now      func() time.Time
	hostname string
}

// NewSender создает новый экземпляр Sender.
func NewSender(dialer Dialer, from, fromName string, log *slog.Logger) *Sender {
	host := "localhost"
	if _, domain, ok := strings.Cut(from, "@"); ok && domain != "" {
		host = domain
	}
	return &Sender{
		dialer:   dialer,
		from:     mail.Address{Name: fromName, Address: from},
		log:      log,
		newID:    uuid.NewString,
		now:      time.Now,
		hostname: host,
	}
}

// Send отправляет письмо и возвращает его Message-ID.
func (s *Sender) Send(ctx context.Context, msg models.Message) (string, error) {
	const op = "smtp.Send"

	id := fmt.Sprintf("<%s@%s>", s.newID(), s.hostname)
	body, err := s.compose(id, msg)
	if err != nil {
		return "", fmt.Errorf("%s: compose: %w", op, err)
	}

	client, err := s.dialer.Connect(ctx)
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer client.Close()

	if err := client.Mail(s.from.Address); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", s.from.Address), sl.Err(err))
		return "", fmt.Errorf("%s: mail from: %w", op, err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		s.log.Error("failed to set RCPT TO", sl.Email(msg.To), sl.Err(err))
		return "", fmt.Errorf("%s: rcpt to: %w", op, err)
	}

	wc, err := client.Data()
	if err != nil {
		return "", fmt.Errorf("%s: data: %w", op, err)
	}
	if _, err = wc.Write(body); err != nil {
		return "", fmt.Errorf("%s: write body: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		return "", fmt.Errorf("%s: close data: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		s.log.Warn("failed to quit SMTP client", sl.Err(err))
	}

	s.log.Info("email sent successfully", sl.Email(msg.To), slog.String("message_id", id))
	return id, nil
}

// compose собирает письмо multipart/alternative с текстовой и HTML частями.
func (s *Sender) compose(id string, msg models.Message) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	headers := []string{
		"From: " + s.from.String(),
		"To: " + msg.To,
		"Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject),
		"Date: " + s.now().Format(time.RFC1123Z),
		"Message-ID: " + id,
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=\"" + mw.Boundary() + "\"",
		"",
		"",
	}
	head := strings.Join(headers, "\r\n")

	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=\"UTF-8\"", msg.Text},
		{"text/html; charset=\"UTF-8\"", msg.HTML},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	return append([]byte(head), buf.Bytes()...), nil
}
