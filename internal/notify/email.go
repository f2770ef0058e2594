package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"eventbot/internal/config"
)

// EmailSender доставляет уведомление письмом через SMTP.
type EmailSender struct {
	cnf config.SMTP
}

func NewEmailSender(cnf config.SMTP) *EmailSender {
	return &EmailSender{cnf: cnf}
}

func (s *EmailSender) Configured() bool {
	return s.cnf.Server != "" && s.cnf.User != "" && s.cnf.Password != ""
}

func (s *EmailSender) Send(ctx context.Context, recipient int64, message string) error {
	if !s.Configured() {
		return fmt.Errorf("smtp канал не настроен")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// TODO: брать адрес из профиля получателя
	to := fmt.Sprintf("%d@example.com", recipient)

	var body strings.Builder
	fmt.Fprintf(&body, "From: %s\r\n", s.cnf.From)
	fmt.Fprintf(&body, "To: %s\r\n", to)
	fmt.Fprintf(&body, "Subject: %s\r\n", "Уведомление от EventBot")
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	body.WriteString("\r\n")
	body.WriteString(message)

	auth := smtp.PlainAuth("", s.cnf.User, s.cnf.Password, s.cnf.Server)
	addr := fmt.Sprintf("%s:%d", s.cnf.Server, s.cnf.Port)

	if err := smtp.SendMail(addr, auth, s.cnf.From, []string{to}, []byte(body.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
