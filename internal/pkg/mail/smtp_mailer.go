package mail

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/plateful/plateful/internal/pkg/env"
)

// SendMail delivers one HTML email over SMTP. Order notifications are
// transactional; the caller decides whether a delivery failure matters.
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "587")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "orders@localhost")

	if host == "" {
		return errors.New("SMTP_HOST is not configured")
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("recipient address is empty")
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	if err := smtp.SendMail(addr, auth, sender, []string{to}, msg); err != nil {
		log.Errorf("[Mail] sending to %s via %s failed: %v", to, addr, err)
		return err
	}
	log.Infof("[Mail] sent %q to %s", subject, to)
	return nil
}
