package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/Dosada05/tournament-tracker/config"
)

// Notifier delivers an HTML message. Bcc recipients are not listed in the
// message headers.
type Notifier interface {
	Send(ctx context.Context, to, bcc []string, subject, htmlBody string) error
}

type SMTPNotifier struct {
	cfg *config.Config
}

func NewSMTPNotifier(cfg *config.Config) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

func (s *SMTPNotifier) from() string {
	addr := mail.Address{Name: s.cfg.SenderName, Address: s.cfg.SenderEmail}
	return addr.String()
}

func (s *SMTPNotifier) buildMessage(to []string, subject, body string) []byte {
	toHeader := "undisclosed-recipients:;"
	if len(to) > 0 {
		toHeader = strings.Join(to, ", ")
	}
	return []byte("To: " + toHeader + "\r\n" +
		"From: " + s.from() + "\r\n" +
		"Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n" +
		"MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")
}

func (s *SMTPNotifier) Send(ctx context.Context, to, bcc []string, subject, htmlBody string) error {
	if len(to)+len(bcc) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	tlsconfig := &tls.Config{ServerName: s.cfg.SMTPHost}

	var client *smtp.Client
	if s.cfg.SMTPPort == 465 {
		// Implicit TLS.
		conn, err := tls.Dial("tcp", addr, tlsconfig)
		if err != nil {
			return fmt.Errorf("smtp tls dial: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			return fmt.Errorf("smtp client: %w", err)
		}
	} else {
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("smtp dial: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("smtp STARTTLS: %w", err)
		}
	}
	defer client.Quit()

	if s.cfg.SMTPUser != "" {
		auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.cfg.SenderEmail); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range append(append([]string{}, to...), bcc...) {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err = w.Write(s.buildMessage(to, subject, htmlBody)); err != nil {
		return fmt.Errorf("smtp write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("smtp close DATA: %w", err)
	}
	return nil
}

// LogNotifier writes notifications to the log instead of sending them. It is
// used when no SMTP host is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, to, bcc []string, subject, htmlBody string) error {
	n.logger.InfoContext(ctx, "notification",
		slog.Any("to", to),
		slog.Int("bcc_count", len(bcc)),
		slog.String("subject", subject),
		slog.Int("body_bytes", len(htmlBody)))
	return nil
}
