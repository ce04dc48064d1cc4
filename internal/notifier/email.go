package notifier

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/phuslu/log"
)

// ErrNotConfigured is returned when mail credentials are incomplete.
var ErrNotConfigured = errors.New("email not configured")

// EmailSender delivers the report over SMTP with implicit TLS.
type EmailSender struct {
	Host     string
	Port     int
	Sender   string
	AuthCode string
	Receiver string
	FromName string
	Timeout  time.Duration

	now func() time.Time
}

// NewEmailSender creates a sender.
func NewEmailSender(host string, port int, sender, authCode, receiver, fromName string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		Sender:   sender,
		AuthCode: authCode,
		Receiver: receiver,
		FromName: fromName,
		Timeout:  30 * time.Second,
		now:      time.Now,
	}
}

// Configured reports whether sender, auth code and receiver are all set.
func (e *EmailSender) Configured() bool {
	return e.Sender != "" && e.AuthCode != "" && e.Receiver != ""
}

// Send renders the markdown body to HTML and mails it once. It returns
// ErrNotConfigured without touching the network when credentials are missing.
func (e *EmailSender) Send(ctx context.Context, subject, body string) error {
	if !e.Configured() {
		log.Warn().Msg("email credentials incomplete, skipping delivery")
		return ErrNotConfigured
	}
	msg, err := e.BuildMessage(subject, body)
	if err != nil {
		return err
	}

	log.Info().Str("to", e.Receiver).Str("subject", subject).Msg("sending report email")
	if err := e.deliver(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	log.Info().Str("to", e.Receiver).Msg("report email sent")
	return nil
}

// BuildMessage assembles a multipart/alternative message carrying the raw
// markdown and the styled HTML.
func (e *EmailSender) BuildMessage(subject, body string) ([]byte, error) {
	now := time.Now()
	if e.now != nil {
		now = e.now()
	}
	page, err := RenderHTML(subject, body, now.Year())
	if err != nil {
		return nil, err
	}

	var h mail.Header
	h.SetDate(now)
	h.SetSubject(subject)
	h.SetAddressList("From", []*mail.Address{{Name: e.FromName, Address: e.Sender}})
	h.SetAddressList("To", []*mail.Address{{Address: e.Receiver}})

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create mail writer: %w", err)
	}
	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("create inline writer: %w", err)
	}
	for _, part := range []struct{ contentType, content string }{
		{"text/plain", body},
		{"text/html", page},
	} {
		var ph mail.InlineHeader
		ph.SetContentType(part.contentType, map[string]string{"charset": "utf-8"})
		ph.Set("Content-Transfer-Encoding", "base64")
		w, err := tw.CreatePart(ph)
		if err != nil {
			return nil, fmt.Errorf("create %s part: %w", part.contentType, err)
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("write %s part: %w", part.contentType, err)
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *EmailSender) deliver(ctx context.Context, msg []byte) error {
	addr := net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: e.Timeout},
		Config:    &tls.Config{ServerName: e.Host},
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	if e.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(e.Timeout))
	}

	client, err := smtp.NewClient(conn, e.Host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if err := client.Auth(smtp.PlainAuth("", e.Sender, e.AuthCode, e.Host)); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(e.Sender); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(e.Receiver); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}
	return client.Quit()
}
