// Package mailer delivers rendered digests over SMTP.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"
)

const (
	implicitTLSPort = 465
	dialTimeout     = 30 * time.Second
)

// SMTPConfig describes the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sendHook allows tests to override SMTP delivery.
var sendHook = deliver

// SMTPMailer sends multipart/alternative digest mails.
type SMTPMailer struct {
	cfg    SMTPConfig
	logger *logrus.Entry
	now    func() time.Time
}

func NewSMTPMailer(cfg SMTPConfig, logger *logrus.Entry) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		logger: logger.WithField("component", "smtp_mailer"),
		now:    time.Now,
	}
}

// Send composes the message and delivers it to a single recipient.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, html, text string) error {
	if to == "" {
		return fmt.Errorf("no recipient address")
	}
	msg, err := m.compose(to, subject, html, text)
	if err != nil {
		return fmt.Errorf("composing mail to %s: %w", to, err)
	}
	if err := sendHook(ctx, m.cfg, to, msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	m.logger.WithField("to", to).Debug("Mail sent")
	return nil
}

func (m *SMTPMailer) compose(to, subject, html, text string) ([]byte, error) {
	from, err := mail.ParseAddress(m.cfg.From)
	if err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.cfg.From, err)
	}
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
	}

	var h mail.Header
	h.SetDate(m.now())
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", []*mail.Address{rcpt})
	h.SetSubject(subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	alt, err := mw.CreateInline()
	if err != nil {
		return nil, err
	}
	if err := writePart(alt, "text/plain", text); err != nil {
		return nil, err
	}
	if err := writePart(alt, "text/html", html); err != nil {
		return nil, err
	}
	if err := alt.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePart(alt *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := alt.CreatePart(ph)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, body); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// deliver uses implicit TLS on port 465 and STARTTLS otherwise.
func deliver(ctx context.Context, cfg SMTPConfig, to string, msg []byte) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	tlsConfig := &tls.Config{ServerName: cfg.Host}

	var (
		conn net.Conn
		err  error
	)
	if cfg.Port == implicitTLSPort {
		d := &tls.Dialer{NetDialer: &net.Dialer{Timeout: dialTimeout}, Config: tlsConfig}
		conn, err = d.DialContext(ctx, "tcp", addr)
	} else {
		d := &net.Dialer{Timeout: dialTimeout}
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	if cfg.Port != implicitTLSPort {
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("SMTP STARTTLS: %w", err)
		}
	}
	if cfg.Username != "" {
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth: %w", err)
		}
	}

	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return fmt.Errorf("invalid sender %q: %w", cfg.From, err)
	}
	if err := client.Mail(from.Address); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT TO: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing message body: %w", err)
	}
	return client.Quit()
}
