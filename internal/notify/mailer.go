package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/AnriTapel/logitrades/internal/config"
)

const queueSize = 64

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type sendFunc func(msg Message) error

// Mailer delivers account emails from a background queue. Enqueueing never
// blocks the caller and delivery errors are only logged.
type Mailer struct {
	from        string
	frontendURL string
	queue       chan Message
	send        sendFunc
	logger      *slog.Logger
}

func NewMailer(smtpCfg config.SMTPConfig, from, frontendURL string, logger *slog.Logger) *Mailer {
	m := &Mailer{
		from:        from,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		queue:       make(chan Message, queueSize),
		logger:      logger,
	}
	if smtpCfg.Host == "" {
		m.send = m.logOnly
		return m
	}
	send, err := smtpSender(smtpCfg, from)
	if err != nil {
		logger.Error("smtp disabled, emails will only be logged", "host", smtpCfg.Host, "err", err)
		m.send = m.logOnly
		return m
	}
	m.send = send
	return m
}

func (m *Mailer) SendVerification(to, username, token string) {
	link := m.link("/verify-email", token)
	m.enqueue(to, "Verify your email - LogiTrades", username, link, verificationText, verificationHTML)
}

func (m *Mailer) SendPasswordReset(to, username, token string) {
	link := m.link("/reset-password", token)
	m.enqueue(to, "Reset your password - LogiTrades", username, link, resetText, resetHTML)
}

func (m *Mailer) link(path, token string) string {
	return m.frontendURL + path + "?token=" + url.QueryEscape(token)
}

type executor interface {
	Execute(w io.Writer, data any) error
}

func (m *Mailer) enqueue(to, subject, username, link string, text, html executor) {
	data := linkData{Username: username, URL: link}
	var textBuf, htmlBuf bytes.Buffer
	if err := text.Execute(&textBuf, data); err != nil {
		m.logger.Error("render email", "subject", subject, "err", err)
		return
	}
	if err := html.Execute(&htmlBuf, data); err != nil {
		m.logger.Error("render email", "subject", subject, "err", err)
		return
	}

	msg := Message{To: to, Subject: subject, Text: textBuf.String(), HTML: htmlBuf.String()}
	select {
	case m.queue <- msg:
	default:
		m.logger.Warn("email queue full, dropping message", "to", to, "subject", subject)
	}
}

func (m *Mailer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-m.queue:
			if err := m.send(msg); err != nil {
				m.logger.Error("send email failed", "to", msg.To, "subject", msg.Subject, "err", err)
				continue
			}
			m.logger.Info("email sent", "to", msg.To, "subject", msg.Subject)
		}
	}
}

func (m *Mailer) logOnly(msg Message) error {
	m.logger.Info("smtp not configured, email not sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

func smtpSender(cfg config.SMTPConfig, from string) (sendFunc, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return func(msg Message) error {
		m, err := buildMessage(from, msg)
		if err != nil {
			return err
		}
		if err := client.DialAndSend(m); err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	}, nil
}

// buildMessage renders a multipart/alternative message with text and HTML parts.
func buildMessage(from string, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat("LogiTrades", from); err != nil {
		return nil, fmt.Errorf("email sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("email recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}
