package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// SMTPConfig holds mail relay settings. Auth is skipped when User is empty.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	User     string
	Password string
}

type sendMailFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email sends one message addressed to every email destination.
type Email struct {
	cfg      SMTPConfig
	addr     string
	auth     smtp.Auth
	subject  string
	body     string
	sendMail sendMailFunc
}

func NewEmail(cfg SMTPConfig, message string) *Email {
	e := &Email{
		cfg:      cfg,
		addr:     cfg.Host + ":" + strconv.Itoa(cfg.Port),
		subject:  message,
		body:     message,
		sendMail: sendMailContext,
	}
	if cfg.User != "" {
		e.auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	return e
}

func (e *Email) Name() string { return "email" }

func (e *Email) Accepts(destination string) bool { return strings.Contains(destination, "@") }

// Send blocks until the relay answers or ctx is done. The connection is
// closed when ctx ends, so no delivery outlives the caller.
func (e *Email) Send(ctx context.Context, to []string) error {
	from := e.cfg.From
	if from == "" {
		from = e.cfg.User
	}
	msg := buildMessage(from, to, e.subject, e.body)
	if err := e.sendMail(ctx, e.addr, e.auth, from, to, msg); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return fmt.Errorf("send email: %w", cerr)
		}
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// sendMailContext is smtp.SendMail bound to ctx. It upgrades to STARTTLS
// when the server offers it.
func sendMailContext(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	// Closing the conn unblocks any pending read or write once ctx ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer c.Close()
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
