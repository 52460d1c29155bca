// Package email sends plain-text mail over SMTP.
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a send when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

// Server holds SMTP connection settings.
type Server struct {
	Host     string
	Port     int
	Username string
	Password string
}

func (s Server) configured() bool {
	return s.Host != "" && s.Port != 0 && s.Username != "" && s.Password != ""
}

// BuildMessage renders RFC 5322 headers and a plain-text body.
func BuildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", sanitizeHeader(from))
	fmt.Fprintf(&b, "To: %s\r\n", sanitizeHeader(to))
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// Send delivers one message to a single recipient. The whole SMTP exchange
// is bounded by ctx, or by DefaultTimeout when ctx has no deadline.
func Send(ctx context.Context, srv Server, to, subject, body string) error {
	if !strings.Contains(to, "@") || strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("invalid email address: %s", to)
	}
	if !srv.configured() {
		return fmt.Errorf("missing Email configuration: SMTPServer, SMTPPort, Username, or Password is empty")
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	addr := net.JoinHostPort(srv.Host, strconv.Itoa(srv.Port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server %s: %w", addr, err)
	}
	deadline, _ := ctx.Deadline()
	_ = conn.SetDeadline(deadline)
	// cancellation unblocks any pending read or write
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := deliver(conn, srv, to, BuildMessage(srv.Username, to, subject, body)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("failed to send email to %s: %w", to, ctxErr)
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return fmt.Errorf("failed to send email to %s: %w", to, context.DeadlineExceeded)
		}
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func deliver(conn net.Conn, srv Server, to string, msg []byte) error {
	c, err := smtp.NewClient(conn, srv.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: srv.Host}); err != nil {
			return err
		}
	}
	if ok, _ := c.Extension("AUTH"); ok {
		if err := c.Auth(smtp.PlainAuth("", srv.Username, srv.Password, srv.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(srv.Username); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
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

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
