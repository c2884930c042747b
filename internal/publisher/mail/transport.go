package mail

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/smtp"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

type Transport interface {
	Send(ctx context.Context, from string, to []string, raw []byte) error
}

// SMTPTransport talks to a server that expects TLS from the first byte, such
// as smtp.gmail.com:465. Cancelling the context closes the connection, so a
// silent server cannot hold Send past the caller's deadline.
type SMTPTransport struct {
	Addr     string
	Username string
	Password string
	// TLSConfig overrides the default client config. ServerName is filled in
	// from Addr when empty.
	TLSConfig *tls.Config
}

func NewSMTPTransport(addr, username, password string) *SMTPTransport {
	return &SMTPTransport{Addr: addr, Username: username, Password: password}
}

func (t *SMTPTransport) Send(ctx context.Context, from string, to []string, raw []byte) error {
	host, _, err := net.SplitHostPort(t.Addr)
	if err != nil {
		return fmt.Errorf("smtp addr: %w", err)
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if t.TLSConfig != nil {
		tlsConfig = t.TLSConfig.Clone()
	}
	if tlsConfig.ServerName == "" {
		tlsConfig.ServerName = host
	}

	dialer := &tls.Dialer{Config: tlsConfig}
	conn, err := dialer.DialContext(ctx, "tcp", t.Addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	// errors after a cancellation are reported as the context error
	fail := func(op string, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return fmt.Errorf("%s: %w", op, cerr)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return fail("smtp client", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.Auth(smtp.PlainAuth("", t.Username, t.Password, host)); err != nil {
		return fail("smtp auth", err)
	}
	if err := c.Mail(from); err != nil {
		return fail("mail from", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fail("rcpt to "+rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fail("data", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fail("write", err)
	}
	if err := w.Close(); err != nil {
		return fail("close", err)
	}
	if err := c.Quit(); err != nil {
		return fail("quit", err)
	}
	return nil
}

// GmailAPITransport sends through the Gmail REST API with an OAuth refresh
// token instead of an app password.
type GmailAPITransport struct {
	config       *oauth2.Config
	refreshToken string
}

func NewGmailAPITransport(clientID, clientSecret, refreshToken string) (*GmailAPITransport, error) {
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, errors.New("gmail oauth configuration is incomplete")
	}
	return &GmailAPITransport{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{gmail.GmailSendScope},
			Endpoint:     google.Endpoint,
		},
		refreshToken: refreshToken,
	}, nil
}

func (t *GmailAPITransport) Send(ctx context.Context, from string, to []string, raw []byte) error {
	ts := t.config.TokenSource(ctx, &oauth2.Token{RefreshToken: t.refreshToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return fmt.Errorf("gmail service: %w", err)
	}

	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	if _, err := svc.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}
	return nil
}
