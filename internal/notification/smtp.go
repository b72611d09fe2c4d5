package notification

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/wneessen/go-mail"
)

const defaultSMTPTimeout = 30 * time.Second

// SMTPTransport delivers mail via SMTP using the go-mail library. A new
// connection is dialed for every message, so the transport is safe for
// concurrent use.
type SMTPTransport struct {
	config SMTPConfig
}

// NewSMTPTransport creates a new SMTPTransport with the given configuration.
func NewSMTPTransport(config SMTPConfig) *SMTPTransport {
	if config.Timeout <= 0 {
		config.Timeout = defaultSMTPTimeout
	}
	return &SMTPTransport{config: config}
}

// Name returns the transport identifier.
func (t *SMTPTransport) Name() string { return "smtp" }

// Send delivers msg using the configured SMTP server.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	m, err := t.buildMsg(msg)
	if err != nil {
		return &TransportError{Transport: t.Name(), Code: CodeNotFound, Err: err}
	}

	c, err := mail.NewClient(t.config.Host, t.clientOptions()...)
	if err != nil {
		return &TransportError{
			Transport: t.Name(),
			Code:      CodeUnknown,
			Err:       errors.Wrap(err, "creating mail client"),
		}
	}

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return NewTransportError(t.Name(), err)
	}
	return nil
}

func (t *SMTPTransport) buildMsg(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(t.config.FromAddr); err != nil {
		return nil, errors.Wrapf(err, "invalid from address %q", t.config.FromAddr)
	}
	if err := m.To(msg.To); err != nil {
		return nil, errors.Wrapf(err, "invalid recipient %q", msg.To)
	}
	m.Subject(msg.Subject)

	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	case msg.HTML != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
	}
	return m, nil
}

func (t *SMTPTransport) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(t.config.Port),
		mail.WithTLSPolicy(tlsPolicyFromEncryption(t.config.Encryption)),
		mail.WithTimeout(t.config.Timeout),
	}
	if t.config.Encryption == "ssl_tls" {
		opts = append(opts, mail.WithSSL())
	}
	if t.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.config.Username),
			mail.WithPassword(t.config.Password),
		)
	}
	return opts
}

// tlsPolicyFromEncryption converts the encryption string to a go-mail TLSPolicy.
func tlsPolicyFromEncryption(enc string) mail.TLSPolicy {
	switch enc {
	case "ssl_tls":
		return mail.TLSMandatory
	case "starttls":
		return mail.TLSOpportunistic
	default:
		return mail.NoTLS
	}
}
