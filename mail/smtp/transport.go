package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/mailer/mail"
)

var _ mail.Transport = (*Transport)(nil)

// Transport delivers messages through an SMTP relay.
type Transport struct {
	mail.LastResult

	cfg    Config
	policy mail.Policy
}

// New creates an SMTP Transport.
func New(cfg Config, policy mail.Policy) *Transport {
	return &Transport{
		cfg:    cfg,
		policy: policy,
	}
}

// Send performs one synchronous delivery attempt against the relay.
// Relay refusals land in the attempt's error list; the envelope is logged
// on every attempt, stripped of body and attachment content.
func (t *Transport) Send(ctx context.Context, msg *mail.Message) error {
	ctx, span := tracer.Start(ctx, "SMTP.Send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var result mail.DeliveryResult
	err := t.send(ctx, msg, &result)
	t.Store(result)
	mail.RecordSend(ctx, "smtp", err != nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (t *Transport) send(ctx context.Context, msg *mail.Message, result *mail.DeliveryResult) error {
	t.policy.ApplyDefaults(msg)

	env, err := mail.BuildEnvelope(msg)
	if err != nil {
		return mail.WrapDelivery(err)
	}
	t.policy.ApplyDebugMode(env)

	if env.From == "" {
		return mail.WrapDelivery(errors.New("no from address specified"))
	}
	recipients := splitAddresses(env.To)
	recipients = append(recipients, splitAddresses(env.Cc)...)
	recipients = append(recipients, splitAddresses(env.Bcc)...)
	if len(recipients) == 0 {
		return mail.WrapDelivery(errors.New("no recipients specified"))
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("smtp.host", t.cfg.Host),
		attribute.Int("smtp.port", t.cfg.Port),
		attribute.Bool("smtp.tls", t.cfg.TLS),
		attribute.Int("smtp.recipient_count", len(recipients)),
	)

	raw, err := buildMessage(env)
	if err != nil {
		return mail.WrapDelivery(err)
	}

	addr := fmt.Sprintf("%s:%d", t.cfg.Host, t.cfg.Port)
	var auth smtp.Auth
	if t.cfg.Username != "" {
		auth = smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
	}

	if t.cfg.TLS {
		err = t.sendWithTLS(ctx, addr, auth, env.From, recipients, raw)
	} else {
		err = smtp.SendMail(addr, auth, env.From, recipients, raw)
	}
	if err != nil {
		result.Record(err.Error())
	}

	t.policy.LogMail(ctx, env.Subject, env.Loggable(), len(result.Errors))

	if !result.Succeeded() {
		return mail.ServerErrors(*result)
	}
	return nil
}

// sendWithTLS speaks the SMTP dialogue by hand so STARTTLS can be
// negotiated when the relay offers it.
func (t *Transport) sendWithTLS(ctx context.Context, addr string, auth smtp.Auth, from string, recipients []string, raw []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	client, err := smtp.Dial(addr)
	if err != nil {
		return errors.Wrap(err, "failed to connect to SMTP server")
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{
			ServerName:         t.cfg.Host,
			InsecureSkipVerify: t.cfg.Insecure, // #nosec G402 -- controlled by config, user's responsibility
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return errors.Wrap(err, "failed to start TLS")
		}
	}

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return errors.Wrap(err, "failed to authenticate")
		}
	}

	if err := client.Mail(from); err != nil {
		return errors.Wrap(err, "failed to set sender")
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return errors.Wrapf(err, "failed to set recipient: %s", rcpt)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return errors.Wrap(err, "failed to open data writer")
	}
	if _, err := writer.Write(raw); err != nil {
		return errors.Wrap(err, "failed to write message")
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, "failed to close data writer")
	}

	return client.Quit()
}

func splitAddresses(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, ",")
}
