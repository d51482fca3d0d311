package postmark

import (
	"context"
	"encoding/base64"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/mailer/mail"
)

var _ mail.Transport = (*Transport)(nil)

// Transport delivers messages through the Postmark API, applying the
// shared sending policy before every call.
type Transport struct {
	mail.LastResult

	cfg    Config
	policy mail.Policy
	client Client
}

// New creates a Transport talking to the real Postmark API.
func New(cfg Config, policy mail.Policy) *Transport {
	return NewWithClient(cfg, policy, NewHTTPClient(cfg))
}

// NewWithClient creates a Transport with a custom API client, used for testing.
func NewWithClient(cfg Config, policy mail.Policy, client Client) *Transport {
	return &Transport{
		cfg:    cfg,
		policy: policy,
		client: client,
	}
}

// Send performs one synchronous delivery attempt. Both provider failure
// channels feed the attempt's error list: an API call error
// (recorded as "<status>: <message> (<code>)") and a non-zero error code
// in an otherwise successful response. The envelope is logged on every
// attempt, stripped of body and attachment content.
func (t *Transport) Send(ctx context.Context, msg *mail.Message) error {
	ctx, span := tracer.Start(ctx, "Postmark.Send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var result mail.DeliveryResult
	err := t.send(ctx, msg, &result)
	t.Store(result)
	mail.RecordSend(ctx, "postmark", err != nil)

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

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("mail.from", env.From),
		attribute.String("mail.subject", env.Subject),
		attribute.Int("mail.attachment_count", len(env.Attachments)),
	)

	resp, err := t.client.SendEmail(ctx, t.wireEmail(ctx, env))
	if err != nil {
		result.Record(callErrorString(err))
	} else if resp.ErrorCode != 0 {
		result.Record(resp.Message)
	}

	t.policy.LogMail(ctx, env.Subject, env.Loggable(), len(result.Errors))

	if !result.Succeeded() {
		return mail.ServerErrors(*result)
	}
	return nil
}

// wireEmail maps the envelope onto Postmark's request shape: empty address
// strings become omitted JSON fields, attachments get base64-encoded, and
// headers the API refuses are dropped with a warning.
func (t *Transport) wireEmail(ctx context.Context, env *mail.Envelope) *Email {
	email := &Email{
		From:       env.From,
		To:         env.To,
		Cc:         env.Cc,
		Bcc:        env.Bcc,
		Subject:    env.Subject,
		HTMLBody:   env.HTML,
		TextBody:   env.Text,
		ReplyTo:    env.ReplyTo,
		TrackOpens: t.cfg.TrackOpens,
	}

	names := make([]string, 0, len(env.Headers))
	for name := range env.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.EqualFold(name, "Return-Path") {
			// Postmark manages the return path itself and rejects the header.
			t.policy.Logger().WarnContext(ctx, "dropping header unsupported by postmark", "header", name)
			continue
		}
		email.Headers = append(email.Headers, Header{Name: name, Value: env.Headers[name]})
	}

	for _, att := range env.Attachments {
		email.Attachments = append(email.Attachments, Attachment{
			Name:        att.Name,
			Content:     base64.StdEncoding.EncodeToString(att.Content),
			ContentType: att.ContentType,
		})
	}

	return email
}

// callErrorString formats the exception channel: API rejections carry
// status, message and Postmark error code; anything else (network,
// context cancellation) is reported verbatim.
func callErrorString(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}
