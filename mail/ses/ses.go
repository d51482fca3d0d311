// Package ses implements a mail.Transport that delivers messages via the
// AWS SES v2 API.
package ses

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pure-golang/mailer/mail"
)

// Config contains AWS connection parameters. When the static credentials
// are empty the default AWS credential chain is used.
type Config struct {
	Region          string `envconfig:"AWS_REGION" default:"us-east-1"`
	AccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`
}

// SendEmailAPI is the slice of the SES v2 client the transport uses.
// Tests swap in mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

var _ mail.Transport = (*Transport)(nil)

// Transport delivers messages through AWS SES v2.
type Transport struct {
	mail.LastResult

	policy mail.Policy
	client SendEmailAPI
}

// New creates a Transport backed by a real SES client.
func New(ctx context.Context, cfg Config, policy mail.Policy) (*Transport, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	return NewWithClient(policy, sesv2.NewFromConfig(awsCfg)), nil
}

// NewWithClient creates a Transport with a custom client, used for testing.
func NewWithClient(policy mail.Policy, client SendEmailAPI) *Transport {
	return &Transport{
		policy: policy,
		client: client,
	}
}

// Send performs one synchronous delivery attempt. Messages without
// attachments use the SES simple content shape; messages with attachments
// are rendered as raw MIME. SES call failures land in the attempt's
// error list; the envelope is logged on every attempt.
func (t *Transport) Send(ctx context.Context, msg *mail.Message) error {
	ctx, span := tracer.Start(ctx, "SES.Send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var result mail.DeliveryResult
	err := t.send(ctx, msg, &result)
	t.Store(result)
	mail.RecordSend(ctx, "ses", err != nil)

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

	var input *sesv2.SendEmailInput
	if len(env.Attachments) > 0 {
		raw, err := buildRawMessage(env)
		if err != nil {
			return mail.WrapDelivery(err)
		}
		input = &sesv2.SendEmailInput{
			FromEmailAddress: aws.String(env.From),
			Destination:      buildDestination(env),
			Content: &types.EmailContent{
				Raw: &types.RawMessage{Data: raw},
			},
		}
	} else {
		input = buildSimpleInput(env)
	}

	if _, err := t.client.SendEmail(ctx, input); err != nil {
		result.Record(err.Error())
	}

	t.policy.LogMail(ctx, env.Subject, env.Loggable(), len(result.Errors))

	if !result.Succeeded() {
		return mail.ServerErrors(*result)
	}
	return nil
}

func buildDestination(env *mail.Envelope) *types.Destination {
	return &types.Destination{
		ToAddresses:  splitAddresses(env.To),
		CcAddresses:  splitAddresses(env.Cc),
		BccAddresses: splitAddresses(env.Bcc),
	}
}

// buildSimpleInput maps the envelope onto the SES simple content shape.
func buildSimpleInput(env *mail.Envelope) *sesv2.SendEmailInput {
	body := &types.Body{}
	if env.HTML != "" {
		body.Html = &types.Content{
			Data:    aws.String(env.HTML),
			Charset: aws.String("UTF-8"),
		}
	}
	if env.Text != "" {
		body.Text = &types.Content{
			Data:    aws.String(env.Text),
			Charset: aws.String("UTF-8"),
		}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(env.From),
		Destination:      buildDestination(env),
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(env.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: body,
			},
		},
	}
	if env.ReplyTo != "" {
		input.ReplyToAddresses = []string{env.ReplyTo}
	}
	return input
}

// buildRawMessage constructs a raw MIME message for envelopes with
// attachments.
func buildRawMessage(env *mail.Envelope) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", env.From)
	if env.To != "" {
		fmt.Fprintf(&buf, "To: %s\r\n", strings.ReplaceAll(env.To, ",", ", "))
	}
	if env.Cc != "" {
		fmt.Fprintf(&buf, "Cc: %s\r\n", strings.ReplaceAll(env.Cc, ",", ", "))
	}
	if env.ReplyTo != "" {
		fmt.Fprintf(&buf, "Reply-To: %s\r\n", env.ReplyTo)
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", env.Subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	bodyHeader := make(textproto.MIMEHeader)
	bodyContent := env.Text
	bodyType := "text/plain; charset=UTF-8"
	if env.HTML != "" {
		bodyContent = env.HTML
		bodyType = "text/html; charset=UTF-8"
	}
	bodyHeader.Set("Content-Type", bodyType)
	part, err := writer.CreatePart(bodyHeader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create body part")
	}
	if _, err := part.Write([]byte(bodyContent)); err != nil {
		return nil, errors.Wrap(err, "failed to write body part")
	}

	for _, att := range env.Attachments {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Type", att.ContentType)
		header.Set("Content-Transfer-Encoding", "base64")
		header.Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%s", mime.QEncoding.Encode("UTF-8", att.Name)))

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create attachment part %q", att.Name)
		}
		if _, err := part.Write([]byte(encodeBase64WithLineBreaks(att.Content))); err != nil {
			return nil, errors.Wrapf(err, "failed to write attachment %q", att.Name)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to close mixed writer")
	}
	return buf.Bytes(), nil
}

// encodeBase64WithLineBreaks encodes bytes to base64 with 76-character
// line breaks per RFC 2045.
func encodeBase64WithLineBreaks(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var lines []string
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		lines = append(lines, encoded[i:end])
	}
	return strings.Join(lines, "\r\n")
}

func splitAddresses(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, ",")
}
