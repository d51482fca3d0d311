package postmark

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pure-golang/mailer/logger/noop"
	"github.com/pure-golang/mailer/mail"
)

// mockClient implements Client for testing.
type mockClient struct {
	sendFn    func(ctx context.Context, email *Email) (*SendResponse, error)
	callCount int
	lastEmail *Email
}

func (m *mockClient) SendEmail(ctx context.Context, email *Email) (*SendResponse, error) {
	m.callCount++
	m.lastEmail = email
	if m.sendFn != nil {
		return m.sendFn(ctx, email)
	}
	return &SendResponse{MessageID: "test-message-id"}, nil
}

func testPolicy() mail.Policy {
	return mail.Policy{Log: noop.NewNoop()}
}

func testMessage() *mail.Message {
	return mail.NewMessage().
		SetFrom(mail.Address{Email: "from@example.com"}).
		AddTo(mail.Address{Email: "to@example.com"}).
		SetSubject("hello").
		SetTextBody("hello world")
}

func TestTransport_Send_Success(t *testing.T) {
	mock := &mockClient{}
	transport := NewWithClient(Config{}, testPolicy(), mock)

	err := transport.Send(context.Background(), testMessage())

	require.NoError(t, err)
	assert.Empty(t, transport.Errors())
	require.Equal(t, 1, mock.callCount)
	assert.Equal(t, "from@example.com", mock.lastEmail.From)
	assert.Equal(t, "to@example.com", mock.lastEmail.To)
	assert.Equal(t, "hello", mock.lastEmail.Subject)
	assert.Equal(t, "hello world", mock.lastEmail.TextBody)
	assert.Empty(t, mock.lastEmail.HTMLBody)
}

func TestTransport_Send_DefaultFromInjected(t *testing.T) {
	mock := &mockClient{}
	policy := testPolicy()
	policy.DefaultFrom = &mail.Address{Email: "default@example.com"}
	transport := NewWithClient(Config{}, policy, mock)

	msg := mail.NewMessage().
		AddTo(mail.Address{Email: "to@example.com"}).
		SetTextBody("hi")

	require.NoError(t, transport.Send(context.Background(), msg))

	assert.Equal(t, "default@example.com", mock.lastEmail.From)
	require.NotNil(t, msg.From, "default injection must stay visible on the caller's message")
	assert.Equal(t, "default@example.com", msg.From.Email)
}

func TestTransport_Send_CallerFromPreserved(t *testing.T) {
	mock := &mockClient{}
	policy := testPolicy()
	policy.DefaultFrom = &mail.Address{Email: "default@example.com"}
	transport := NewWithClient(Config{}, policy, mock)

	require.NoError(t, transport.Send(context.Background(), testMessage()))

	assert.Equal(t, "from@example.com", mock.lastEmail.From)
}

func TestTransport_Send_DefaultBccAdditive(t *testing.T) {
	mock := &mockClient{}
	policy := testPolicy()
	policy.DefaultBcc = &mail.Address{Email: "archive@example.com"}
	transport := NewWithClient(Config{}, policy, mock)

	msg := testMessage().AddBcc(mail.Address{Email: "caller-bcc@example.com"})

	require.NoError(t, transport.Send(context.Background(), msg))

	assert.Equal(t, "caller-bcc@example.com,archive@example.com", mock.lastEmail.Bcc)
}

func TestTransport_Send_HTMLBodySelection(t *testing.T) {
	mock := &mockClient{}
	transport := NewWithClient(Config{}, testPolicy(), mock)

	msg := testMessage().SetHTMLBody("<p>hello</p>")

	require.NoError(t, transport.Send(context.Background(), msg))

	assert.Equal(t, "<p>hello</p>", mock.lastEmail.HTMLBody)
	assert.Empty(t, mock.lastEmail.TextBody, "html message without alternative carries no text body")
}

func TestTransport_Send_HTMLWithAlternative(t *testing.T) {
	mock := &mockClient{}
	transport := NewWithClient(Config{}, testPolicy(), mock)

	msg := testMessage().SetHTMLBody("<p>hello</p>")
	require.NoError(t, msg.SetAlternative("hello"))

	require.NoError(t, transport.Send(context.Background(), msg))

	assert.Equal(t, "<p>hello</p>", mock.lastEmail.HTMLBody)
	assert.Equal(t, "hello", mock.lastEmail.TextBody)
}

func TestTransport_Send_Attachments(t *testing.T) {
	mock := &mockClient{}
	transport := NewWithClient(Config{}, testPolicy(), mock)

	msg := testMessage().SetHTMLBody("<p>hello</p>")
	require.NoError(t, msg.SetAlternative("hello"))
	require.NoError(t, msg.Attach("report.pdf", "application/pdf", []byte("pdf bytes")))

	require.NoError(t, transport.Send(context.Background(), msg))

	require.Len(t, mock.lastEmail.Attachments, 1)
	att := mock.lastEmail.Attachments[0]
	assert.Equal(t, "report.pdf", att.Name)
	assert.Equal(t, "application/pdf", att.ContentType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("pdf bytes")), att.Content)

	assert.NotContains(t, mock.lastEmail.HTMLBody, "pdf bytes")
	assert.NotContains(t, mock.lastEmail.TextBody, "pdf bytes")
}

func TestTransport_Send_DebugMode(t *testing.T) {
	mock := &mockClient{}
	policy := testPolicy()
	policy.DebugTo = &mail.Address{Email: "debug@example.com"}
	transport := NewWithClient(Config{}, policy, mock)

	msg := testMessage().
		AddTo(mail.Address{Email: "to2@example.com"}).
		AddCc(mail.Address{Email: "cc@example.com"}).
		AddBcc(mail.Address{Email: "bcc@example.com"})

	require.NoError(t, transport.Send(context.Background(), msg))

	assert.Equal(t, "debug@example.com", mock.lastEmail.To)
	assert.Empty(t, mock.lastEmail.Cc)
	assert.Empty(t, mock.lastEmail.Bcc)
	assert.Contains(t, mock.lastEmail.TextBody, "to@example.com,to2@example.com")
	assert.Contains(t, mock.lastEmail.TextBody, "CC: cc@example.com")
	assert.Contains(t, mock.lastEmail.TextBody, "BCC: bcc@example.com")
}

func TestTransport_Send_RejectionChannel(t *testing.T) {
	mock := &mockClient{
		sendFn: func(ctx context.Context, email *Email) (*SendResponse, error) {
			return &SendResponse{ErrorCode: 300, Message: "invalid 'To' address"}, nil
		},
	}
	transport := NewWithClient(Config{}, testPolicy(), mock)

	err := transport.Send(context.Background(), testMessage())

	require.Error(t, err)
	var de *mail.DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, err.Error(), "errors returned from the server: invalid 'To' address")
	assert.Equal(t, []string{"invalid 'To' address"}, transport.Errors())
}

func TestTransport_Send_ExceptionChannel(t *testing.T) {
	mock := &mockClient{
		sendFn: func(ctx context.Context, email *Email) (*SendResponse, error) {
			return nil, &APIError{StatusCode: 422, ErrorCode: 300, Message: "invalid 'To' address"}
		},
	}
	transport := NewWithClient(Config{}, testPolicy(), mock)

	err := transport.Send(context.Background(), testMessage())

	require.Error(t, err)
	assert.Equal(t, []string{"422: invalid 'To' address (300)"}, transport.Errors())
}

func TestTransport_Send_TransportLevelFailure(t *testing.T) {
	mock := &mockClient{
		sendFn: func(ctx context.Context, email *Email) (*SendResponse, error) {
			return nil, errors.New("connection refused")
		},
	}
	transport := NewWithClient(Config{}, testPolicy(), mock)

	err := transport.Send(context.Background(), testMessage())

	require.Error(t, err)
	assert.Equal(t, []string{"connection refused"}, transport.Errors())
}

func TestTransport_Send_ErrorsOverwrittenPerCall(t *testing.T) {
	failing := true
	mock := &mockClient{
		sendFn: func(ctx context.Context, email *Email) (*SendResponse, error) {
			if failing {
				return &SendResponse{ErrorCode: 300, Message: "rejected"}, nil
			}
			return &SendResponse{}, nil
		},
	}
	transport := NewWithClient(Config{}, testPolicy(), mock)

	require.Error(t, transport.Send(context.Background(), testMessage()))
	require.NotEmpty(t, transport.Errors())

	failing = false
	require.NoError(t, transport.Send(context.Background(), testMessage()))
	assert.Empty(t, transport.Errors())
}

func TestTransport_Send_MissingBody(t *testing.T) {
	mock := &mockClient{}
	transport := NewWithClient(Config{}, testPolicy(), mock)

	msg := mail.NewMessage().AddTo(mail.Address{Email: "to@example.com"})

	err := transport.Send(context.Background(), msg)

	require.Error(t, err)
	var de *mail.DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, err.Error(), "could not send the mail")
	assert.Zero(t, mock.callCount, "the API must not be called for an invalid message")
}

func TestTransport_Send_ReturnPathHeaderDropped(t *testing.T) {
	mock := &mockClient{}
	transport := NewWithClient(Config{}, testPolicy(), mock)

	msg := testMessage().
		SetHeader("Return-Path", "bounce@example.com").
		SetHeader("X-Campaign", "q3")

	require.NoError(t, transport.Send(context.Background(), msg))

	require.Len(t, mock.lastEmail.Headers, 1)
	assert.Equal(t, "X-Campaign", mock.lastEmail.Headers[0].Name)
	assert.Equal(t, "q3", mock.lastEmail.Headers[0].Value)
}

func TestTransport_Send_TrackOpens(t *testing.T) {
	mock := &mockClient{}
	transport := NewWithClient(Config{TrackOpens: true}, testPolicy(), mock)

	require.NoError(t, transport.Send(context.Background(), testMessage()))

	assert.True(t, mock.lastEmail.TrackOpens)
}
