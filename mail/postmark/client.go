// Package postmark implements a mail.Transport that delivers messages
// through the Postmark HTTP API.
package postmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// DefaultBaseURL is the production Postmark API endpoint.
const DefaultBaseURL = "https://api.postmarkapp.com"

// Config contains the Postmark API connection parameters.
type Config struct {
	ServerToken string `envconfig:"POSTMARK_SERVER_TOKEN" required:"true"`
	BaseURL     string `envconfig:"POSTMARK_BASE_URL" default:"https://api.postmarkapp.com"`
	TrackOpens  bool   `envconfig:"POSTMARK_TRACK_OPENS" default:"false"`
	TimeoutSec  int    `envconfig:"POSTMARK_TIMEOUT" default:"30"`
}

// Email is the request body of POST /email.
type Email struct {
	From        string       `json:"From"`
	To          string       `json:"To,omitempty"`
	Cc          string       `json:"Cc,omitempty"`
	Bcc         string       `json:"Bcc,omitempty"`
	Subject     string       `json:"Subject"`
	HTMLBody    string       `json:"HtmlBody,omitempty"`
	TextBody    string       `json:"TextBody,omitempty"`
	ReplyTo     string       `json:"ReplyTo,omitempty"`
	Headers     []Header     `json:"Headers,omitempty"`
	TrackOpens  bool         `json:"TrackOpens,omitempty"`
	Attachments []Attachment `json:"Attachments,omitempty"`
}

// Header is one custom header entry in the Postmark request.
type Header struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// Attachment is one attachment entry; Content carries the base64-encoded
// payload, as the API requires.
type Attachment struct {
	Name        string `json:"Name"`
	Content     string `json:"Content"`
	ContentType string `json:"ContentType"`
}

// SendResponse is the API's answer to a send request. ErrorCode zero
// means the message was accepted.
type SendResponse struct {
	To          string `json:"To"`
	SubmittedAt string `json:"SubmittedAt"`
	MessageID   string `json:"MessageID"`
	ErrorCode   int    `json:"ErrorCode"`
	Message     string `json:"Message"`
}

// APIError is a request the API answered with a non-2xx status. It keeps
// the HTTP status alongside Postmark's own error code and message.
type APIError struct {
	StatusCode int
	ErrorCode  int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s (%d)", e.StatusCode, e.Message, e.ErrorCode)
}

// Client is the part of the Postmark API the transport uses. Tests swap
// in mock implementations.
type Client interface {
	SendEmail(ctx context.Context, email *Email) (*SendResponse, error)
}

var _ Client = (*HTTPClient)(nil)

// HTTPClient talks to the real Postmark API over net/http.
type HTTPClient struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a client for the configured server token.
func NewHTTPClient(cfg Config) *HTTPClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPClient{
		token:   cfg.ServerToken,
		baseURL: baseURL,
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
	}
}

// SendEmail performs one POST /email call. A non-2xx response decodes
// into *APIError; transport-level failures come back wrapped as-is.
func (c *HTTPClient) SendEmail(ctx context.Context, email *Email) (*SendResponse, error) {
	payload, err := json.Marshal(email)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal postmark request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create postmark request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to reach postmark api")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read postmark response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var rejection SendResponse
		if err := json.Unmarshal(body, &rejection); err == nil && rejection.Message != "" {
			apiErr.ErrorCode = rejection.ErrorCode
			apiErr.Message = rejection.Message
		} else {
			apiErr.Message = string(body)
		}
		return nil, apiErr
	}

	var result SendResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.Wrap(err, "failed to decode postmark response")
	}
	return &result, nil
}
