// Package noop implements a mail.Transport that discards messages. It is
// useful in tests and local development: the full sending policy still
// runs (defaults, debug mode, envelope logging), only the provider call
// is skipped.
package noop

import (
	"context"

	"github.com/pure-golang/mailer/mail"
)

var _ mail.Transport = (*Transport)(nil)

// Transport applies the sending policy and discards the message.
type Transport struct {
	mail.LastResult

	policy mail.Policy
}

// New creates a discarding Transport.
func New(policy mail.Policy) *Transport {
	return &Transport{policy: policy}
}

// Send runs the shared policy and succeeds without any network call.
func (t *Transport) Send(ctx context.Context, msg *mail.Message) error {
	t.Store(mail.DeliveryResult{})

	t.policy.ApplyDefaults(msg)

	env, err := mail.BuildEnvelope(msg)
	if err != nil {
		return mail.WrapDelivery(err)
	}
	t.policy.ApplyDebugMode(env)

	t.policy.LogMail(ctx, env.Subject, env.Loggable(), 0)
	return nil
}
