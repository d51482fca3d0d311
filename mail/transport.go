package mail

import (
	"context"
	"sync"
)

// Transport delivers messages through one concrete provider. A send is
// synchronous: one attempt, no internal retry or queueing; timeouts and
// cancellation are driven by the caller's context through the underlying
// provider client.
type Transport interface {
	// Send applies the transport's sending policy (default addresses,
	// debug-mode redirection), converts the message into the provider's
	// wire format and performs the delivery call. Failures of any kind
	// surface as *DeliveryError.
	Send(ctx context.Context, msg *Message) error

	// Errors returns the per-attempt error strings of the most recent
	// completed Send on this transport. Empty after a clean send.
	Errors() []string
}

// DeliveryResult collects the error strings of a single send attempt.
// Each Send works on its own result value, so overlapping sends on one
// transport never interleave error strings.
type DeliveryResult struct {
	Errors []string
}

// Record appends one error string to the attempt's list.
func (r *DeliveryResult) Record(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Succeeded reports whether the attempt finished without recorded errors.
func (r *DeliveryResult) Succeeded() bool {
	return len(r.Errors) == 0
}

// Description concatenates the recorded errors, separator-free, into the
// text carried by the DeliveryError raised for the attempt.
func (r *DeliveryResult) Description() string {
	var out string
	for _, e := range r.Errors {
		out += e
	}
	return out
}

// LastResult stores the outcome of the most recently completed send.
// Adapters embed it to satisfy Transport.Errors; the mutex keeps the
// snapshot consistent when Errors is read while another send is in
// flight. When sends overlap, the last one to complete wins.
type LastResult struct {
	mx   sync.Mutex
	last DeliveryResult
}

// Store records a completed attempt's result.
func (s *LastResult) Store(r DeliveryResult) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.last = r
}

// Errors returns a copy of the most recently stored result's errors.
func (s *LastResult) Errors() []string {
	s.mx.Lock()
	defer s.mx.Unlock()
	out := make([]string, len(s.last.Errors))
	copy(out, s.last.Errors)
	return out
}
