package mail

import (
	"fmt"
	"sort"
	"strings"
)

// Envelope is the flattened, provider-facing form of a message: routing
// and metadata fields shaped the way wire APIs want them. Address fields
// hold comma-joined bare emails; the empty string means "absent".
type Envelope struct {
	From        string
	To          string
	Cc          string
	Bcc         string
	ReplyTo     string
	Subject     string
	HTML        string
	Text        string
	Headers     map[string]string
	Attachments []Attachment
}

// Attachment carries one attachment's raw bytes. Adapters that need
// base64 (or any other) encoding apply it when mapping to their wire type.
type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}

// BuildEnvelope flattens a message into its envelope. The message must
// already satisfy Validate; body selection follows the HTML flag: an HTML
// message carries the ALTERNATIVE part (if any) as its text rendering,
// a plain-text message carries only text.
func BuildEnvelope(msg *Message) (*Envelope, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	env := &Envelope{
		From:    AddressEmail(msg.From),
		To:      JoinAddresses(msg.To),
		Cc:      JoinAddresses(msg.Cc),
		Bcc:     JoinAddresses(msg.Bcc),
		ReplyTo: AddressEmail(msg.ReplyTo),
		Subject: msg.Subject,
		Headers: make(map[string]string, len(msg.Headers)),
	}
	for name, value := range msg.Headers {
		env.Headers[name] = value
	}

	body, _ := msg.Body()
	if msg.HTML {
		env.HTML = string(body.Body)
		if alt, ok := msg.Alternative(); ok {
			env.Text = string(alt.Body)
		}
	} else {
		env.Text = string(body.Body)
	}

	for _, part := range msg.Attachments() {
		env.Attachments = append(env.Attachments, Attachment{
			Name:        part.Name,
			ContentType: part.ContentType,
			Content:     part.Body,
		})
	}

	return env, nil
}

// Loggable describes the envelope for the per-send log entry: addressing
// and metadata only. Body text and attachment payloads are stripped; only
// the attachment count survives.
func (e *Envelope) Loggable() string {
	var b strings.Builder
	writeField(&b, "from", e.From)
	writeField(&b, "to", e.To)
	writeField(&b, "cc", e.Cc)
	writeField(&b, "bcc", e.Bcc)
	writeField(&b, "reply_to", e.ReplyTo)
	writeField(&b, "subject", e.Subject)
	names := make([]string, 0, len(e.Headers))
	for name := range e.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		writeField(&b, "header."+name, e.Headers[name])
	}
	if n := len(e.Attachments); n > 0 {
		writeField(&b, "attachment_count", fmt.Sprintf("%d", n))
	}
	return b.String()
}

func writeField(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	fmt.Fprintf(b, "%s=%q", key, value)
}
