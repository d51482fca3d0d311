// Package mail defines the provider-agnostic message model and the
// Transport contract that every delivery adapter implements.
package mail

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Reserved part names. Every other key in Message.Parts denotes an attachment.
const (
	PartBody        = "BODY"
	PartAlternative = "ALTERNATIVE"
)

// Address is an email address with an optional display name.
// Two addresses are considered the same when their emails match;
// the display name is cosmetic.
type Address struct {
	Email string
	Name  string
}

// String renders the address in RFC 5322 style: "Name <email>" or the
// bare email when no display name is set.
func (a Address) String() string {
	if a.Name != "" {
		return fmt.Sprintf("%s <%s>", a.Name, a.Email)
	}
	return a.Email
}

// Equal compares addresses by email only.
func (a Address) Equal(b Address) bool {
	return a.Email == b.Email
}

// Part is one piece of message content: the primary body, the plain-text
// alternative of an HTML body, or a named attachment.
type Part struct {
	ContentType string
	Body        []byte
	Name        string
}

// Message is a mail message under construction. Callers populate it via
// the setters and hand it to a Transport. Transports mutate the original
// message only to fill in configured default addresses; there is no
// defensive copy, so the final addressing stays visible to the caller.
//
// A message is not safe for concurrent use.
type Message struct {
	From    *Address
	To      []Address
	Cc      []Address
	Bcc     []Address
	ReplyTo *Address
	Subject string
	// HTML selects whether the BODY part is HTML or plain text.
	HTML    bool
	Headers map[string]string
	Parts   map[string]Part
}

// NewMessage returns an empty message ready for the setters.
func NewMessage() *Message {
	return &Message{
		Headers: make(map[string]string),
		Parts:   make(map[string]Part),
	}
}

// SetFrom sets the sender address.
func (m *Message) SetFrom(a Address) *Message {
	m.From = &a
	return m
}

// AddTo appends recipient addresses.
func (m *Message) AddTo(addrs ...Address) *Message {
	m.To = append(m.To, addrs...)
	return m
}

// AddCc appends carbon-copy addresses.
func (m *Message) AddCc(addrs ...Address) *Message {
	m.Cc = append(m.Cc, addrs...)
	return m
}

// AddBcc appends blind-carbon-copy addresses.
func (m *Message) AddBcc(addrs ...Address) *Message {
	m.Bcc = append(m.Bcc, addrs...)
	return m
}

// SetReplyTo sets the reply-to address.
func (m *Message) SetReplyTo(a Address) *Message {
	m.ReplyTo = &a
	return m
}

// SetSubject sets the subject line.
func (m *Message) SetSubject(subject string) *Message {
	m.Subject = subject
	return m
}

// SetHeader sets a custom header. Whether a given header reaches the wire
// is up to the transport; providers that do not support a header drop it
// and log the fact.
func (m *Message) SetHeader(name, value string) *Message {
	m.Headers[name] = value
	return m
}

// SetTextBody sets a plain-text BODY part and clears any ALTERNATIVE part,
// since an alternative rendering only makes sense next to an HTML body.
func (m *Message) SetTextBody(body string) *Message {
	m.HTML = false
	m.Parts[PartBody] = Part{ContentType: "text/plain", Body: []byte(body), Name: PartBody}
	delete(m.Parts, PartAlternative)
	return m
}

// SetHTMLBody sets an HTML BODY part.
func (m *Message) SetHTMLBody(body string) *Message {
	m.HTML = true
	m.Parts[PartBody] = Part{ContentType: "text/html", Body: []byte(body), Name: PartBody}
	return m
}

// SetAlternative attaches a plain-text fallback to an HTML message.
// It fails on a plain-text message, where the fallback would shadow the body.
func (m *Message) SetAlternative(body string) error {
	if !m.HTML {
		return errors.New("alternative part requires an html body")
	}
	m.Parts[PartAlternative] = Part{ContentType: "text/plain", Body: []byte(body), Name: PartAlternative}
	return nil
}

// Attach adds a named attachment part. The name must not collide with the
// reserved BODY and ALTERNATIVE parts.
func (m *Message) Attach(name, contentType string, content []byte) error {
	if name == "" || name == PartBody || name == PartAlternative {
		return errors.Errorf("invalid attachment name %q", name)
	}
	if contentType == "" {
		return errors.Errorf("attachment %q has no content type", name)
	}
	if content == nil {
		content = []byte{}
	}
	m.Parts[name] = Part{ContentType: contentType, Body: content, Name: name}
	return nil
}

// Body returns the primary content part.
func (m *Message) Body() (Part, bool) {
	p, ok := m.Parts[PartBody]
	return p, ok
}

// Alternative returns the plain-text fallback of an HTML message.
func (m *Message) Alternative() (Part, bool) {
	p, ok := m.Parts[PartAlternative]
	return p, ok
}

// Attachments returns all non-reserved parts, ordered by name so the wire
// payload is deterministic.
func (m *Message) Attachments() []Part {
	names := make([]string, 0, len(m.Parts))
	for name := range m.Parts {
		if name == PartBody || name == PartAlternative {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]Part, 0, len(names))
	for _, name := range names {
		parts = append(parts, m.Parts[name])
	}
	return parts
}

// Validate checks the invariants a message must satisfy before sending:
// a BODY part exists, and an ALTERNATIVE part only accompanies an HTML body.
func (m *Message) Validate() error {
	if _, ok := m.Parts[PartBody]; !ok {
		return errors.New("message has no body part")
	}
	if _, ok := m.Parts[PartAlternative]; ok && !m.HTML {
		return errors.New("alternative part on a plain-text message")
	}
	for name, part := range m.Parts {
		if part.ContentType == "" {
			return errors.Errorf("part %q has no content type", name)
		}
	}
	return nil
}

// JoinAddresses renders a recipient list as the comma-joined bare email
// string provider APIs expect for multi-address fields. Returns "" for an
// empty list; display names never reach the wire here.
func JoinAddresses(addrs []Address) string {
	if len(addrs) == 0 {
		return ""
	}
	emails := make([]string, len(addrs))
	for i, a := range addrs {
		emails[i] = a.Email
	}
	return strings.Join(emails, ",")
}

// AddressEmail returns the bare email of an optional address, or "" when
// the address is absent.
func AddressEmail(a *Address) string {
	if a == nil {
		return ""
	}
	return a.Email
}
