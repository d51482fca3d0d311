package mail

import (
	"context"
	"html"
	"log/slog"
	"strings"
)

// DefaultLineBreak separates the lines of the plain-text debug banner
// unless the policy configures another style.
const DefaultLineBreak = "\n"

// Policy is the provider-independent sending policy every adapter shares:
// default address injection, debug-mode recipient redirection and the
// per-attempt envelope log entry. Configure it at construction time and
// treat it as immutable afterwards; one policy value serves all sends on
// its transport.
type Policy struct {
	// DefaultFrom is used when the message carries no sender.
	DefaultFrom *Address
	// DefaultBcc is always added to the message's bcc list, in addition
	// to any caller-set bcc recipients.
	DefaultBcc *Address
	// DefaultReplyTo is used when the message carries no reply-to.
	DefaultReplyTo *Address
	// DebugTo redirects every send to a single test inbox. The original
	// recipients are listed in a banner prepended to each body rendering.
	DebugTo *Address
	// LineBreak joins the plain-text banner lines. Defaults to "\n".
	LineBreak string
	// Log receives the one entry written per send attempt. Defaults to
	// slog.Default().
	Log *slog.Logger
}

// ApplyDefaults fills From, Bcc and ReplyTo from the configured defaults.
// The message is mutated in place so the caller can audit the effective
// addressing after the send; DefaultBcc is additive and never replaces
// caller-set bcc recipients.
func (p *Policy) ApplyDefaults(msg *Message) {
	if msg.From == nil && p.DefaultFrom != nil {
		from := *p.DefaultFrom
		msg.From = &from
	}
	if p.DefaultBcc != nil {
		msg.Bcc = append(msg.Bcc, *p.DefaultBcc)
	}
	if msg.ReplyTo == nil && p.DefaultReplyTo != nil {
		replyTo := *p.DefaultReplyTo
		msg.ReplyTo = &replyTo
	}
}

// ApplyDebugMode redirects the envelope to the debug inbox: To becomes
// the debug address alone, Cc and Bcc are cleared, and each non-empty
// body rendering gets a banner listing who would have received the mail.
// No-op when DebugTo is not configured.
func (p *Policy) ApplyDebugMode(env *Envelope) {
	if p.DebugTo == nil {
		return
	}

	lines := debugBannerLines(env)
	if env.HTML != "" {
		env.HTML = htmlBanner(lines) + env.HTML
	}
	if env.Text != "" {
		br := p.lineBreak()
		env.Text = strings.Join(lines, br) + br + br + env.Text
	}

	env.To = p.DebugTo.Email
	env.Cc = ""
	env.Bcc = ""
}

// LogMail writes the single structured log entry of a send attempt.
// Details must come from Envelope.Loggable: addressing and metadata only,
// never body text or attachment payloads.
func (p *Policy) LogMail(ctx context.Context, subject, details string, errCount int) {
	log := p.Logger()
	if errCount > 0 {
		log.WarnContext(ctx, "mail delivery failed",
			"subject", subject,
			"envelope", details,
			"errors", errCount,
		)
		return
	}
	log.InfoContext(ctx, "mail sent",
		"subject", subject,
		"envelope", details,
	)
}

func (p *Policy) lineBreak() string {
	if p.LineBreak == "" {
		return DefaultLineBreak
	}
	return p.LineBreak
}

// Logger returns the configured log sink, falling back to slog.Default().
func (p *Policy) Logger() *slog.Logger {
	if p.Log == nil {
		return slog.Default()
	}
	return p.Log
}

func debugBannerLines(env *Envelope) []string {
	lines := []string{"Debug mode - intended recipients:"}
	if env.To != "" {
		lines = append(lines, "To: "+env.To)
	}
	if env.Cc != "" {
		lines = append(lines, "CC: "+env.Cc)
	}
	if env.Bcc != "" {
		lines = append(lines, "BCC: "+env.Bcc)
	}
	return lines
}

func htmlBanner(lines []string) string {
	escaped := make([]string, len(lines))
	for i, line := range lines {
		escaped[i] = html.EscapeString(line)
	}
	return "<div style=\"border:2px solid #c00;padding:8px;margin-bottom:8px\">" +
		strings.Join(escaped, "<br>") +
		"</div>"
}
