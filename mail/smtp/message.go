package smtp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/pure-golang/mailer/mail"
)

// buildMessage renders the envelope as an RFC 5322 message: a bare body
// for single-representation mail, multipart/alternative when both HTML
// and text are present, and multipart/mixed wrapping when attachments
// exist.
func buildMessage(env *mail.Envelope) ([]byte, error) {
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
	fmt.Fprintf(&buf, "Message-ID: <%s@mailer>\r\n", uuid.NewString())
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	for name, value := range env.Headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", textproto.CanonicalMIMEHeaderKey(name), value)
	}
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	switch {
	case len(env.Attachments) > 0:
		if err := writeMixed(&buf, env); err != nil {
			return nil, err
		}
	case env.HTML != "" && env.Text != "":
		writer := multipart.NewWriter(&buf)
		fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", writer.Boundary())
		if err := writeAlternative(writer, env); err != nil {
			return nil, err
		}
		if err := writer.Close(); err != nil {
			return nil, errors.Wrap(err, "failed to close alternative writer")
		}
	case env.HTML != "":
		fmt.Fprintf(&buf, "Content-Type: text/html; charset=UTF-8\r\n\r\n")
		buf.WriteString(env.HTML)
		buf.WriteString("\r\n")
	default:
		fmt.Fprintf(&buf, "Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		buf.WriteString(env.Text)
		buf.WriteString("\r\n")
	}

	return buf.Bytes(), nil
}

func writeMixed(buf *bytes.Buffer, env *mail.Envelope) error {
	mixed := multipart.NewWriter(buf)
	fmt.Fprintf(buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	if env.HTML != "" && env.Text != "" {
		var altBuf bytes.Buffer
		alt := multipart.NewWriter(&altBuf)
		if err := writeAlternative(alt, env); err != nil {
			return err
		}
		if err := alt.Close(); err != nil {
			return errors.Wrap(err, "failed to close alternative writer")
		}

		header := make(textproto.MIMEHeader)
		header.Set("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", alt.Boundary()))
		part, err := mixed.CreatePart(header)
		if err != nil {
			return errors.Wrap(err, "failed to create alternative container")
		}
		if _, err := part.Write(altBuf.Bytes()); err != nil {
			return errors.Wrap(err, "failed to write alternative container")
		}
	} else if err := writeBody(mixed, env); err != nil {
		return err
	}

	for _, att := range env.Attachments {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Type", att.ContentType)
		header.Set("Content-Transfer-Encoding", "base64")
		header.Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%s", mime.QEncoding.Encode("UTF-8", att.Name)))

		part, err := mixed.CreatePart(header)
		if err != nil {
			return errors.Wrapf(err, "failed to create attachment part %q", att.Name)
		}
		if _, err := part.Write([]byte(encodeBase64WithLineBreaks(att.Content))); err != nil {
			return errors.Wrapf(err, "failed to write attachment %q", att.Name)
		}
	}

	return errors.Wrap(mixed.Close(), "failed to close mixed writer")
}

// writeAlternative emits text first, html last, so capable clients prefer
// the richer rendering.
func writeAlternative(writer *multipart.Writer, env *mail.Envelope) error {
	if err := writePart(writer, "text/plain; charset=UTF-8", env.Text); err != nil {
		return err
	}
	return writePart(writer, "text/html; charset=UTF-8", env.HTML)
}

func writeBody(writer *multipart.Writer, env *mail.Envelope) error {
	if env.HTML != "" {
		return writePart(writer, "text/html; charset=UTF-8", env.HTML)
	}
	return writePart(writer, "text/plain; charset=UTF-8", env.Text)
}

func writePart(writer *multipart.Writer, contentType, body string) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return errors.Wrap(err, "failed to create body part")
	}
	_, err = part.Write([]byte(body))
	return errors.Wrap(err, "failed to write body part")
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
