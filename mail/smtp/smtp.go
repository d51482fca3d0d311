// Package smtp implements a mail.Transport that delivers messages to an
// SMTP relay, with optional STARTTLS.
package smtp

// Config contains SMTP connection parameters.
type Config struct {
	Host     string `envconfig:"SMTP_HOST" required:"true"`     // smtp.example.com
	Port     int    `envconfig:"SMTP_PORT" default:"587"`       // 587 for STARTTLS
	Username string `envconfig:"SMTP_USER"`                     // username or email
	Password string `envconfig:"SMTP_PASSWORD"`                 // password or app password
	TLS      bool   `envconfig:"SMTP_TLS" default:"true"`       // enable STARTTLS
	Insecure bool   `envconfig:"SMTP_INSECURE" default:"false"` // skip certificate verification
}
