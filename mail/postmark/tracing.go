package postmark

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("github.com/pure-golang/mailer/mail/postmark")
