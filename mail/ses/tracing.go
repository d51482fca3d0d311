package ses

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("github.com/pure-golang/mailer/mail/ses")
