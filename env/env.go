// Package env fills configuration structs from environment variables,
// loading a local .env file first when one exists.
package env

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const DefaultEnvFile = ".env"

// InitConfig fills config from the environment.
func InitConfig(config any) error {
	return InitConfigPrefix("", config)
}

// InitConfigPrefix fills config from variables carrying the given prefix,
// so several transports of the same kind can be configured side by side
// (PRIMARY_SMTP_HOST next to FALLBACK_SMTP_HOST).
func InitConfigPrefix(prefix string, config any) error {
	// nolint:errcheck // .env file is optional, failure is acceptable
	_ = godotenv.Load(DefaultEnvFile)

	if err := envconfig.Process(prefix, config); err != nil {
		return errors.Wrap(err, "failed to envconfig.Process")
	}

	return nil
}
