package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config tunes the diagnostic logger and the server listener. No value here
// changes where or what the heartbeat writes.
type Config struct {
	ServiceName    string
	LogLevel       string `validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	HTTPListenAddr string
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:    getEnv("SERVICE_NAME", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		HTTPListenAddr: getEnv("HTTP_LISTEN_ADDR", ":8091"),
	}

	return cfg, nil
}

// Validate checks the fields the named binary needs and reports problems by
// environment variable name.
func (c *Config) Validate(service string) error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not a known level", c.LogLevel))
	}

	switch service {
	case "cronbeat-server":
		if c.HTTPListenAddr == "" {
			errs = append(errs, errors.New("HTTP_LISTEN_ADDR is required"))
		} else if err := validate.Var(c.HTTPListenAddr, "hostname_port"); err != nil {
			errs = append(errs, fmt.Errorf("HTTP_LISTEN_ADDR %q must be host:port", c.HTTPListenAddr))
		}
	case "cronbeat":
	default:
		errs = append(errs, fmt.Errorf("unknown service %q", service))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
