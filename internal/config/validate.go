package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError holds details about a configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
	Context string
}

func (e ValidationError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (in %s)", e.Field, e.Message, e.Context)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, "  - "+e.Error())
	}
	return fmt.Sprintf("validation failed with %d error(s):\n%s", len(errs), strings.Join(msgs, "\n"))
}

// HasErrors returns true if there are any validation errors.
func (errs ValidationErrors) HasErrors() bool {
	return len(errs) > 0
}

// Validate checks a config for errors and returns every problem found.
func Validate(cfg *Config) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(cfg.Listen) == "" {
		errs = append(errs, ValidationError{Field: "listen", Message: "listen address is required"})
	}
	if strings.TrimSpace(cfg.StatusFile) == "" {
		errs = append(errs, ValidationError{Field: "status_file", Message: "status file path is required"})
	}
	if _, err := cfg.Location(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "timezone",
			Message: fmt.Sprintf("unknown time zone %q", cfg.Timezone),
		})
	}

	errs = append(errs, validateAutomation(cfg.Automation)...)
	return errs
}

func validateAutomation(a AutomationConfig) ValidationErrors {
	var errs ValidationErrors
	const ctx = "automation"

	if len(a.Command) == 0 || strings.TrimSpace(a.Command[0]) == "" {
		errs = append(errs, ValidationError{Field: "command", Message: "command is required", Context: ctx})
	}
	if a.Timeout != "" {
		d, err := time.ParseDuration(a.Timeout)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   "timeout",
				Message: fmt.Sprintf("invalid duration %q", a.Timeout),
				Context: ctx,
			})
		} else if d < 0 {
			errs = append(errs, ValidationError{Field: "timeout", Message: "must not be negative", Context: ctx})
		}
	}
	if a.MaxMessageBytes < 0 {
		errs = append(errs, ValidationError{Field: "max_message_bytes", Message: "must be positive", Context: ctx})
	}
	return errs
}

// ValidateConfig is a convenience function returning nil when cfg is valid.
func ValidateConfig(cfg *Config) error {
	errs := Validate(cfg)
	if errs.HasErrors() {
		return errs
	}
	return nil
}
