package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for rules that span
// several sections.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Account.Home != "" {
		zoneRoot := "/" + cfg.Account.Zone + "/"
		if !strings.HasPrefix(cfg.Account.Home, zoneRoot) {
			return fmt.Errorf("account.home: %q is not inside zone %q", cfg.Account.Home, cfg.Account.Zone)
		}
	}

	if cfg.Session.RequestsPerSecond == 0 && cfg.Session.Burst > 0 {
		return fmt.Errorf("session.burst: set without requests_per_second")
	}

	if cfg.Listing.MaxPathLength > 0 && cfg.Listing.MaxPathLength < len("/"+cfg.Account.Zone) {
		return fmt.Errorf("listing.max_path_length: %d is shorter than the zone root", cfg.Listing.MaxPathLength)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen: required when metrics are enabled")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
