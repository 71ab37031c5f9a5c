package application

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// LogLevels lists the accepted values of log.level.
var LogLevels = []string{"debug", "info", "warn", "error", "disable"}

// appIDPattern matches identifiers that are safe inside a collection path.
var appIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// newValidator returns a validator with the configuration-specific tags
// registered.
func newValidator() (*validator.Validate, error) {
	v := validator.New()

	if err := v.RegisterValidation("appid", validateAppID); err != nil {
		return nil, fmt.Errorf("failed to register appid validator: %w", err)
	}
	if err := v.RegisterValidation("pgdsn", validatePostgresDSN); err != nil {
		return nil, fmt.Errorf("failed to register pgdsn validator: %w", err)
	}
	if err := v.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return nil, fmt.Errorf("failed to register loglevel validator: %w", err)
	}
	return v, nil
}

// validateAppID rejects app identifiers that would break out of the
// artifacts/<app>/public/data/professors path.
func validateAppID(fl validator.FieldLevel) bool {
	return appIDPattern.MatchString(fl.Field().String())
}

// validatePostgresDSN accepts postgres:// URLs and key=value connection
// strings.
func validatePostgresDSN(fl validator.FieldLevel) bool {
	dsn := fl.Field().String()
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		return err == nil && u.Host != ""
	}
	return strings.Contains(dsn, "=")
}

func validateLogLevel(fl validator.FieldLevel) bool {
	return slices.Contains(LogLevels, strings.ToLower(fl.Field().String()))
}

// describeFieldError renders one failing field as a readable message.
func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("%s must be %s %s", field, comparison(fe.Tag()), fe.Param())
	case "appid":
		return fmt.Sprintf("%s %q may only contain letters, digits, '-' and '_'", field, fe.Value())
	case "pgdsn":
		return fmt.Sprintf("%s is not a PostgreSQL connection string", field)
	case "loglevel":
		return fmt.Sprintf("%s must be one of %v", field, LogLevels)
	case "hostname_port":
		return fmt.Sprintf("%s %q must be host:port", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func comparison(tag string) string {
	if tag == "gt" {
		return "greater than"
	}
	return "at least"
}
