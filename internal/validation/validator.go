// Package validation holds the shared go-playground validator and the custom
// tags used by config and model definitions.
package validation

import (
	"regexp"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
)

// identifierPattern matches names that are safe to splice into SQL identifiers
// and jsonb path expressions: lowercase, starting with a letter or underscore.
var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// enumTags are custom tags accepting a fixed set of strings. The sslmode values
// repeat config.SSLMode because config imports this package.
var enumTags = map[string][]string{
	"sslmode":   {"disable", "allow", "prefer", "require", "verify-ca", "verify-full"},
	"loglevel":  {"debug", "info", "warn", "error"},
	"logformat": {"json", "text"},
}

// Get returns the shared validator with every custom tag registered. It is
// safe for concurrent use.
var Get = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	for tag, values := range enumTags {
		mustRegister(v, tag, oneOf(values))
	}
	mustRegister(v, "identifier", func(fl validator.FieldLevel) bool {
		return IsIdentifier(fl.Field().String())
	})
	return v
})

// Validate checks s against its validate tags. Failures are validator.ValidationErrors.
func Validate(s any) error {
	return Get().Struct(s)
}

// IsIdentifier reports whether name can be used as a table, schema or field name.
func IsIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// mustRegister panics on failure: a bad tag is a programming error.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic("failed to register validator " + tag + ": " + err.Error())
	}
}

func oneOf(values []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return slices.Contains(values, fl.Field().String())
	}
}
