package sitemap

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxLocationLength is the protocol limit on a <loc> value.
const MaxLocationLength = 2048

// validate caches struct metadata and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("urlescaped", func(fl validator.FieldLevel) bool {
		return IsURLEscaped(fl.Field().String())
	})
	return v
}

// entryRules mirrors the checks applied to one <url> record. Field order
// decides which error is reported when several fields are invalid.
type entryRules struct {
	Loc       string   `validate:"required,max=2048,urlescaped,url"`
	Priority  *float64 `validate:"omitempty,gte=0,lte=1"`
	Frequency string   `validate:"omitempty,oneof=always hourly daily weekly monthly yearly never"`
}

// ResolveLocation joins loc onto website: trailing slashes are trimmed from
// website and leading slashes from loc.
func ResolveLocation(website, loc string) string {
	return strings.TrimRight(website, "/") + "/" + strings.TrimLeft(loc, "/")
}

// ValidateLocation checks that loc is an absolute URL with a scheme and a host.
func ValidateLocation(loc string) error {
	return ValidateEntry(loc, nil, "")
}

// ValidateEntry checks a resolved location, an optional priority and an
// optional change frequency. It has no side effects.
func ValidateEntry(loc string, priority *float64, freq Frequency) error {
	rules := entryRules{Loc: loc, Priority: priority, Frequency: string(freq)}
	if err := validate.Struct(rules); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return err
		}
		switch fieldErrs[0].StructField() {
		case "Loc":
			return locationError(loc)
		case "Priority":
			return priorityError(*priority)
		default:
			return frequencyError(string(freq))
		}
	}

	// the url rule accepts file: URLs and fragments without a host
	u, err := url.Parse(loc)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return locationError(loc)
	}
	return nil
}

// IsURLEscaped reports whether s holds only characters allowed unencoded in
// a URL: printable ASCII other than space and "<>\^`{|}. Anything else must
// be percent-encoded before it is written to <loc>.
func IsURLEscaped(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c <= ' ' || c >= 0x7f {
			return false
		}
		switch c {
		case '"', '<', '>', '\\', '^', '`', '{', '|', '}':
			return false
		}
	}
	return true
}

func locationError(value string) *ValidationError {
	return &ValidationError{
		Field:   "loc",
		Value:   value,
		Message: fmt.Sprintf("the location must be a valid, percent-encoded URL of at most %d characters", MaxLocationLength),
		Kind:    ErrInvalidLocation,
	}
}

func priorityError(value float64) *ValidationError {
	return &ValidationError{
		Field:   "priority",
		Value:   fmt.Sprintf("%g", value),
		Message: "valid values range from 0.0 to 1.0",
		Kind:    ErrInvalidPriority,
	}
}
