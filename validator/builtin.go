package validator

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	digitPattern = regexp.MustCompile(`\d`)
)

func builtins() []Validator {
	return []Validator{
		emailValidator{},
		phoneValidator{},
		nameValidator{},
		numberValidator{},
		textValidator{},
	}
}

type emailValidator struct{}

func (emailValidator) Name() string { return "email" }

func (emailValidator) Validate(value string, _ Config) error {
	if !emailPattern.MatchString(strings.TrimSpace(value)) {
		return invalid("%q does not look like a valid email address", value)
	}
	return nil
}

type phoneValidator struct{}

func (phoneValidator) Name() string { return "phone" }

func (phoneValidator) Validate(value string, cfg Config) error {
	digits := digitPattern.FindAllString(value, -1)
	minDigits := cfg.intOr("min_digits", 7)
	maxDigits := cfg.intOr("max_digits", 15)
	if len(digits) < minDigits {
		return invalid("phone number needs at least %d digits", minDigits)
	}
	if len(digits) > maxDigits {
		return invalid("phone number has more than %d digits", maxDigits)
	}
	return nil
}

type nameValidator struct{}

func (nameValidator) Name() string { return "name" }

func (nameValidator) Validate(value string, _ Config) error {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) < 2 || len(trimmed) > 100 {
		return invalid("name must be between 2 and 100 characters")
	}
	for _, r := range trimmed {
		if unicode.IsLetter(r) || unicode.IsSpace(r) || r == '-' || r == '\'' || r == '.' {
			continue
		}
		return invalid("name contains unsupported character %q", string(r))
	}
	return nil
}

type numberValidator struct{}

func (numberValidator) Name() string { return "number" }

func (numberValidator) Validate(value string, cfg Config) error {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return invalid("%q is not a number", value)
	}
	if min, ok := cfg.floatOr("min", 0); ok && n < min {
		return invalid("value must be at least %v", min)
	}
	if max, ok := cfg.floatOr("max", 0); ok && n > max {
		return invalid("value must be at most %v", max)
	}
	return nil
}

type textValidator struct{}

func (textValidator) Name() string { return "text" }

func (textValidator) Validate(value string, cfg Config) error {
	length := len(strings.TrimSpace(value))
	if min := cfg.intOr("min_length", 0); length < min {
		return invalid("response must be at least %d characters", min)
	}
	if max := cfg.intOr("max_length", 0); max > 0 && length > max {
		return invalid("response must be at most %d characters", max)
	}
	return nil
}
