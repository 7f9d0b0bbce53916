// Package validation checks request bodies and credentials before they reach services.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

var messages = map[string]string{
	"required": "The %s field is required.",
	"email":    "The %s field is not a valid e-mail address.",
	"url":      "The %s field is not a valid URL.",
	"max":      "The field %s must be a string with a maximum length of %s.",
	"min":      "The field %s must be a string with a minimum length of %s.",
}

func message(e validator.FieldError) string {
	msg, ok := messages[e.Tag()]
	if !ok {
		return fmt.Sprintf("The field %s is invalid.", e.Field())
	}
	if strings.Count(msg, "%s") == 2 {
		return fmt.Sprintf(msg, e.Field(), e.Param())
	}
	return fmt.Sprintf(msg, e.Field())
}

// Struct validates s and returns messages keyed by JSON field name.
// An empty map means s is valid.
func Struct(s any) map[string]string {
	problems := make(map[string]string)

	err := validate.Struct(s)
	if err == nil {
		return problems
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		problems["body"] = err.Error()
		return problems
	}
	for _, e := range fieldErrs {
		if _, seen := problems[e.Field()]; !seen {
			problems[e.Field()] = message(e)
		}
	}
	return problems
}

// Email reports whether address is a syntactically valid e-mail address.
func Email(address string) bool {
	return validate.Var(address, "required,email") == nil
}

// Password policy for new accounts.
const (
	MinPasswordLength      = 7
	MinPasswordUniqueChars = 3
)

// Password returns every policy violation of pw, in a stable order.
// Digits and letter case are not required.
func Password(pw string) []string {
	var failures []string

	if len([]rune(pw)) < MinPasswordLength {
		failures = append(failures, fmt.Sprintf("Passwords must be at least %d characters.", MinPasswordLength))
	}

	hasSymbol := false
	unique := make(map[rune]struct{})
	for _, r := range pw {
		unique[r] = struct{}{}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			hasSymbol = true
		}
	}
	if !hasSymbol {
		failures = append(failures, "Passwords must have at least one non alphanumeric character.")
	}
	if len(unique) < MinPasswordUniqueChars {
		failures = append(failures, fmt.Sprintf("Passwords must use at least %d different characters.", MinPasswordUniqueChars))
	}
	return failures
}

// Numbered keys failures "1", "2", ... for problems that belong to no single field.
func Numbered(failures []string) map[string]string {
	out := make(map[string]string, len(failures))
	for i, f := range failures {
		out[strconv.Itoa(i+1)] = f
	}
	return out
}
