// Package validation checks account fields and request payloads.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MinUsernameLength = 5
	MaxUsernameLength = 64
	MaxEmailLength    = 64
	MaxPasswordLength = 128
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report json names so errors line up with the request body.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// FieldError is a validation failure attributed to one input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// Struct validates a request payload using its `validate` tags and returns the
// first failure as a FieldError.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return fmt.Errorf("invalid validation target: %w", err)
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}

	first := errs[0]
	field := first.Field()
	var msg string
	switch first.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", field)
	case "email":
		msg = fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		msg = fmt.Sprintf("%s must be at least %s characters long", field, first.Param())
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters long", field, first.Param())
	case "len":
		msg = fmt.Sprintf("%s must be exactly %s characters long", field, first.Param())
	case "numeric":
		msg = fmt.Sprintf("%s must contain only digits", field)
	case "eqfield":
		msg = fmt.Sprintf("%s must match %s", field, first.Param())
	default:
		msg = fmt.Sprintf("%s failed %s validation", field, first.Tag())
	}
	return &FieldError{Field: field, Message: msg}
}

// ValidateEmail checks address syntax and the stored length limit.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}
	if len(email) > MaxEmailLength {
		return fmt.Errorf("email must be at most %d characters", MaxEmailLength)
	}
	if err := validate.Var(email, "email"); err != nil {
		return errors.New("invalid email format")
	}
	return nil
}

// ValidateUsername enforces the username length rules.
func ValidateUsername(username string) error {
	n := len([]rune(username))
	if n < MinUsernameLength {
		return fmt.Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if n > MaxUsernameLength {
		return fmt.Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if strings.TrimSpace(username) != username {
		return errors.New("username must not start or end with whitespace")
	}
	return nil
}

// ValidatePassword only bounds the length; there is no composition policy.
func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
	}
	return nil
}

// NormalizeEmail lowercases the domain part, leaving the local part intact.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}
