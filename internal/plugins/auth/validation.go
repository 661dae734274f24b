package auth

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chimibusiness/crm/internal/apperror"
	"github.com/chimibusiness/crm/internal/sanitize"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	maxEmailLength    = 255
	maxFullNameLength = 255
)

// PasswordProblems returns every way password violates the registration
// policy, in a stable order. An empty result means the password is accepted.
func PasswordProblems(password string) []string {
	var problems []string

	n := utf8.RuneCountInString(password)
	if n < minPasswordLength {
		problems = append(problems, "password must be at least 8 characters long")
	}
	if n > maxPasswordLength {
		problems = append(problems, "password must be at most 128 characters long")
	}

	var hasDigit, hasUpper, hasLower bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
	}
	if !hasDigit {
		problems = append(problems, "password must contain at least one digit")
	}
	if !hasUpper {
		problems = append(problems, "password must contain at least one uppercase letter")
	}
	if !hasLower {
		problems = append(problems, "password must contain at least one lowercase letter")
	}
	if strings.TrimSpace(password) != password {
		problems = append(problems, "password cannot contain leading or trailing whitespace")
	}

	return problems
}

// normalizeEmail lower-cases and trims an email so lookups are
// case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail accepts a bare address (no display name) of sane length.
func validEmail(email string) bool {
	if email == "" || len(email) > maxEmailLength {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}

// validateRegisterInput normalizes input in place and collects every field
// problem. Returns nil when the input is acceptable.
func validateRegisterInput(input *RegisterInput) *apperror.AppError {
	input.Email = normalizeEmail(input.Email)
	input.FullName = sanitize.PlainText(input.FullName)

	var fields []apperror.FieldError
	if !validEmail(input.Email) {
		fields = append(fields, apperror.FieldError{Field: "email", Message: "value is not a valid email address"})
	}
	for _, p := range PasswordProblems(input.Password) {
		fields = append(fields, apperror.FieldError{Field: "password", Message: p})
	}
	if utf8.RuneCountInString(input.FullName) > maxFullNameLength {
		fields = append(fields, apperror.FieldError{Field: "full_name", Message: "full name must be at most 255 characters"})
	}

	if len(fields) == 0 {
		return nil
	}
	return apperror.NewValidation("invalid registration data", fields...)
}
