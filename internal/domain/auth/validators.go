package auth

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/dosehub/dosehub/internal/platform/httperr"
)

const (
	passwordMinLen = 12
	passwordMaxLen = 40
	usernameMinLen = 3
	usernameMaxLen = 30

	emailMaxLen = 511
	nameMaxLen  = 50

	minAgeYears = 13
	maxAgeYears = 140

	// birthDateLayout matches the client apps, which submit US-style dates.
	birthDateLayout = "01/02/2006"
)

// validatePassword enforces the account password policy: 12-40 characters,
// letters and digits only, with at least one uppercase letter, one lowercase
// letter and one digit.
func validatePassword(password string) []httperr.FieldError {
	var fields []httperr.FieldError
	add := func(msg string) {
		fields = append(fields, httperr.FieldError{Field: "password", Message: msg})
	}

	if len(password) < passwordMinLen {
		add("password must be at least 12 characters")
	}
	if len(password) > passwordMaxLen {
		add("password must be at most 40 characters")
	}

	var hasUpper, hasLower, hasDigit, hasInvalid bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasInvalid = true
		}
	}
	if !hasUpper {
		add("password must contain an uppercase letter")
	}
	if !hasLower {
		add("password must contain a lowercase letter")
	}
	if !hasDigit {
		add("password must contain a digit")
	}
	if hasInvalid {
		add("password may only contain letters and digits")
	}
	return fields
}

// validateUsername enforces 3-30 characters from [a-zA-Z0-9._] with no
// consecutive dots or underscores.
func validateUsername(username string) []httperr.FieldError {
	var fields []httperr.FieldError
	add := func(msg string) {
		fields = append(fields, httperr.FieldError{Field: "username", Message: msg})
	}

	if len(username) < usernameMinLen {
		add("username must be at least 3 characters")
	}
	if len(username) > usernameMaxLen {
		add("username must be at most 30 characters")
	}
	for _, r := range username {
		valid := unicode.IsLetter(r) && r < 128 || unicode.IsDigit(r) && r < 128 || r == '.' || r == '_'
		if !valid {
			add("username may only contain letters, digits, dots and underscores")
			break
		}
	}
	if strings.Contains(username, "..") || strings.Contains(username, "__") {
		add("username must not contain consecutive dots or underscores")
	}
	return fields
}

// emailPattern rejects display-name forms, dotless domains and whitespace,
// matching what the client apps validate against.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validateEmail(email string) []httperr.FieldError {
	var fields []httperr.FieldError
	add := func(msg string) {
		fields = append(fields, httperr.FieldError{Field: "email", Message: msg})
	}

	if email == "" {
		add("email is required")
		return fields
	}
	if len(email) > emailMaxLen {
		add("email must be at most 511 characters")
		return fields
	}
	if !emailPattern.MatchString(email) {
		add("invalid email address")
	}
	return fields
}

// validatePasswordConfirmation requires the retyped password to match.
func validatePasswordConfirmation(password, confirm string) []httperr.FieldError {
	if confirm == "" {
		return []httperr.FieldError{{Field: "confirm_password", Message: "password confirmation is required"}}
	}
	if confirm != password {
		return []httperr.FieldError{{Field: "confirm_password", Message: "passwords do not match"}}
	}
	return nil
}

// validateName allows letters, spaces and apostrophes, up to 50 characters.
func validateName(field, value string) []httperr.FieldError {
	var fields []httperr.FieldError
	add := func(msg string) {
		fields = append(fields, httperr.FieldError{Field: field, Message: msg})
	}

	if strings.TrimSpace(value) == "" {
		add(field + " is required")
		return fields
	}
	if len(value) > nameMaxLen {
		add(field + " must be at most 50 characters")
	}
	for _, r := range value {
		if !unicode.IsLetter(r) && r != ' ' && r != '\'' {
			add(field + " may only contain letters, spaces and apostrophes")
			break
		}
	}
	return fields
}

// parseBirthDate parses the MM/dd/yyyy date the clients send and requires an
// age between 13 and 140 years.
func parseBirthDate(raw string, now time.Time) (time.Time, []httperr.FieldError) {
	t, err := time.Parse(birthDateLayout, raw)
	if err != nil {
		return time.Time{}, []httperr.FieldError{{Field: "birth_date", Message: "birth date must be in MM/dd/yyyy format"}}
	}
	if t.After(now.AddDate(-minAgeYears, 0, 0)) {
		return time.Time{}, []httperr.FieldError{{Field: "birth_date", Message: "you must be at least 13 years old"}}
	}
	if t.Before(now.AddDate(-maxAgeYears, 0, 0)) {
		return time.Time{}, []httperr.FieldError{{Field: "birth_date", Message: "birth date is too far in the past"}}
	}
	return t, nil
}
