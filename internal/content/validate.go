package content

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength  = 6
	MinUsernameLength  = 3
	MaxGroupNameLength = 50
)

var (
	emailRegex   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	upperRegex   = regexp.MustCompile(`[A-Z]`)
	specialRegex = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
)

// FieldErrors maps a form field name to the message shown next to it.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return strings.Join(parts, "; ")
}

// Err returns nil when no field failed, so callers can write `if err := v.Err(); err != nil`.
func (e FieldErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func validateEmail(errs FieldErrors, email string) {
	switch {
	case email == "":
		errs["email"] = "Email is required"
	case !emailRegex.MatchString(email):
		errs["email"] = "Please enter a valid email"
	}
}

func validatePassword(errs FieldErrors, password string) {
	switch {
	case password == "":
		errs["password"] = "Password is required"
	case len(password) < MinPasswordLength:
		errs["password"] = fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)
	}
}

// ValidateLogin checks the login form.
func ValidateLogin(email, password string) error {
	errs := FieldErrors{}
	validateEmail(errs, email)
	validatePassword(errs, password)
	return errs.Err()
}

// ValidateSignup checks the registration form. On top of the login rules the
// password needs an uppercase letter and a special character, and the
// confirmation must match.
func ValidateSignup(email, password, confirm string) error {
	errs := FieldErrors{}
	validateEmail(errs, email)
	validatePassword(errs, password)
	if _, failed := errs["password"]; !failed {
		switch {
		case !upperRegex.MatchString(password):
			errs["password"] = "Password must contain at least one uppercase letter"
		case !specialRegex.MatchString(password):
			errs["password"] = "Password must contain at least one special character"
		}
	}
	switch {
	case confirm == "":
		errs["confirmPassword"] = "Please confirm your password"
	case confirm != password:
		errs["confirmPassword"] = "Passwords do not match"
	}
	return errs.Err()
}

// ValidateUsername checks a new display name.
func ValidateUsername(username string) error {
	if utf8.RuneCountInString(strings.TrimSpace(username)) < MinUsernameLength {
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLength)
	}
	return nil
}

// ValidateGroup checks the new group form.
func ValidateGroup(name string, members []string) error {
	errs := FieldErrors{}
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		errs["name"] = "Group name is required"
	case utf8.RuneCountInString(name) > MaxGroupNameLength:
		errs["name"] = fmt.Sprintf("Group name must be at most %d characters", MaxGroupNameLength)
	}
	if len(members) == 0 {
		errs["members"] = "Please select at least one member"
	}
	return errs.Err()
}

// IsFieldError reports whether err came from form validation.
func IsFieldError(err error) bool {
	var fe FieldErrors
	return errors.As(err, &fe)
}
