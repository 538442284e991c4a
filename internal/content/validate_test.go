package content

import (
	"errors"
	"strings"
	"testing"
)

func fieldErrors(t *testing.T, err error) FieldErrors {
	t.Helper()
	if err == nil {
		return nil
	}
	var fe FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldErrors, got %T", err)
	}
	return fe
}

func TestValidateLogin(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		want     FieldErrors
	}{
		{"Valid", "a@example.com", "secret", nil},
		{"Empty", "", "", FieldErrors{"email": "Email is required", "password": "Password is required"}},
		{"Bad email", "a@example", "secret", FieldErrors{"email": "Please enter a valid email"}},
		{"Email with space", "a b@example.com", "secret", FieldErrors{"email": "Please enter a valid email"}},
		{"Short password", "a@example.com", "12345", FieldErrors{"password": "Password must be at least 6 characters"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fieldErrors(t, ValidateLogin(tt.email, tt.password))
			if len(got) != len(tt.want) {
				t.Fatalf("ValidateLogin() = %v, want %v", got, tt.want)
			}
			for f, msg := range tt.want {
				if got[f] != msg {
					t.Errorf("field %s = %q, want %q", f, got[f], msg)
				}
			}
		})
	}
}

func TestValidateSignup(t *testing.T) {
	tests := []struct {
		name     string
		password string
		confirm  string
		field    string
		want     string
	}{
		{"Valid", "Secret!", "Secret!", "", ""},
		{"No uppercase", "secret!", "secret!", "password", "Password must contain at least one uppercase letter"},
		{"No special", "Secret1", "Secret1", "password", "Password must contain at least one special character"},
		{"Space is not special", "Secret 1", "Secret 1", "password", "Password must contain at least one special character"},
		{"Too short wins", "Se!", "Se!", "password", "Password must be at least 6 characters"},
		{"Mismatch", "Secret!", "Secret?", "confirmPassword", "Passwords do not match"},
		{"No confirmation", "Secret!", "", "confirmPassword", "Please confirm your password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fieldErrors(t, ValidateSignup("a@example.com", tt.password, tt.confirm))
			if tt.field == "" {
				if got != nil {
					t.Fatalf("unexpected errors: %v", got)
				}
				return
			}
			if got[tt.field] != tt.want {
				t.Errorf("field %s = %q, want %q", tt.field, got[tt.field], tt.want)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Valid", "bob", false},
		{"With space", "Bob Smith", false},
		{"Unicode", "Åsa", false},
		{"Too short", "bo", true},
		{"Padded short", "  bo  ", true},
		{"Empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateUsername(tt.input); (err != nil) != tt.wantErr {
				t.Errorf("ValidateUsername() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateGroup(t *testing.T) {
	if err := ValidateGroup("Friends", []string{"a@example.com"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	got := fieldErrors(t, ValidateGroup("  ", nil))
	if got["name"] != "Group name is required" || got["members"] != "Please select at least one member" {
		t.Errorf("ValidateGroup() = %v", got)
	}

	got = fieldErrors(t, ValidateGroup(strings.Repeat("x", 51), []string{"a@example.com"}))
	if _, ok := got["name"]; !ok {
		t.Error("expected name longer than 50 characters to fail")
	}
	if err := ValidateGroup(strings.Repeat("x", 50), []string{"a@example.com"}); err != nil {
		t.Errorf("50 characters should be accepted: %v", err)
	}
}

func TestFieldErrors_Error(t *testing.T) {
	err := FieldErrors{"password": "too short", "email": "missing"}
	if got := err.Error(); got != "email: missing; password: too short" {
		t.Errorf("Error() = %q", got)
	}
	if !IsFieldError(ValidateLogin("", "")) {
		t.Error("IsFieldError() = false for a validation failure")
	}
	if IsFieldError(errors.New("boom")) {
		t.Error("IsFieldError() = true for a plain error")
	}
}
