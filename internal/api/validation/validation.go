package validation

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	MinLoginLength    = 6
	MinPhoneDigits    = 11
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

var (
	loginRegex = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

	uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// IsValidLogin checks a user id: letters and digits only, at least six.
func IsValidLogin(login string) (bool, string) {
	if strings.TrimSpace(login) == "" {
		return false, "User ID is required"
	}
	if len(login) < MinLoginLength {
		return false, "User ID must be at least 6 characters"
	}
	if !loginRegex.MatchString(login) {
		return false, "User ID may contain only letters and numbers"
	}
	return true, ""
}

// PhoneDigits strips everything but digits from phone.
func PhoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func IsValidPhone(phone string) (bool, string) {
	if len(PhoneDigits(phone)) < MinPhoneDigits {
		return false, "Phone number must be at least 11 digits"
	}
	return true, ""
}

// IsValidPassword requires a minimum length and at least one digit.
func IsValidPassword(password string) (bool, string) {
	if len(password) < MinPasswordLength {
		return false, "Password must be at least 8 characters long"
	}
	if len(password) > MaxPasswordLength {
		return false, "Password must be at most 128 characters"
	}

	for _, char := range password {
		if unicode.IsDigit(char) {
			return true, ""
		}
	}
	return false, "Password must contain at least one number"
}

// IsValidUUID checks if the string is a valid UUID format
func IsValidUUID(id string) bool {
	return uuidRegex.MatchString(id)
}

// SanitizeString removes potentially dangerous characters for display
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// TruncateString truncates a string to maxLen characters
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
