// Package validation checks user-supplied identifiers and text fields.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{1,28}[A-Za-z0-9]$`)

var reservedUsernames = map[string]struct{}{
	"admin":   {},
	"api":     {},
	"auth":    {},
	"debate":  {},
	"debates": {},
	"health":  {},
	"metrics": {},
	"swagger": {},
	"system":  {},
	"user":    {},
	"ws":      {},
}

// ValidateUsername validates username format and reserved names.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 3-30 characters of letters, numbers, '_', '.', or '-', starting and ending with a letter or number")
	}
	if _, exists := reservedUsernames[strings.ToLower(username)]; exists {
		return fmt.Errorf("username is reserved")
	}
	return nil
}

// RequiredText trims value and checks it is non-empty and at most maxRunes long.
func RequiredText(field, value string, maxRunes int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	if maxRunes > 0 && utf8.RuneCountInString(value) > maxRunes {
		return "", fmt.Errorf("%s too long (max %d characters)", field, maxRunes)
	}
	return value, nil
}

// CategoryName normalizes a category label.
func CategoryName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	return RequiredText("category name", name, 30)
}
