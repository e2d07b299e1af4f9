// Package validation checks user input before it reaches the store.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	minPasswordLen = 12
	maxPasswordLen = 128
	minUsernameLen = 3
	maxUsernameLen = 30
	maxEmailLen    = 254
)

var (
	digitRegex    = regexp.MustCompile(`[0-9]`)
	specialRegex  = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// reservedUsernames would let an account pass for staff or for the placeholder shown on
// removed comments.
var reservedUsernames = map[string]bool{
	"admin":         true,
	"administrator": true,
	"moderator":     true,
	"mod":           true,
	"staff":         true,
	"system":        true,
	"deleted":       true,
	"removed":       true,
	"anonymous":     true,
}

// ValidateRegistration applies every signup rule. Fields are expected trimmed, email
// lowercased.
func ValidateRegistration(username, email, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}

	lowered := strings.ToLower(password)
	if strings.Contains(lowered, strings.ToLower(username)) {
		return fmt.Errorf("password must not contain the username")
	}
	if local, _, ok := strings.Cut(email, "@"); ok && len(local) >= minUsernameLen && strings.Contains(lowered, local) {
		return fmt.Errorf("password must not contain the email address")
	}
	return nil
}

// ValidatePassword checks length and character classes.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("password must not exceed %d characters", maxPasswordLen)
	}

	var hasUpper, hasLower bool
	for _, r := range password {
		hasUpper = hasUpper || unicode.IsUpper(r)
		hasLower = hasLower || unicode.IsLower(r)
	}
	switch {
	case !hasUpper:
		return fmt.Errorf("password must contain at least one uppercase letter")
	case !hasLower:
		return fmt.Errorf("password must contain at least one lowercase letter")
	case !digitRegex.MatchString(password):
		return fmt.Errorf("password must contain at least one digit")
	case !specialRegex.MatchString(password):
		return fmt.Errorf("password must contain at least one special character (!@#$%%^&*)")
	}
	return nil
}

// ValidateUsername checks the public handle shown next to comments.
func ValidateUsername(username string) error {
	if len(username) < minUsernameLen {
		return fmt.Errorf("username must be at least %d characters long", minUsernameLen)
	}
	if len(username) > maxUsernameLen {
		return fmt.Errorf("username must not exceed %d characters", maxUsernameLen)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username can only contain letters, numbers, underscores, and hyphens")
	}
	if strings.Trim(username, "_-") != username {
		return fmt.Errorf("username cannot start or end with underscore or hyphen")
	}
	if reservedUsernames[strings.ToLower(username)] {
		return fmt.Errorf("username %q is reserved", username)
	}
	return nil
}

// ValidateEmail checks basic email format.
func ValidateEmail(email string) error {
	if len(email) > maxEmailLen {
		return fmt.Errorf("email must not exceed %d characters", maxEmailLen)
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}
