package membership

import (
	"regexp"
	"strings"

	"libtrack/internal/liberr"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateUsername checks the trimmed username: 3-50 characters, ASCII
// letters, digits and underscore only.
func ValidateUsername(username string) error {
	trimmed := strings.TrimSpace(username)
	if len(trimmed) < 3 {
		return liberr.InvalidInput("username must be at least 3 characters")
	}
	if len(trimmed) > 50 {
		return liberr.InvalidInput("username must be at most 50 characters")
	}
	if !usernamePattern.MatchString(trimmed) {
		return liberr.InvalidInput("username may only contain letters, digits and underscores")
	}
	return nil
}

// ValidatePassword checks length bounds only; content is unrestricted.
func ValidatePassword(password string) error {
	if len(password) < 6 {
		return liberr.InvalidInput("password must be at least 6 characters")
	}
	if len(password) > 100 {
		return liberr.InvalidInput("password must be at most 100 characters")
	}
	return nil
}
