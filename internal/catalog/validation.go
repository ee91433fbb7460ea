package catalog

import (
	"strconv"
	"strings"

	"libtrack/internal/liberr"
)

const (
	maxTitleLength  = 200
	maxAuthorLength = 100
	maxAvailable    = 1000
)

// ValidateBook checks user-submitted book fields and returns the parsed
// available count and the normalized ISBN (empty when none was given).
func ValidateBook(title, author, available, isbn string) (int, string, error) {
	if strings.TrimSpace(title) == "" {
		return 0, "", liberr.InvalidInput("title must not be empty")
	}
	if len(title) > maxTitleLength {
		return 0, "", liberr.InvalidInput("title must be at most 200 characters")
	}

	if strings.TrimSpace(author) == "" {
		return 0, "", liberr.InvalidInput("author must not be empty")
	}
	if len(author) > maxAuthorLength {
		return 0, "", liberr.InvalidInput("author must be at most 100 characters")
	}

	normalized := ""
	if isbn != "" {
		var err error
		normalized, err = NormalizeISBN(isbn)
		if err != nil {
			return 0, "", err
		}
	}

	count, err := strconv.Atoi(strings.TrimSpace(available))
	if err != nil {
		return 0, "", liberr.InvalidInput("available copies must be a number")
	}
	if count < 0 {
		return 0, "", liberr.InvalidInput("available copies must not be negative")
	}
	if count > maxAvailable {
		return 0, "", liberr.InvalidInput("available copies must not exceed 1000")
	}

	return count, normalized, nil
}

// NormalizeISBN strips hyphens and spaces and checks the remaining
// digits: 10 or 13 of them, and a 13-digit ISBN must start with 978.
func NormalizeISBN(isbn string) (string, error) {
	normalized := strings.NewReplacer("-", "", " ", "").Replace(isbn)
	for _, r := range normalized {
		if r < '0' || r > '9' {
			return "", liberr.InvalidInput("ISBN must contain only digits, hyphens and spaces")
		}
	}
	if len(normalized) != 10 && len(normalized) != 13 {
		return "", liberr.InvalidInput("ISBN must have 10 or 13 digits")
	}
	if len(normalized) == 13 && !strings.HasPrefix(normalized, "978") {
		return "", liberr.InvalidInput("13-digit ISBN must start with 978")
	}
	return normalized, nil
}
