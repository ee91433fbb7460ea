// internal/catalog/validation_test.go
package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libtrack/internal/liberr"
)

func TestNormalizeISBN(t *testing.T) {
	testCases := []struct {
		name     string
		isbn     string
		expected string
		wantErr  bool
	}{
		{
			name:     "hyphenated 13-digit form",
			isbn:     "978-83-7469-707-3",
			expected: "9788374697073",
		},
		{
			name:     "plain 13 digits",
			isbn:     "9788374697073",
			expected: "9788374697073",
		},
		{
			name:     "10 digits",
			isbn:     "8374697075",
			expected: "8374697075",
		},
		{
			name:     "spaces as separators",
			isbn:     "978 83 7469 707 3",
			expected: "9788374697073",
		},
		{
			name:    "nine digits rejected",
			isbn:    "123456789",
			wantErr: true,
		},
		{
			name:    "eleven digits rejected",
			isbn:    "12345678901",
			wantErr: true,
		},
		{
			name:    "13 digits without the 978 prefix",
			isbn:    "1234567890123",
			wantErr: true,
		},
		{
			name:    "letters rejected",
			isbn:    "97883X4697073",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeISBN(tc.isbn)
			if tc.wantErr {
				require.ErrorIs(t, err, liberr.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestValidateBook(t *testing.T) {
	t.Run("valid without ISBN", func(t *testing.T) {
		count, isbn, err := ValidateBook("Lalka", "Bolesław Prus", "3", "")
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		assert.Empty(t, isbn)
	})

	t.Run("valid with ISBN normalization", func(t *testing.T) {
		count, isbn, err := ValidateBook("Wiedźmin", "Andrzej Sapkowski", "5", "978-83-7469-707-3")
		require.NoError(t, err)
		assert.Equal(t, 5, count)
		assert.Equal(t, "9788374697073", isbn)
	})

	t.Run("available trims whitespace", func(t *testing.T) {
		count, _, err := ValidateBook("Solaris", "Stanisław Lem", "  2  ", "")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	invalid := []struct {
		name                           string
		title, author, available, isbn string
	}{
		{"empty title", "", "Author", "1", ""},
		{"blank title", "   ", "Author", "1", ""},
		{"title too long", strings.Repeat("x", 201), "Author", "1", ""},
		{"empty author", "Title", "", "1", ""},
		{"author too long", "Title", strings.Repeat("x", 101), "1", ""},
		{"available not a number", "Title", "Author", "many", ""},
		{"available negative", "Title", "Author", "-1", ""},
		{"available above cap", "Title", "Author", "1001", ""},
		{"bad ISBN", "Title", "Author", "1", "123"},
	}

	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ValidateBook(tc.title, tc.author, tc.available, tc.isbn)
			require.ErrorIs(t, err, liberr.ErrInvalidInput)
		})
	}

	t.Run("boundary values pass", func(t *testing.T) {
		count, _, err := ValidateBook(strings.Repeat("t", 200), strings.Repeat("a", 100), "1000", "")
		require.NoError(t, err)
		assert.Equal(t, 1000, count)
	})
}
