// internal/membership/validation_test.go
package membership

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"libtrack/internal/liberr"
)

func TestValidateUsername(t *testing.T) {
	valid := []string{"bob", "reader_42", "ABC", strings.Repeat("u", 50), "  padded  "}
	for _, username := range valid {
		require.NoError(t, ValidateUsername(username), "username %q", username)
	}

	invalid := []string{"", "ab", strings.Repeat("u", 51), "has space", "zażółć", "semi;colon", "dash-ed"}
	for _, username := range invalid {
		err := ValidateUsername(username)
		require.ErrorIs(t, err, liberr.ErrInvalidInput, "username %q", username)
	}
}

func TestValidatePassword(t *testing.T) {
	require.NoError(t, ValidatePassword("secret"))
	require.NoError(t, ValidatePassword(strings.Repeat("p", 100)))

	require.ErrorIs(t, ValidatePassword("short"), liberr.ErrInvalidInput)
	require.ErrorIs(t, ValidatePassword(strings.Repeat("p", 101)), liberr.ErrInvalidInput)
}
