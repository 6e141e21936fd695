package sqlite3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithWritePragmas(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		dsn      string
		expected string
	}{
		{
			name:     "plain file path",
			dsn:      "file:sigil.db",
			expected: "file:sigil.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		},
		{
			name:     "dsn with existing query",
			dsn:      "file::memory:?cache=shared",
			expected: "file::memory:?cache=shared&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		},
		{
			name:     "user supplied busy timeout wins",
			dsn:      "file:sigil.db?_pragma=busy_timeout(100)",
			expected: "file:sigil.db?_pragma=busy_timeout(100)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, withWritePragmas(tt.dsn))
		})
	}
}
