package exitcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{Success, "Success"},
		{GeneralError, "General error"},
		{ConfigError, "Configuration error"},
		{ValidationError, "Validation error"},
		{FileSystemError, "File system error"},
		{NetworkError, "Network error"},
		{TimeoutError, "Timeout error"},
		{99, "Unknown error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, String(tt.code))
	}
}
