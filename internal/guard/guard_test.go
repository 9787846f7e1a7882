package guard

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{
			name:     "forwarded chain uses first hop",
			headers:  map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1, 10.0.0.2", "X-Real-IP": "10.0.0.9"},
			expected: "203.0.113.5",
		},
		{
			name:     "single forwarded value",
			headers:  map[string]string{"X-Forwarded-For": " 198.51.100.1 "},
			expected: "198.51.100.1",
		},
		{
			name:     "empty first hop falls back to real ip",
			headers:  map[string]string{"X-Forwarded-For": " , 10.0.0.1", "X-Real-IP": "192.0.2.4"},
			expected: "192.0.2.4",
		},
		{
			name:     "real ip only",
			headers:  map[string]string{"X-Real-IP": "192.0.2.4"},
			expected: "192.0.2.4",
		},
		{
			name:     "no headers",
			headers:  map[string]string{},
			expected: UnknownIP,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			assert.Equal(t, tt.expected, ClientIP(h))
		})
	}
}
