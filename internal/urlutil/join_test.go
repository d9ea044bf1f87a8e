package urlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPath(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		paths []string
		want  string
	}{
		{
			name:  "simple join",
			base:  "https://example.com",
			paths: []string{"api", "auth", "google", "callback"},
			want:  "https://example.com/api/auth/google/callback",
		},
		{
			name:  "base with path prefix",
			base:  "https://example.com/app/",
			paths: []string{"/api/auth", "microsoft/callback"},
			want:  "https://example.com/app/api/auth/microsoft/callback",
		},
		{
			name:  "trailing slash preserved",
			base:  "http://localhost:3000",
			paths: []string{"auth/"},
			want:  "http://localhost:3000/auth/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JoinPath(tt.base, tt.paths...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJoinPath_InvalidBase(t *testing.T) {
	_, err := JoinPath("http://[::1", "x")
	assert.Error(t, err)
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty uses fallback", raw: "", want: "/"},
		{name: "root", raw: "/", want: "/"},
		{name: "path with query", raw: "/listings/42?tab=messages", want: "/listings/42?tab=messages"},
		{name: "path with fragment", raw: "/inbox#latest", want: "/inbox#latest"},
		{name: "absolute url", raw: "https://evil.example.com/", want: "/"},
		{name: "scheme relative", raw: "//evil.example.com", want: "/"},
		{name: "backslash host", raw: "/\\evil.example.com", want: "/"},
		{name: "relative without slash", raw: "dashboard", want: "/"},
		{name: "javascript scheme", raw: "javascript:alert(1)", want: "/"},
		{name: "control character", raw: "/a\nb", want: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LocalPath(tt.raw, "/"))
		})
	}
}
