package textutil

import "testing"

func TestSanitizeToken(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
	}{
		"uuid passes through": {"9b2f6c1e-4a1d-4f0a-9c3e-0d8f1a2b3c4d", "9b2f6c1e-4a1d-4f0a-9c3e-0d8f1a2b3c4d"},
		"lowercased":          {"UserOne", "userone"},
		"path traversal":      {"../evil/user", "evil_user"},
		"empty":               {"", "unknown"},
		"only separators":     {"///", "unknown"},
		"whitespace trimmed":  {"  user-1  ", "user-1"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := SanitizeToken(tc.in); got != tc.want {
				t.Fatalf("SanitizeToken(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
