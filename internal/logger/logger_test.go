package logger

import "testing"

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	in := []interface{}{"video_id", "abc12345678", "api_key", "sk-123", "github_token", "ghp", "dangling"}
	out := sanitizeKVs(in)
	if len(out) != len(in) {
		t.Fatalf("len=%d want %d", len(out), len(in))
	}
	if out[1] != "abc12345678" {
		t.Fatalf("video_id altered: %v", out[1])
	}
	if out[3] != "[REDACTED]" || out[5] != "[REDACTED]" {
		t.Fatalf("secrets not redacted: %v", out)
	}
	if out[6] != "dangling" {
		t.Fatalf("dangling key lost: %v", out)
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "production"} {
		l, err := New(mode, "info")
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.With("mode", mode).Debug("hidden at info")
	}
}
