package runtime

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewApplicationWithMemoryBackends(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 19080
auth:
  secret: test-secret
`)

	app, err := NewApplication(path)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if app.server.Addr != "127.0.0.1:19080" {
		t.Fatalf("unexpected listen address %q", app.server.Addr)
	}
	if app.db != nil {
		t.Fatal("expected no database connection without a dsn")
	}
}

func TestNewApplicationRequiresSecret(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 19081\n")
	if _, err := NewApplication(path); err == nil {
		t.Fatal("expected error for missing auth secret")
	}
}
