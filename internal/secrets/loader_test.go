package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSecretFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing secret file: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeSecretFile(t, "  file-secret\n")

	got, err := Load(Source{Name: "api key", File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "file-secret" {
		t.Fatalf("expected trimmed file secret, got %q", got)
	}
}

func TestLoadFilePrecedesEnvAndValue(t *testing.T) {
	path := writeSecretFile(t, "from-file")
	t.Setenv("LOADER_TEST_SECRET", "from-env")

	got, err := Load(Source{
		Name:  "api key",
		Value: "from-value",
		Env:   "LOADER_TEST_SECRET",
		File:  path,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("file must win over env and value, got %q", got)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOADER_TEST_SECRET", " from-env ")

	got, err := Load(Source{
		Name:  "api key",
		Value: "from-value",
		Env:   "LOADER_TEST_SECRET",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-env" {
		t.Fatalf("env must win over value, got %q", got)
	}
}

func TestLoadEmptyEnvFallsBackToValue(t *testing.T) {
	t.Setenv("LOADER_TEST_SECRET", "   ")

	got, err := Load(Source{
		Name:  "api key",
		Value: "from-value",
		Env:   "LOADER_TEST_SECRET",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-value" {
		t.Fatalf("expected value fallback, got %q", got)
	}
}

func TestLoadEmptyFileFails(t *testing.T) {
	path := writeSecretFile(t, "  \n")

	if _, err := Load(Source{Name: "api key", File: path}); err == nil {
		t.Fatal("expected error for empty secret file")
	}
}

func TestLoadNotConfigured(t *testing.T) {
	_, err := Load(Source{Name: "api key"})
	if err == nil {
		t.Fatal("expected error when nothing is configured")
	}
	if !strings.Contains(err.Error(), "api key") {
		t.Fatalf("error must name the secret, got %q", err)
	}
}
