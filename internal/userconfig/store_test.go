package userconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func tempHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("USERPROFILE", dir) // windows fallback used by os.UserHomeDir
	return dir
}

func writeConfigFile(t *testing.T, home string, contents string) {
	t.Helper()
	hlDir := filepath.Join(home, ".hl")
	if err := os.MkdirAll(hlDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(hlDir, "user-config.json"), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_NoFile_ReturnsDefaults(t *testing.T) {
	tempHome(t)

	cfg := Load()
	if cfg.Slippage != 1.0 {
		t.Errorf("Slippage = %v, want 1.0", cfg.Slippage)
	}
}

func TestLoad_EmptyFile_ReturnsDefaults(t *testing.T) {
	home := tempHome(t)
	writeConfigFile(t, home, "")

	cfg := Load()
	if cfg.Slippage != 1.0 {
		t.Errorf("Slippage = %v, want 1.0", cfg.Slippage)
	}
}

func TestLoad_UnknownKeys_ReturnsDefaults(t *testing.T) {
	home := tempHome(t)
	writeConfigFile(t, home, `{"unknown":"x"}`)

	cfg := Load()
	if cfg.Slippage != 1.0 {
		t.Errorf("Slippage = %v, want 1.0", cfg.Slippage)
	}
}

func TestLoad_MalformedJSON_ReturnsDefaults(t *testing.T) {
	home := tempHome(t)
	writeConfigFile(t, home, `{not json`)

	cfg := Load()
	if cfg.Slippage != 1.0 {
		t.Errorf("Slippage = %v, want 1.0", cfg.Slippage)
	}
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	tempHome(t)

	if err := Save(Config{Slippage: 0.5}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cfg := Load()
	if cfg.Slippage != 0.5 {
		t.Errorf("Slippage = %v, want 0.5", cfg.Slippage)
	}
}
