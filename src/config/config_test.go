package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"STORE_DRIVER", "DATABASE_URL", "HTTP_ADDR", "REQUEST_TIMEOUT", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StoreDriver != DriverMemory {
		t.Errorf("StoreDriver = %q, want memory", cfg.StoreDriver)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.GetLoggerConfig().Level != "info" {
		t.Errorf("log level = %q", cfg.GetLoggerConfig().Level)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{"postgres with url", map[string]string{"STORE_DRIVER": "postgres", "DATABASE_URL": "postgres://localhost/society"}, false},
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres", "DATABASE_URL": ""}, true},
		{"unknown driver", map[string]string{"STORE_DRIVER": "mysql"}, true},
		{"bad timeout", map[string]string{"REQUEST_TIMEOUT": "soon"}, true},
		{"negative timeout", map[string]string{"REQUEST_TIMEOUT": "-1s"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STORE_DRIVER", "")
			t.Setenv("DATABASE_URL", "")
			t.Setenv("REQUEST_TIMEOUT", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequireServer(t *testing.T) {
	cfg := &Config{HTTPAddr: ":8080"}
	if err := cfg.RequireServer(); err == nil {
		t.Error("expected an error without JWT_SECRET")
	}
	cfg.JWTSecret = "secret"
	if err := cfg.RequireServer(); err != nil {
		t.Errorf("RequireServer() error = %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SOCIETY_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SOCIETY_TEST_VALUE", "")
	os.Unsetenv("SOCIETY_TEST_VALUE")

	if err := LoadEnvFile(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv("SOCIETY_TEST_VALUE"); got != "from-file" {
		t.Errorf("SOCIETY_TEST_VALUE = %q, want from-file", got)
	}
}
