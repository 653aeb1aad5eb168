package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Name != "ms_external_services" {
		t.Errorf("expected default app name, got %q", cfg.App.Name)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.External.SFTP.ConnectTimeout != 30*time.Second {
		t.Errorf("expected 30s SFTP connect timeout, got %s", cfg.External.SFTP.ConnectTimeout)
	}
	if cfg.External.SFTP.Port != 22 {
		t.Errorf("expected default SFTP port 22, got %d", cfg.External.SFTP.Port)
	}
	if !cfg.Audit.Enabled {
		t.Error("expected audit enabled by default")
	}
	if cfg.Auth.Enabled {
		t.Error("expected auth disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_NAME", "gateway-test")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("EXTERNAL_HTTP_TIMEOUT", "5s")
	t.Setenv("EXTERNAL_SFTP_HOST", "sftp.example.com")
	t.Setenv("EXTERNAL_SFTP_USERNAME", "uploader")
	t.Setenv("AUDIT_MAX_BODY_SIZE", "2048")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Name != "gateway-test" {
		t.Errorf("expected app name override, got %q", cfg.App.Name)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.External.HTTP.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.External.HTTP.Timeout)
	}
	if cfg.External.SFTP.Host != "sftp.example.com" {
		t.Errorf("expected SFTP host override, got %q", cfg.External.SFTP.Host)
	}
	if cfg.Audit.MaxBodySize != 2048 {
		t.Errorf("expected max body size 2048, got %d", cfg.Audit.MaxBodySize)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "invalid port",
			env:  map[string]string{"APP_PORT": "-1"},
		},
		{
			name: "sftp host without username",
			env:  map[string]string{"EXTERNAL_SFTP_HOST": "sftp.example.com"},
		},
		{
			name: "sftp host with invalid port",
			env: map[string]string{
				"EXTERNAL_SFTP_HOST":     "sftp.example.com",
				"EXTERNAL_SFTP_USERNAME": "uploader",
				"EXTERNAL_SFTP_PORT":     "70000",
			},
		},
		{
			name: "auth enabled without issuer",
			env:  map[string]string{"AUTH_ENABLED": "true"},
		},
		{
			name: "auth enabled without jwks",
			env: map[string]string{
				"AUTH_ENABLED":   "true",
				"JWT_ISSUER_URI": "https://issuer.example.com",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestHTTPSettingsAddress(t *testing.T) {
	settings := HTTPSettings{Port: 8081}
	if got := settings.Address(); got != ":8081" {
		t.Errorf("expected :8081, got %q", got)
	}
}

func TestGetEnvAsCSV(t *testing.T) {
	t.Setenv("AUTH_BYPASS_PATHS", " /health , /metrics ,,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"/health", "/metrics"}
	if len(cfg.Auth.BypassPaths) != len(want) {
		t.Fatalf("expected %d bypass paths, got %d", len(want), len(cfg.Auth.BypassPaths))
	}
	for i, path := range want {
		if cfg.Auth.BypassPaths[i] != path {
			t.Errorf("expected bypass path %q at %d, got %q", path, i, cfg.Auth.BypassPaths[i])
		}
	}
}
