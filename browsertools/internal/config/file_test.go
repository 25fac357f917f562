package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Assert.Timeout != 5*time.Second {
		t.Errorf("assert timeout = %v", cfg.Assert.Timeout)
	}
	if cfg.Browser.NavigationTimeout != 30*time.Second {
		t.Errorf("navigation timeout = %v", cfg.Browser.NavigationTimeout)
	}
	if cfg.Server.Transport != "stdio" {
		t.Errorf("transport = %q", cfg.Server.Transport)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "browsermcp.yaml")
	yml := `
browser:
  headful: true
  resource_blocking: [images, fonts]
  navigation_timeout: 10s
assert:
  timeout: 2s
recording:
  enabled: true
  db: steps.db
server:
  transport: http
  addr: ":9000"
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !cfg.Browser.Headful || len(cfg.Browser.ResourceBlocking) != 2 {
		t.Errorf("browser = %+v", cfg.Browser)
	}
	if cfg.Browser.NavigationTimeout != 10*time.Second || cfg.Assert.Timeout != 2*time.Second {
		t.Errorf("timeouts = %v / %v", cfg.Browser.NavigationTimeout, cfg.Assert.Timeout)
	}
	if !cfg.Recording.Enabled || cfg.Recording.DB != "steps.db" {
		t.Errorf("recording = %+v", cfg.Recording)
	}
	if cfg.Server.Transport != "http" || cfg.Server.Addr != ":9000" {
		t.Errorf("server = %+v", cfg.Server)
	}
}

func TestLoadFile_BadTransport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("server:\n  transport: carrier-pigeon\n"), 0o644)
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for unknown transport")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(lookupFrom(map[string]string{
		"BROWSERMCP_REMOTE":            "ws://chrome:9222",
		"BROWSERMCP_STEALTH":           "true",
		"BROWSERMCP_RECORDING":         "1",
		"BROWSERMCP_ASSERT_TIMEOUT":    "750ms",
		"BROWSERMCP_RESOURCE_BLOCKING": "images,media",
		"BROWSERMCP_TRANSPORT":         "",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Browser.Remote != "ws://chrome:9222" || !cfg.Browser.Stealth {
		t.Errorf("browser = %+v", cfg.Browser)
	}
	if !cfg.Recording.Enabled {
		t.Error("recording not enabled")
	}
	if cfg.Assert.Timeout != 750*time.Millisecond {
		t.Errorf("assert timeout = %v", cfg.Assert.Timeout)
	}
	if len(cfg.Browser.ResourceBlocking) != 2 || cfg.Browser.ResourceBlocking[1] != "media" {
		t.Errorf("blocking = %v", cfg.Browser.ResourceBlocking)
	}
	if cfg.Server.Transport != "stdio" {
		t.Errorf("empty env must not override: %q", cfg.Server.Transport)
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	cfg := Default()
	if err := cfg.ApplyEnv(lookupFrom(map[string]string{"BROWSERMCP_HEADFUL": "maybe"})); err == nil {
		t.Error("expected bool parse error")
	}
	if err := cfg.ApplyEnv(lookupFrom(map[string]string{"BROWSERMCP_ASSERT_TIMEOUT": "soon"})); err == nil {
		t.Error("expected duration parse error")
	}
}

func TestApplyEnv_OriginPolicy(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(lookupFrom(map[string]string{
		"BROWSERMCP_ALLOWED_ORIGINS":       "https://example.com, *.example.org ,",
		"BROWSERMCP_BLOCKED_ORIGINS":       "ads.example.com",
		"BROWSERMCP_BLOCK_PRIVATE_NETWORK": "true",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Browser.AllowedOrigins; len(got) != 2 || got[0] != "https://example.com" || got[1] != "*.example.org" {
		t.Errorf("allowed = %q", got)
	}
	if got := cfg.Browser.BlockedOrigins; len(got) != 1 || got[0] != "ads.example.com" {
		t.Errorf("blocked = %q", got)
	}
	if !cfg.Browser.BlockPrivateNetwork {
		t.Error("block_private_network not set")
	}
}
