package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	settings, err := Load(GlobalFlags{Retries: -1})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.OutputMode != "json" {
		t.Fatalf("output = %q", settings.OutputMode)
	}
	if settings.EngineBaseURL != "https://trading.ai.zircuit.com/api/engine/v1" {
		t.Fatalf("engine url = %q", settings.EngineBaseURL)
	}
	if settings.SwitchDeadline != 6*time.Second {
		t.Fatalf("switch deadline = %s", settings.SwitchDeadline)
	}
	if settings.SwitchPollInterval != 250*time.Millisecond {
		t.Fatalf("switch poll = %s", settings.SwitchPollInterval)
	}
	if settings.SlippageBps != 50 {
		t.Fatalf("slippage = %d", settings.SlippageBps)
	}
}

func TestLoadFileThenEnvThenFlags(t *testing.T) {
	path := writeConfig(t, `
output: plain
timeout: 30s
engine:
  base_url: https://engine.example/api/
rpc:
  "8453": https://base.example
slippage_bps: 75
`)
	t.Setenv("COPYTRADE_TIMEOUT", "45s")

	settings, err := Load(GlobalFlags{ConfigPath: path, Timeout: "5s", Retries: -1})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.OutputMode != "plain" {
		t.Fatalf("output = %q, want the file value", settings.OutputMode)
	}
	// Flags beat env, env beats file.
	if settings.Timeout != 5*time.Second {
		t.Fatalf("timeout = %s, want the flag value", settings.Timeout)
	}
	if settings.EngineBaseURL != "https://engine.example/api" {
		t.Fatalf("engine url = %q, want trailing slash trimmed", settings.EngineBaseURL)
	}
	if settings.RPCOverride(8453) != "https://base.example" {
		t.Fatalf("rpc override = %q", settings.RPCOverride(8453))
	}
	if settings.SlippageBps != 75 {
		t.Fatalf("slippage = %d", settings.SlippageBps)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "engine:\n  base_url: https://file.example\n")
	t.Setenv("COPYTRADE_ENGINE_URL", "https://env.example")
	t.Setenv("COPYTRADE_ENGINE_API_KEY", "secret")

	settings, err := Load(GlobalFlags{ConfigPath: path, Retries: -1})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.EngineBaseURL != "https://env.example" {
		t.Fatalf("engine url = %q, want the env value", settings.EngineBaseURL)
	}
	if settings.EngineAPIKey != "secret" {
		t.Fatalf("api key = %q", settings.EngineAPIKey)
	}
}

func TestLoadRejectsConflictingOutputFlags(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if _, err := Load(GlobalFlags{JSON: true, Plain: true, Retries: -1}); err == nil {
		t.Fatal("expected an error for --json with --plain")
	}
}

func TestLoadParsesRPCFlags(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	settings, err := Load(GlobalFlags{RPCURLs: []string{"1=https://eth.example"}, Retries: -1})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.RPCOverride(1) != "https://eth.example" {
		t.Fatalf("override = %q", settings.RPCOverride(1))
	}
	if _, err := Load(GlobalFlags{RPCURLs: []string{"nonsense"}, Retries: -1}); err == nil {
		t.Fatal("expected an error for a malformed --rpc value")
	}
}
