package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Network != "mainnet" || cfg.ActivationHeight != defaultActivationHeight {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hord.yaml")
	contents := "network: signet\nrpc_url: http://node:8332\nnetwork_threads: 8\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv(envRPCUser, "alice")
	t.Setenv(envRPCPassword, "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Network != "signet" || cfg.RPCURL != "http://node:8332" || cfg.NetworkThreads != 8 {
		t.Errorf("got %+v", cfg)
	}
	if cfg.RPCUser != "alice" || cfg.RPCPassword != "secret" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoad_InvalidNetworkThreads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hord.yaml")
	_ = os.WriteFile(path, []byte("network_threads: 0\n"), 0o600)

	if _, err := Load(path); err == nil {
		t.Error("expected error for network_threads: 0")
	}
}
