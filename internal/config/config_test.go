package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaultsAndDerivesNodeID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "baspd.toml")
	if err := os.WriteFile(path, []byte(`node_seed = "alpha"`+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":9700" || cfg.AdminAddr != ":9701" || cfg.HeartbeatSeconds != 5 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	n1 := cfg.NodeID()
	n2 := cfg.NodeID()
	if n1 != n2 {
		t.Fatalf("expected deterministic NodeID derivation")
	}
	if !n1.Valid() {
		t.Fatalf("expected a valid derived NodeID")
	}
}

func TestLoadMissingNodeSeedFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "baspd.toml")
	if err := os.WriteFile(path, []byte(`listen_addr = ":9700"`+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for missing node_seed")
	}
}

func TestValidateRejectsEmptyPeerAddr(t *testing.T) {
	cfg := InstanceConfig{NodeSeed: "x", ListenAddr: ":1"}
	cfg.Peers = []PeerConfig{{Addr: ""}}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for empty peer addr")
	}
}
