// Package config owns the BASP instance's TOML-backed configuration: the
// local NodeId seed, listen address, static peer list, and admin surface
// settings.
package config

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/basp-mesh/basp/internal/wire"
)

// PeerConfig is one statically configured mesh peer to dial at startup.
type PeerConfig struct {
	Addr string `toml:"addr"`
}

// InstanceConfig is a BASP instance's full runtime configuration.
type InstanceConfig struct {
	NodeSeed         string       `toml:"node_seed"`
	Instance         uint32       `toml:"instance"`
	ListenAddr       string       `toml:"listen_addr"`
	Peers            []PeerConfig `toml:"peers"`
	HeartbeatSeconds int          `toml:"heartbeat_seconds"`
	AdminAddr        string       `toml:"admin_addr"`
	AdminAuthToken   string       `toml:"admin_auth_token"`
	AdminCorsOrigins []string     `toml:"admin_cors_origins"`
}

// Load reads and validates an InstanceConfig from path, applying defaults
// for any field the file leaves unset.
func Load(path string) (InstanceConfig, error) {
	var cfg InstanceConfig
	if err := loadToml(path, &cfg); err != nil {
		return InstanceConfig{}, err
	}
	ApplyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return InstanceConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// ApplyDefaults fills in zero-valued fields with instance defaults.
func ApplyDefaults(cfg *InstanceConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":9700"
	}
	if cfg.HeartbeatSeconds == 0 {
		cfg.HeartbeatSeconds = 5
	}
	if cfg.AdminAddr == "" {
		cfg.AdminAddr = ":9701"
	}
}

// Validate checks required fields.
func Validate(cfg InstanceConfig) error {
	if strings.TrimSpace(cfg.NodeSeed) == "" {
		return fmt.Errorf("config missing node_seed")
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("config missing listen_addr")
	}
	for i, p := range cfg.Peers {
		if strings.TrimSpace(p.Addr) == "" {
			return fmt.Errorf("peers[%d] missing addr", i)
		}
	}
	return nil
}

// NodeID derives the instance's NodeID by digesting node_seed with
// sha256 and keeping the digest's first 16 bytes, paired with the
// configured instance tag.
func (cfg InstanceConfig) NodeID() wire.NodeID {
	sum := sha256.Sum256([]byte(cfg.NodeSeed))
	var n wire.NodeID
	copy(n.Digest[:], sum[:16])
	n.Instance = cfg.Instance
	return n
}
