package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// ctlConfig is baspctl's own local config, independent of the daemon's
// instance config: just enough to know which admin surface to talk to.
type ctlConfig struct {
	AdminAddr string `toml:"admin_addr"`
	AuthToken string `toml:"auth_token"`
}

func defaultCtlConfig() ctlConfig {
	return ctlConfig{AdminAddr: "http://127.0.0.1:9701"}
}

func loadCtlConfig(path string) (ctlConfig, error) {
	cfg := defaultCtlConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return ctlConfig{}, fmt.Errorf("load baspctl config: %w", err)
	}
	return cfg, nil
}
