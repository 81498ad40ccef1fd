package config

import (
	"fmt"
	"os"
)

// WriteTemplate writes a starter baspd.toml to path, refusing to
// overwrite an existing file unless overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(instanceTemplate), 0o600)
}

const instanceTemplate = `node_seed = "change-me"
instance = 1
listen_addr = ":9700"
heartbeat_seconds = 5
admin_addr = ":9701"
admin_cors_origins = ["http://localhost:3000"]

[[peers]]
addr = "127.0.0.1:9700"
`
