package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays REALMKEEPER_* variables. Unset variables keep the
// current value.
func parseEnv(cfg *Config, environ map[string]string) error {
	return env.ParseWithOptions(cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	})
}
