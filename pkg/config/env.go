package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "ASKDATA_"

type lookupFunc func(string) (string, bool)

// applyEnv overrides cfg from ASKDATA_* variables.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("API_URL", &cfg.API.BaseURL)
	str("STORAGE_DRIVER", &cfg.Storage.Driver)
	str("STORAGE_DIR", &cfg.Storage.Dir)
	str("STORAGE_KEY", &cfg.Storage.Key)
	str("MONGO_URI", &cfg.Storage.MongoURI)
	str("MONGO_DATABASE", &cfg.Storage.MongoDatabase)
	str("MONGO_COLLECTION", &cfg.Storage.MongoCollection)
	str("ADDR", &cfg.Server.Addr)
	str("BASE_PATH", &cfg.Server.BasePath)
	str("CHART_THEME", &cfg.Chart.Theme)
	str("ECHARTS_CDN", &cfg.Chart.AssetsHost)
	str("LOG_LEVEL", &cfg.Log.Level)

	if err := durationEnv(lookup, "API_TIMEOUT", &cfg.API.Timeout); err != nil {
		return err
	}
	if err := durationEnv(lookup, "CHART_CACHE_TTL", &cfg.Chart.CacheTTL); err != nil {
		return err
	}
	if v, ok := lookup(EnvPrefix + "HISTORY_LIMIT"); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sHISTORY_LIMIT: %w", EnvPrefix, err)
		}
		cfg.History.Limit = n
	}
	if v, ok := lookup(EnvPrefix + "LOG_PRETTY"); ok && v != "" {
		pretty, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sLOG_PRETTY: %w", EnvPrefix, err)
		}
		cfg.Log.Pretty = pretty
	}
	return nil
}

func durationEnv(lookup lookupFunc, name string, dst *time.Duration) error {
	v, ok := lookup(EnvPrefix + name)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
	}
	*dst = d
	return nil
}
