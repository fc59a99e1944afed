package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultConfigPath        = "~/.config/launcher/config.toml"
	defaultDataDir           = "~/.local/share/launcher"
	defaultLogDir            = "~/.local/share/launcher/logs"
	defaultAPIBaseURL        = "https://api.norisk.gg/api/v1"
	defaultAPIStagingBaseURL = "https://api-staging.norisk.gg/api/v1"
	defaultAPITimeoutSeconds = 15
	defaultLogFormat         = "auto"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDirPath(),
			LogDir:  defaultLogDir,
		},
		API: API{
			BaseURL:        defaultAPIBaseURL,
			StagingBaseURL: defaultAPIStagingBaseURL,
			TimeoutSeconds: defaultAPITimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultDataDirPath() string {
	if base, ok := os.LookupEnv("XDG_DATA_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "launcher")
	}
	return defaultDataDir
}
