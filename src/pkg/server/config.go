package server

import (
	"fmt"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"

	"price-catalog/src/pkg/config"
	"price-catalog/src/pkg/paginate"
	"price-catalog/src/pkg/util"
)

type Config struct {
	Address                string `json:"address,omitempty"`
	Port                   int    `json:"port,omitempty"`
	MaxChunkLength         int    `json:"max_chunk_length,omitempty"`
	MaxUploadBytes         int64  `json:"max_upload_bytes,omitempty"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds,omitempty"`
}

func DefaultValueConfig() Config {
	return Config{
		Address:                "127.0.0.1",
		Port:                   8401,
		MaxChunkLength:         paginate.DefaultMaxChunkLength,
		MaxUploadBytes:         4 << 20,
		ShutdownTimeoutSeconds: 10,
	}
}

var Cfg Config = DefaultValueConfig()

/*
If local Config is provided - use it. Replace all missing values with default ones.

If not provided - just use defaultConfig.
*/
func InitializeConfig(localConfig *Config) {
	if localConfig == nil {
		tl.Log(tl.Info, palette.Purple, "%s config is %s, keeping %s", "server", "not provided", "default server config")
		return
	}

	defaultConfig := DefaultValueConfig()
	Cfg = *localConfig

	tl.ApplyDefaults(&Cfg, defaultConfig, func(field string, defVal any) {
		tl.Log(
			tl.Info, palette.Purple,
			"%s field is %s in %s configuration. Using default value: %v",
			field, "missing", config.GetPackageName(), tl.PrettyForStderr(defVal),
		)
	})
	Cfg.MaxChunkLength = util.Clamp(Cfg.MaxChunkLength, 100, paginate.DefaultMaxChunkLength)
	Cfg.MaxUploadBytes = util.Clamp(Cfg.MaxUploadBytes, 1<<10, 64<<20)

	tl.Log(tl.Info, palette.Green, "%s config was %s, using %s", "server", "provided", "local server config")
	tl.LogJSON(tl.Verbose, palette.CyanDim, fmt.Sprintf("%s configuration", config.GetPackageName()), Cfg)
}
