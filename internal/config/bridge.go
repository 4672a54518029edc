package config

import (
	"github.com/spf13/viper"
)

// BridgeConfig holds top-level configuration for the IPL bridge runtime.
type BridgeConfig struct {
	ModulePaths []string   `mapstructure:"module_paths"`
	LogLevel    string     `mapstructure:"log_level"`
	Wasm        WasmConfig `mapstructure:"wasm"`
}

// WasmConfig holds wazero runtime configuration. cmd/wasmipl forwards
// MemoryPages, Debug and CacheDir as instance options, which the runtime
// only logs (see wasm.RuntimeConfig); MaxInstances is not forwarded.
type WasmConfig struct {
	// Memory pages setting per guest module (64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// Debug flag.
	Debug bool `mapstructure:"debug"`
	// Compilation cache directory.
	CacheDir string `mapstructure:"cache_dir"`
	// Maximum concurrent instances.
	MaxInstances int `mapstructure:"max_instances"`
	// Call execution timeout (seconds). Applied as a context deadline
	// around each Instance.Call, per spec §5.
	ExecutionTimeout int `mapstructure:"execution_timeout"`
}

// LoadBridgeConfig loads BridgeConfig from configPath, falling back to
// defaults for anything the file doesn't set. An empty configPath loads
// pure defaults.
func LoadBridgeConfig(configPath string) (*BridgeConfig, error) {
	v := viper.New()

	v.SetDefault("module_paths", []string{"./modules"})
	v.SetDefault("log_level", "info")

	v.SetDefault("wasm.memory_pages", 256) // 16MB
	v.SetDefault("wasm.debug", false)
	v.SetDefault("wasm.cache_dir", "./build/wasm-cache")
	v.SetDefault("wasm.max_instances", 100)
	v.SetDefault("wasm.execution_timeout", 30)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg BridgeConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
