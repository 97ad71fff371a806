package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/bacalhau-project/tiercache/pkg/config/types"
	"github.com/bacalhau-project/tiercache/pkg/logger"
)

const (
	environmentVariablePrefix = "TIERCACHE"
	automaticEnvVar           = true

	// DirEnvVar overrides the default config directory.
	DirEnvVar = environmentVariablePrefix + "_DIR"
)

var (
	environmentVariableReplace = strings.NewReplacer(".", "_")
	configDecoderHook          = viper.DecodeHook(mapstructure.TextUnmarshallerHookFunc())
)

const (
	configType = "yaml"
	configName = "config"
)

// DefaultDir returns the config directory used when none is given: the value
// of TIERCACHE_DIR, or ~/.tiercache.
func DefaultDir() string {
	if dir := os.Getenv(DirEnvVar); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + strings.ToLower(environmentVariablePrefix)
	}
	return filepath.Join(home, "."+strings.ToLower(environmentVariablePrefix))
}

// Load builds the configuration from defaults, the optional config.yaml in
// dir and TIERCACHE_ environment variables, in increasing precedence.
func Load(dir string) (types.Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.SetEnvPrefix(environmentVariablePrefix)
	v.SetEnvKeyReplacer(environmentVariableReplace)
	if dir != "" {
		v.AddConfigPath(dir)
	}

	for key, value := range types.AllKeys(types.Default) {
		v.SetDefault(key, value)
	}

	if dir != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return types.Config{}, errors.Wrapf(err, "failed to read config from %s", dir)
			}
		}
	}

	if automaticEnvVar {
		v.AutomaticEnv()
	}

	var out types.Config
	if err := v.Unmarshal(&out, configDecoderHook); err != nil {
		return types.Config{}, errors.Wrap(err, "failed to decode config")
	}

	// a relative local tier path is resolved against the config directory
	if p := out.Cache.Local.Path; p != "" && !filepath.IsAbs(p) && dir != "" {
		out.Cache.Local.Path = filepath.Join(dir, p)
	}

	if err := Validate(out); err != nil {
		return types.Config{}, err
	}
	return out, nil
}

// Validate checks the values that would make the cache unusable.
func Validate(cfg types.Config) error {
	switch {
	case cfg.Cache.TTL <= 0:
		return errors.Errorf("%s must be greater than zero, got %s", types.CacheTTL, cfg.Cache.TTL)
	case cfg.Cache.MaxSize <= 0:
		return errors.Errorf("%s must be greater than zero, got %d", types.CacheMaxSize, cfg.Cache.MaxSize)
	case (cfg.Cache.Remote.URL != "" || cfg.Cache.Remote.Embedded) && cfg.Cache.Remote.Bucket == "":
		return errors.Errorf("%s cannot be empty when the remote tier is enabled", types.CacheRemoteBucket)
	case cfg.Cache.Local.Path != "" && cfg.Cache.Local.Bucket == "":
		return errors.Errorf("%s cannot be empty when the local tier is enabled", types.CacheLocalBucket)
	}
	if cfg.Logging.Level != "" {
		if _, err := logger.ParseLogLevel(cfg.Logging.Level); err != nil {
			return errors.Wrapf(err, "invalid %s", types.LoggingLevel)
		}
	}
	if cfg.Logging.Mode != "" {
		if _, err := logger.ParseLogMode(cfg.Logging.Mode); err != nil {
			return errors.Wrapf(err, "invalid %s", types.LoggingMode)
		}
	}
	return nil
}

// KeyAsEnvVar returns the environment variable corresponding to a config key
func KeyAsEnvVar(key string) string {
	return strings.ToUpper(
		fmt.Sprintf("%s_%s", environmentVariablePrefix, environmentVariableReplace.Replace(key)),
	)
}
