package types

// Config keys, as understood by viper. Each maps to the environment variable
// TIERCACHE_<KEY> with dots replaced by underscores.
const (
	CacheTTL               = "Cache.TTL"
	CacheMaxSize           = "Cache.MaxSize"
	CacheCleanupInterval   = "Cache.CleanupInterval"
	CacheRemoteURL         = "Cache.Remote.URL"
	CacheRemoteBucket      = "Cache.Remote.Bucket"
	CacheRemoteMaxAge      = "Cache.Remote.MaxAge"
	CacheRemoteEmbedded    = "Cache.Remote.Embedded"
	CacheRemoteEmbedPort   = "Cache.Remote.EmbeddedPort"
	CacheLocalPath         = "Cache.Local.Path"
	CacheLocalBucket       = "Cache.Local.Bucket"
	CacheLocalPrefix       = "Cache.Local.Prefix"
	CacheLocalMaxValueSize = "Cache.Local.MaxValueSize"
	APIHost                = "API.Host"
	APIPort                = "API.Port"
	LoggingLevel           = "Logging.Level"
	LoggingMode            = "Logging.Mode"
)

// AllKeys maps every config key to the value it takes in cfg.
func AllKeys(cfg Config) map[string]any {
	return map[string]any{
		CacheTTL:               cfg.Cache.TTL,
		CacheMaxSize:           cfg.Cache.MaxSize,
		CacheCleanupInterval:   cfg.Cache.CleanupInterval,
		CacheRemoteURL:         cfg.Cache.Remote.URL,
		CacheRemoteBucket:      cfg.Cache.Remote.Bucket,
		CacheRemoteMaxAge:      cfg.Cache.Remote.MaxAge,
		CacheRemoteEmbedded:    cfg.Cache.Remote.Embedded,
		CacheRemoteEmbedPort:   cfg.Cache.Remote.EmbeddedPort,
		CacheLocalPath:         cfg.Cache.Local.Path,
		CacheLocalBucket:       cfg.Cache.Local.Bucket,
		CacheLocalPrefix:       cfg.Cache.Local.Prefix,
		CacheLocalMaxValueSize: cfg.Cache.Local.MaxValueSize,
		APIHost:                cfg.API.Host,
		APIPort:                cfg.API.Port,
		LoggingLevel:           cfg.Logging.Level,
		LoggingMode:            cfg.Logging.Mode,
	}
}
