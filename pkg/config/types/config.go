package types

import (
	"github.com/c2h5oh/datasize"
)

type Config struct {
	Cache   Cache   `yaml:"Cache" json:"Cache"`
	API     API     `yaml:"API" json:"API"`
	Logging Logging `yaml:"Logging" json:"Logging"`
}

type Cache struct {
	// TTL is the lifetime of entries written without an explicit one.
	TTL Duration `yaml:"TTL" json:"TTL"`
	// MaxSize is the number of entries kept in memory before the least
	// recently used one is evicted.
	MaxSize int `yaml:"MaxSize" json:"MaxSize"`
	// CleanupInterval is the period of the expired entry sweep. Zero disables it.
	CleanupInterval Duration   `yaml:"CleanupInterval" json:"CleanupInterval"`
	Remote          RemoteTier `yaml:"Remote" json:"Remote"`
	Local           LocalTier  `yaml:"Local" json:"Local"`
}

// RemoteTier configures the shared tier kept in a NATS JetStream key-value
// bucket. An empty URL disables the tier.
type RemoteTier struct {
	URL    string `yaml:"URL" json:"URL"`
	Bucket string `yaml:"Bucket" json:"Bucket"`
	// MaxAge bounds how long the server keeps any entry, whatever its TTL.
	MaxAge Duration `yaml:"MaxAge" json:"MaxAge"`
	// Embedded runs a JetStream enabled NATS server inside the process and
	// uses it when URL is empty.
	Embedded     bool `yaml:"Embedded" json:"Embedded"`
	EmbeddedPort int  `yaml:"EmbeddedPort" json:"EmbeddedPort"`
}

// LocalTier configures the persistent tier kept in a bolt file. An empty
// Path disables the tier.
type LocalTier struct {
	Path         string            `yaml:"Path" json:"Path"`
	Bucket       string            `yaml:"Bucket" json:"Bucket"`
	Prefix       string            `yaml:"Prefix" json:"Prefix"`
	MaxValueSize datasize.ByteSize `yaml:"MaxValueSize" json:"MaxValueSize"`
}

type API struct {
	Host string `yaml:"Host" json:"Host"`
	Port int    `yaml:"Port" json:"Port"`
}

type Logging struct {
	// Level sets the logging level. One of: trace, debug, info, warn, error, fatal, panic.
	Level string `yaml:"Level" json:"Level"`
	// Mode specifies the logging mode. One of: default, json, combined, event.
	Mode string `yaml:"Mode" json:"Mode"`
}

// Default is the configuration used when nothing overrides it.
var Default = Config{
	Cache: Cache{
		TTL:             5 * Minute,
		MaxSize:         1000,
		CleanupInterval: Minute,
		Remote: RemoteTier{
			Bucket:       "tiercache",
			MaxAge:       24 * Hour,
			EmbeddedPort: 4222,
		},
		Local: LocalTier{
			Bucket:       "cache",
			Prefix:       "tiercache:",
			MaxValueSize: 5 * datasize.MB,
		},
	},
	API: API{
		Host: "0.0.0.0",
		Port: 8080,
	},
	// Empty logging values leave the choice to the --log-level and --log-mode
	// flags and the LOG_LEVEL and LOG_TYPE environment variables.
	Logging: Logging{},
}
