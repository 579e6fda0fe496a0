package config

import "time"

// Config is the root configuration for a syncd instance.
type Config struct {
	Stream  StreamConfig  `yaml:"stream"`
	API     APIConfig     `yaml:"api"`
	Journal JournalConfig `yaml:"journal"`
	Serve   ServeConfig   `yaml:"serve"`
}

// StreamConfig holds the streaming connection settings.
type StreamConfig struct {
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	TokenParam   string `yaml:"token_param"`
	AuthRequired bool   `yaml:"auth_required"`

	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	BootstrapTimeout   time.Duration `yaml:"bootstrap_timeout"`
	QueueSize          int           `yaml:"queue_size"`
}

// APIConfig holds the snapshot REST API settings.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// JournalConfig holds the optional buy-signal journal settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Database      DBConfig      `yaml:"database"`
}

// DBConfig holds a PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// ServeConfig holds the status endpoint settings.
type ServeConfig struct {
	Port int `yaml:"port"`
}

// applyDefaults fills zero fields with production defaults.
func (c *Config) applyDefaults() {
	if c.Stream.TokenParam == "" {
		c.Stream.TokenParam = "token"
	}
	if c.Stream.ReconnectBaseDelay <= 0 {
		c.Stream.ReconnectBaseDelay = time.Second
	}
	if c.Stream.ReconnectMaxDelay <= 0 {
		c.Stream.ReconnectMaxDelay = 15 * time.Second
	}
	if c.Stream.BootstrapTimeout <= 0 {
		c.Stream.BootstrapTimeout = 10 * time.Second
	}
	if c.Stream.QueueSize <= 0 {
		c.Stream.QueueSize = 1024
	}

	if c.API.Timeout <= 0 {
		c.API.Timeout = 30 * time.Second
	}

	if c.Journal.BatchSize <= 0 {
		c.Journal.BatchSize = 100
	}
	if c.Journal.FlushInterval <= 0 {
		c.Journal.FlushInterval = 2 * time.Second
	}
	if c.Journal.Database.SSLMode == "" {
		c.Journal.Database.SSLMode = "prefer"
	}
	if c.Journal.Database.MaxConns <= 0 {
		c.Journal.Database.MaxConns = 4
	}
	if c.Journal.Database.MinConns <= 0 {
		c.Journal.Database.MinConns = 1
	}

	if c.Serve.Port <= 0 {
		c.Serve.Port = 8080
	}
}
