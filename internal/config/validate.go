package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for fatal mistakes. The stream token
// is deliberately not validated here: its absence is surfaced by the link
// supervisor as a configuration error on Start, per the observable
// contract.
func (c *Config) Validate() error {
	if c.Stream.URL == "" {
		return fmt.Errorf("stream.url is required")
	}
	u, err := url.Parse(c.Stream.URL)
	if err != nil {
		return fmt.Errorf("stream.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("stream.url must use ws:// or wss://, got %q", u.Scheme)
	}

	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must use http:// or https://")
	}

	if c.Stream.ReconnectBaseDelay > c.Stream.ReconnectMaxDelay {
		return fmt.Errorf("stream.reconnect_base_delay exceeds stream.reconnect_max_delay")
	}

	if c.Journal.Enabled {
		db := c.Journal.Database
		if db.Host == "" {
			return fmt.Errorf("journal.database.host is required when journal is enabled")
		}
		if db.Port <= 0 || db.Port > 65535 {
			return fmt.Errorf("journal.database.port %d out of range", db.Port)
		}
		if db.Name == "" {
			return fmt.Errorf("journal.database.name is required when journal is enabled")
		}
		if db.User == "" {
			return fmt.Errorf("journal.database.user is required when journal is enabled")
		}
	}

	return nil
}
