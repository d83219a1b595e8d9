// internal/workers/retrieval/retrieve-prompts/config.go
package retrieveprompts

import "time"

type Config struct {
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Timeout: 60 * time.Second,
	}
}
