package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Addr is the "host:port" the server listens on.
	Addr string `envconfig:"CHAT_ADDR" default:"127.0.0.1:12345"`
	// Managers seeds the manager role set; these usernames hold the role
	// before ever connecting.
	Managers []string `envconfig:"CHAT_MANAGERS" default:"Itay"`
	// ReadBufferSize is the per-connection read chunk size.
	ReadBufferSize int `envconfig:"CHAT_READ_BUFFER_SIZE" default:"4096"`
	// MaxFieldLen bounds a single frame field's declared byte length.
	MaxFieldLen int `envconfig:"CHAT_MAX_FIELD_LEN" default:"65536"`
	// RosterTTL is how long the managers-view reply may be served from cache.
	RosterTTL time.Duration `envconfig:"CHAT_ROSTER_TTL" default:"1s"`
	LogLevel  string        `envconfig:"CHAT_LOG_LEVEL" default:"info"`
	// LogFile, when set, receives a copy of the log stream.
	LogFile string `envconfig:"CHAT_LOG_FILE"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
