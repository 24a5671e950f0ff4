package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ServerAddr is the "host:port" of the chat server.
	ServerAddr string `envconfig:"CHAT_SERVER_ADDR" default:"127.0.0.1:12345"`
	// Colours enables colorized console output.
	Colours        bool          `envconfig:"CHAT_COLOURS" default:"true"`
	WriteTimeout   time.Duration `envconfig:"CHAT_WRITE_TIMEOUT" default:"10s"`
	ConnectTimeout time.Duration `envconfig:"CHAT_CONNECT_TIMEOUT" default:"10s"`
	// LogLevel controls diagnostics; "error" keeps the console clean for chat.
	LogLevel string `envconfig:"CHAT_LOG_LEVEL" default:"error"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
