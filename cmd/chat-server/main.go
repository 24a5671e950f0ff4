package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/registry"
	"github.com/cyberinferno/go-chat/server"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	level := logger.ParseLevel(cfg.LogLevel)

	var log logger.Logger
	if cfg.LogFile != "" {
		log, err = logger.NewWithFile("chat-server", cfg.LogFile, level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
			os.Exit(1)
		}
	} else {
		log = logger.New("chat-server", level)
	}
	defer func() {
		_ = log.Close()
	}()

	srv := server.New(server.Config{
		Addr:           cfg.Addr,
		ReadBufferSize: cfg.ReadBufferSize,
		MaxFieldLen:    cfg.MaxFieldLen,
		RosterTTL:      cfg.RosterTTL,
	}, registry.New(cfg.Managers...), log)

	if err := srv.Start(); err != nil {
		log.Error("startup failed", logger.Field{Key: "error", Value: err})
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	srv.Stop()
}
