package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/cyberinferno/go-chat/client"
	"github.com/cyberinferno/go-chat/logger"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("chat-client", logger.ParseLevel(cfg.LogLevel))
	defer log.Close()

	stdin := bufio.NewScanner(os.Stdin)

	fmt.Print("Enter your username: ")
	if !stdin.Scan() {
		return
	}

	username := strings.TrimSpace(stdin.Text())
	if username == "" || strings.HasPrefix(username, "@") {
		fmt.Println("Username cannot start with '@'.")
		return
	}

	connCfg := client.DefaultConfig(cfg.ServerAddr)
	connCfg.WriteTimeout = cfg.WriteTimeout
	connCfg.ConnectTimeout = cfg.ConnectTimeout
	conn := client.NewConn(connCfg)

	done := make(chan struct{})
	var exitOnce sync.Once
	exit := func() {
		exitOnce.Do(func() {
			close(done)
		})
	}

	renderer := client.Renderer{Colours: cfg.Colours}

	conn.OnMessage(func(text string) {
		fmt.Println(renderer.Render(text))
		if text == client.KickedNotice {
			exit()
		}
	})

	conn.OnError(func(err error) {
		log.Warn("transport error", logger.Field{Key: "error", Value: err.Error()})
	})

	conn.OnState(func(ev client.StateEvent) {
		if ev.State == client.Disconnected && ev.Err != nil {
			fmt.Println("Connection closed by the server.")
			exit()
		}
	})

	if err := conn.Connect(); err != nil {
		fmt.Printf("Unable to connect to server: %v\n", err)
		return
	}

	chat := client.NewChat(username, conn)
	if err := chat.Register(); err != nil {
		fmt.Printf("Error sending message: %v\n", err)
		_ = conn.Close()
		return
	}

	// Stdin reads block, so the input loop gets its own goroutine and the
	// process exits via done regardless of which side ends the session.
	go func() {
		for stdin.Scan() {
			finished, err := chat.HandleInput(stdin.Text())
			if errors.Is(err, client.ErrPrivateFormat) {
				fmt.Println(client.PrivateUsage)
				continue
			}

			if err != nil {
				fmt.Printf("Error sending message: %v\n", err)
				exit()
				return
			}

			if finished {
				exit()
				return
			}
		}

		exit()
	}()

	<-done
	_ = conn.Close()
}
