// Package client implements the chat client: an event-driven TCP connection
// that decodes server reply frames as they arrive, the translation of console
// input lines into wire requests, and console rendering of received messages.
package client

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cyberinferno/go-chat/protocol"
)

// ConnectionState represents the current state of the TCP connection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota // Not connected
	Connecting                          // Connection attempt in progress
	Connected                           // Successfully connected
	Closed                              // Closed and unusable
)

// String returns a human-readable name for the connection state.
func (cs ConnectionState) String() string {
	switch cs {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// StateEvent is emitted when the connection state changes.
type StateEvent struct {
	State     ConnectionState
	Address   string
	Timestamp time.Time
	Err       error // Non-nil if the change was caused by an error
}

// MessageHandler is called with each decoded server message, in arrival
// order, from the read goroutine. It must not block for long; a slow handler
// stalls decoding.
type MessageHandler func(text string)

// StateHandler is called on connection state changes.
type StateHandler func(event StateEvent)

// ErrorHandler is called when a read, write, or framing error occurs.
type ErrorHandler func(err error)

// Config holds configuration for the chat connection.
type Config struct {
	// Address is the "host:port" of the chat server.
	Address string
	// ReadBufferSize is the read chunk size; default 4096.
	ReadBufferSize int
	// MaxFieldLen bounds a reply frame's declared length; default 64 KiB.
	MaxFieldLen int
	// WriteTimeout is the max duration for a single write; 0 means no timeout.
	WriteTimeout time.Duration
	// ConnectTimeout is the max duration for establishing the connection.
	ConnectTimeout time.Duration
}

// DefaultConfig returns a Config with default values for the given address.
//
// Parameters:
//   - address: The "host:port" to connect to
//
// Returns:
//   - A Config with defaults: ReadBufferSize 4096, WriteTimeout 10s,
//     ConnectTimeout 10s
func DefaultConfig(address string) Config {
	return Config{
		Address:        address,
		ReadBufferSize: 4096,
		MaxFieldLen:    protocol.DefaultMaxFieldLen,
		WriteTimeout:   10 * time.Second,
		ConnectTimeout: 10 * time.Second,
	}
}

// Conn is an event-driven connection to the chat server. Register handlers
// with OnMessage, OnState, and OnError, then call Connect. The read goroutine
// feeds a resumable frame decoder, so replies split across reads or coalesced
// into one read are delivered one OnMessage call each, in order. Safe for
// concurrent use.
type Conn struct {
	config Config

	mu     sync.RWMutex
	conn   net.Conn
	state  ConnectionState
	closed bool

	onMessage MessageHandler
	onState   StateHandler
	onError   ErrorHandler

	wg sync.WaitGroup
}

// NewConn creates a connection in Disconnected state; call Connect to dial.
//
// Parameters:
//   - config: Connection settings (e.g. from DefaultConfig)
//
// Returns:
//   - A new *Conn; call Close when done
func NewConn(config Config) *Conn {
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = 4096
	}

	return &Conn{
		config: config,
		state:  Disconnected,
	}
}

// OnMessage registers the handler for decoded server messages. Only one
// handler is active; repeated calls replace the previous one.
func (c *Conn) OnMessage(handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = handler
}

// OnState registers the handler for connection state changes.
func (c *Conn) OnState(handler StateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = handler
}

// OnError registers the handler for read, write, and framing errors.
func (c *Conn) OnError(handler ErrorHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = handler
}

// Connect establishes the TCP connection and starts the read goroutine.
//
// Returns:
//   - nil on success; an error if the client is closed, already connected,
//     or the dial fails
func (c *Conn) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("client is closed")
	}
	if c.state == Connected || c.state == Connecting {
		c.mu.Unlock()
		return fmt.Errorf("already connected or connecting")
	}
	c.mu.Unlock()

	c.setState(Connecting, nil)

	dialer := net.Dialer{Timeout: c.config.ConnectTimeout}
	conn, err := dialer.Dial("tcp", c.config.Address)
	if err != nil {
		c.setState(Disconnected, err)
		c.emitError(err)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.setState(Connected, nil)

	c.wg.Add(1)
	go c.readLoop()

	return nil
}

// Send writes an encoded request to the connection, limited by WriteTimeout
// when one is configured.
//
// Parameters:
//   - data: Bytes to send; not modified
//
// Returns:
//   - nil on success; an error if not connected or the write fails
func (c *Conn) Send(data []byte) error {
	c.mu.RLock()
	conn := c.conn
	state := c.state
	c.mu.RUnlock()

	if state != Connected || conn == nil {
		return fmt.Errorf("not connected")
	}

	if c.config.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
			return err
		}

		defer func() {
			_ = conn.SetWriteDeadline(time.Time{}) // Best effort to clear deadline
		}()
	}

	_, err := conn.Write(data)
	if err != nil {
		c.emitError(err)
	}

	return err
}

// Close shuts down the connection and stops the read goroutine. After Close
// the connection is in Closed state and must not be reused. Idempotent.
//
// Returns:
//   - nil
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}

	c.closed = true
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	c.wg.Wait()
	c.setState(Closed, nil)

	return nil
}

// State returns the current connection state.
func (c *Conn) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the connection is in Connected state.
func (c *Conn) IsConnected() bool {
	return c.State() == Connected
}

// readLoop reads transport chunks, feeds the resumable reply decoder, and
// emits one OnMessage call per complete frame. It exits on transport error,
// on a malformed frame, or when the connection is closed.
func (c *Conn) readLoop() {
	defer c.wg.Done()

	dec := protocol.NewReplyDecoder(c.config.MaxFieldLen)
	buf := make([]byte, c.config.ReadBufferSize)

	for {
		c.mu.RLock()
		conn := c.conn
		closed := c.closed
		c.mu.RUnlock()

		if conn == nil || closed {
			return
		}

		n, err := conn.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])

			for {
				text, derr := dec.Next()
				if errors.Is(derr, protocol.ErrTruncated) {
					break
				}

				if derr != nil {
					if !c.isClosed() {
						c.emitError(derr)
						c.setState(Disconnected, derr)
					}

					return
				}

				c.emitMessage(text)
			}
		}

		if err != nil {
			if !c.isClosed() {
				c.emitError(err)
				c.setState(Disconnected, err)
			}

			return
		}
	}
}

func (c *Conn) setState(state ConnectionState, err error) {
	c.mu.Lock()
	c.state = state
	handler := c.onState
	c.mu.Unlock()

	if handler != nil {
		handler(StateEvent{
			State:     state,
			Address:   c.config.Address,
			Timestamp: time.Now(),
			Err:       err,
		})
	}
}

func (c *Conn) emitMessage(text string) {
	c.mu.RLock()
	handler := c.onMessage
	c.mu.RUnlock()

	if handler != nil {
		handler(text)
	}
}

func (c *Conn) emitError(err error) {
	c.mu.RLock()
	handler := c.onError
	c.mu.RUnlock()

	if handler != nil {
		handler(err)
	}
}

func (c *Conn) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
