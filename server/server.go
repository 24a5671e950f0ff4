// Package server implements the chat server: a TCP accept loop that hands
// each connection to its own session goroutine, the command dispatcher that
// interprets decoded requests, and unicast/broadcast delivery back out to the
// room. Shared room state lives in the registry; everything else is owned by
// exactly one session.
package server

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/registry"
)

// Config carries the server's tunables. Zero values fall back to the
// defaults used in production.
type Config struct {
	// Addr is the "host:port" to listen on.
	Addr string
	// ReadBufferSize is the per-connection read chunk size; default 4096.
	ReadBufferSize int
	// MaxFieldLen bounds a single frame field's declared length; default 64 KiB.
	MaxFieldLen int
	// RosterTTL is how long a managers-view reply may be served from cache;
	// default one second.
	RosterTTL time.Duration
}

// Server accepts chat connections and runs one session goroutine per
// connection. Start binds the listener and begins accepting; Stop closes the
// listener and every live session.
type Server struct {
	Logger   logger.Logger
	Registry *registry.Registry

	cfg      Config
	listener net.Listener
	running  atomic.Bool
	nextID   atomic.Uint32
	roster   *rosterCache
	now      func() time.Time

	mu       sync.Mutex
	sessions map[uint32]*session
}

// New creates a Server for the given registry and config.
//
// Parameters:
//   - cfg: Listen address and tunables
//   - reg: The room registry, seeded with manager usernames
//   - log: Structured logger; nil falls back to a discard logger
//
// Returns:
//   - A Server ready to Start
func New(cfg Config, reg *registry.Registry, log logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}

	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 4096
	}

	if cfg.RosterTTL <= 0 {
		cfg.RosterTTL = time.Second
	}

	return &Server{
		Logger:   log,
		Registry: reg,
		cfg:      cfg,
		roster:   newRosterCache(cfg.RosterTTL),
		now:      time.Now,
		sessions: make(map[uint32]*session),
	}
}

// Start binds to the configured address and begins the accept loop in a
// goroutine. It is safe to call only when the server is not already running.
//
// Returns:
//   - An error if the server is already running or if listening fails
func (srv *Server) Start() error {
	if srv.running.Load() {
		srv.Logger.Error("server already running")
		return fmt.Errorf("chat server already running")
	}

	ln, err := net.Listen("tcp", srv.cfg.Addr)
	if err != nil {
		srv.Logger.Error("server failed to start", logger.Field{Key: "error", Value: err})
		return fmt.Errorf("chat server failed to start: %w", err)
	}

	srv.listener = ln
	srv.running.Store(true)

	srv.Logger.Info("chat server started", logger.Field{Key: "addr", Value: ln.Addr().String()})
	go srv.acceptLoop()

	return nil
}

// Stop stops the server: it closes the listener and the transport of every
// live session, which makes each session goroutine run its own cleanup path.
// Safe to call when the server is not running.
func (srv *Server) Stop() {
	if !srv.running.Load() {
		srv.Logger.Info("chat server not running")
		return
	}

	srv.running.Store(false)
	if srv.listener != nil {
		_ = srv.listener.Close()
	}

	srv.mu.Lock()
	live := make([]*session, 0, len(srv.sessions))
	for _, s := range srv.sessions {
		live = append(live, s)
	}
	srv.mu.Unlock()

	for _, s := range live {
		_ = s.Close()
	}

	srv.Logger.Info("chat server stopped")
}

// ListenAddr returns the bound listener address, e.g. for a server started on
// port 0. Empty when the server is not running.
func (srv *Server) ListenAddr() string {
	if srv.listener == nil {
		return ""
	}

	return srv.listener.Addr().String()
}

// acceptLoop accepts incoming connections, assigns each a session ID, and
// runs the session in a new goroutine. It exits when the server is stopped.
func (srv *Server) acceptLoop() {
	for srv.running.Load() {
		conn, err := srv.listener.Accept()
		if err != nil {
			if !srv.running.Load() {
				return
			}

			srv.Logger.Error("accept error", logger.Field{Key: "error", Value: err})
			continue
		}

		s := newSession(srv.nextID.Add(1), conn, srv)
		srv.addSession(s)
		go s.handle()
	}
}

func (srv *Server) addSession(s *session) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.sessions[s.id] = s
}

func (srv *Server) removeSession(id uint32) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	delete(srv.sessions, id)
}

func (srv *Server) sessionByID(id uint32) *session {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.sessions[id]
}

// timestamp renders the wall-clock prefix carried by chat lines and room
// notices, matching the wire format's HH:MM convention.
func (srv *Server) timestamp() string {
	return srv.now().Format("15:04")
}
