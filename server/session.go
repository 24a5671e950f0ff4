package server

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/protocol"
)

// session owns one accepted connection. Its goroutine is the only reader of
// the transport; writes may come from any goroutine (broadcasts, kick
// notices) and are serialised by writeMu. The username is bound once, on the
// first valid register request, and never changes for the session lifetime.
type session struct {
	id   uint32
	conn net.Conn
	srv  *Server
	log  logger.Logger

	// username is written once by the owning goroutine during registration.
	// Other goroutines resolve identity through the registry instead.
	username string

	// kicked marks that the departure notice should name a kick, not a quit.
	// Set by the kicking goroutine before it runs this session's cleanup.
	kicked atomic.Bool

	writeMu     sync.Mutex
	closeOnce   sync.Once
	closeErr    error
	cleanupOnce sync.Once
}

func newSession(id uint32, conn net.Conn, srv *Server) *session {
	return &session{
		id:   id,
		conn: conn,
		srv:  srv,
		log: srv.Logger.With(
			logger.Field{Key: "session", Value: id},
			logger.Field{Key: "conn_id", Value: uuid.NewString()},
			logger.Field{Key: "remote", Value: conn.RemoteAddr().String()},
		),
	}
}

// ID implements registry.Session.
func (s *session) ID() uint32 {
	return s.id
}

// Send implements registry.Session. It is safe for concurrent use; broadcasts
// and the session's own replies may interleave but never corrupt a frame.
func (s *session) Send(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.Write(data)
	return err
}

// Close implements registry.Session. Closing is idempotent: the kick path and
// the session's own teardown may both call it without racing a double-close.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})

	return s.closeErr
}

// handle runs the session's read loop: block on the transport, feed whatever
// arrived into the resumable decoder, and dispatch every complete request.
// Partial frames stay buffered in the decoder; several frames coalesced into
// one read are dispatched in order. A malformed frame or transport error ends
// the session through the single cleanup path.
func (s *session) handle() {
	defer s.cleanup()

	s.log.Info("client connected")

	dec := protocol.NewRequestDecoder(s.srv.cfg.MaxFieldLen)
	buf := make([]byte, s.srv.cfg.ReadBufferSize)

	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])

			for {
				req, derr := dec.Next()
				if errors.Is(derr, protocol.ErrTruncated) {
					break
				}

				if derr != nil {
					s.log.Warn("closing session on malformed frame", logger.Field{Key: "error", Value: derr})
					return
				}

				if !s.srv.dispatch(s, req) {
					return
				}
			}
		}

		if err != nil {
			s.log.Debug("read loop ended", logger.Field{Key: "error", Value: err})
			return
		}
	}
}

// cleanup is the one teardown path for every way a session ends: explicit
// quit, kick, malformed frame, or transport failure. It runs at most once.
// The registry drop unbinds the identity, revokes its mute entry, and closes
// the transport as one atomic step; the departure notice goes out only after
// the room no longer resolves the username.
func (s *session) cleanup() {
	s.cleanupOnce.Do(func() {
		username := s.srv.Registry.Drop(s)
		s.srv.removeSession(s.id)

		if username == "" {
			s.log.Info("client disconnected")
			return
		}

		notice := username + " has left the chat!"
		if s.kicked.Load() {
			notice = username + " has been kicked from the chat!"
		}

		s.srv.broadcast(s.srv.timestamp()+" "+notice, s)
		s.log.Info("client disconnected", logger.Field{Key: "username", Value: username})
	})
}
