package server

import (
	"github.com/cyberinferno/go-chat/protocol"
	"github.com/cyberinferno/go-chat/registry"
)

// unicast encodes and sends one reply to one session. A failed send means the
// recipient's transport is gone: the recipient is dropped through its own
// cleanup path, and the error never reaches the goroutine that triggered the
// send.
func (srv *Server) unicast(sess registry.Session, text string) {
	if err := sess.Send(protocol.EncodeReply(text)); err != nil {
		srv.dropSession(sess.ID())
	}
}

// broadcast sends text to every registered session except the excluded one.
// It iterates a point-in-time snapshot, so sessions joining or leaving during
// delivery are unaffected; a session that fails mid-broadcast is cleaned up
// without aborting delivery to the rest.
func (srv *Server) broadcast(text string, excluding registry.Session) {
	data := protocol.EncodeReply(text)

	for _, sess := range srv.Registry.Sessions() {
		if excluding != nil && sess.ID() == excluding.ID() {
			continue
		}

		if err := sess.Send(data); err != nil {
			srv.dropSession(sess.ID())
		}
	}
}

// dropSession runs the cleanup path for the session with the given ID, if it
// is still live.
func (srv *Server) dropSession(id uint32) {
	if s := srv.sessionByID(id); s != nil {
		s.cleanup()
	}
}
