package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/protocol"
	"github.com/cyberinferno/go-chat/registry"
)

// quitSentinel is the trimmed chat payload that ends the sender's session.
const quitSentinel = "quit"

// managersViewCommand is the reserved chat payload that returns the manager
// roster instead of being broadcast.
const managersViewCommand = "managers-view"

// privateSigil re-routes a chat payload as a private message: "!target text".
const privateSigil = '!'

// dispatch runs one decoded request through the per-session state machine.
// An unregistered session accepts only the register action; once registered,
// every request's declared sender must match the bound identity. All
// per-request failures are recoverable - they reply to the offending session
// and keep it alive. The return value is false only when the session must
// end: an explicit quit or a rejected registration.
func (srv *Server) dispatch(s *session, req protocol.Request) bool {
	if s.username == "" {
		if req.Action != protocol.ActionRegister {
			srv.unicast(s, "You must register first.")
			return true
		}

		return srv.handleRegister(s, req)
	}

	if req.Sender != s.username {
		srv.unicast(s, "Username mismatch.")
		return true
	}

	switch req.Action {
	case protocol.ActionRegister:
		srv.unicast(s, "You are already registered.")
		return true
	case protocol.ActionChat:
		return srv.handleChat(s, req)
	case protocol.ActionPromote:
		srv.handlePromote(s, req)
	case protocol.ActionKick:
		srv.handleKick(s, req)
	case protocol.ActionMute:
		srv.handleMute(s, req)
	case protocol.ActionPrivate:
		srv.handlePrivate(s, req)
	default:
		srv.unicast(s, "Invalid action code.")
	}

	return true
}

// handleRegister binds the declared sender as the session's identity and
// announces the arrival to the rest of the room. A reserved username is
// rejected and the connection closed, so the client can prompt again on a
// fresh connection.
func (srv *Server) handleRegister(s *session, req protocol.Request) bool {
	if err := srv.Registry.Register(s, req.Sender); err != nil {
		if errors.Is(err, registry.ErrUsernameRejected) {
			srv.unicast(s, "Username cannot start with '@'.")
		}

		return false
	}

	s.username = req.Sender
	s.log.Info("client registered", logger.Field{Key: "username", Value: s.username})

	srv.broadcast(fmt.Sprintf("%s %s has joined the chat!", srv.timestamp(), s.username), s)
	return true
}

// handleChat processes a public chat line. The payload doubles as the command
// channel: the quit sentinel ends the session, managers-view answers with the
// roster, and a leading '!' re-routes the line as a private message. Anything
// else is broadcast to the room, with the sender's display name carrying the
// '@' prefix when the sender is a manager.
func (srv *Server) handleChat(s *session, req protocol.Request) bool {
	text := req.Text

	if strings.TrimSpace(text) == quitSentinel {
		return false
	}

	if srv.Registry.IsMuted(s.username) {
		srv.unicast(s, "You cannot speak here.")
		return true
	}

	if strings.TrimSpace(text) == managersViewCommand {
		srv.unicast(s, srv.managersView())
		return true
	}

	if len(text) > 0 && text[0] == privateSigil {
		sep := strings.Index(text, " ")
		if sep == -1 {
			srv.unicast(s, "Invalid private message format.")
			return true
		}

		srv.sendPrivate(s, text[1:sep], text[sep+1:])
		return true
	}

	display := s.username
	if srv.Registry.IsManager(s.username) {
		display = "@" + s.username
	}

	srv.broadcast(fmt.Sprintf("%s %s: %s", srv.timestamp(), display, text), s)
	return true
}

// handlePromote grants the manager role to the target. Promotion is
// idempotent; promoting an existing manager only informs the sender.
func (srv *Server) handlePromote(s *session, req protocol.Request) {
	if !srv.Registry.IsManager(s.username) {
		srv.unicast(s, "Only managers can promote users.")
		return
	}

	if !srv.Registry.Promote(req.Target) {
		srv.unicast(s, fmt.Sprintf("%s is already a manager.", req.Target))
		return
	}

	srv.roster.invalidate()
	s.log.Info("user promoted",
		logger.Field{Key: "by", Value: s.username},
		logger.Field{Key: "target", Value: req.Target},
	)
	srv.unicast(s, fmt.Sprintf("%s has been promoted to manager.", req.Target))
}

// handleKick disconnects the target: the target is told first, then dropped
// through the single cleanup path (which closes its transport and revokes any
// mute entry), and only then does the room hear it left. Running cleanup
// before the departure broadcast keeps the kicked connection from observing
// stale room state.
func (srv *Server) handleKick(s *session, req protocol.Request) {
	if !srv.Registry.IsManager(s.username) {
		srv.unicast(s, "Only managers can kick users.")
		return
	}

	target, ok := srv.Registry.Lookup(req.Target)
	if !ok {
		srv.unicast(s, fmt.Sprintf("User %s not found.", req.Target))
		return
	}

	ts := srv.sessionByID(target.ID())
	if ts == nil {
		srv.unicast(s, fmt.Sprintf("User %s not found.", req.Target))
		return
	}

	srv.unicast(target, "You have been kicked from the chat.")
	ts.kicked.Store(true)
	ts.cleanup()

	s.log.Info("user kicked",
		logger.Field{Key: "by", Value: s.username},
		logger.Field{Key: "target", Value: req.Target},
	)
}

// handleMute adds the target to the mute set. Muting is idempotent; a
// connected target is notified, but the mute applies to the username whether
// or not it is currently in the room.
func (srv *Server) handleMute(s *session, req protocol.Request) {
	if !srv.Registry.IsManager(s.username) {
		srv.unicast(s, "Only managers can mute users.")
		return
	}

	if !srv.Registry.Mute(req.Target) {
		srv.unicast(s, fmt.Sprintf("%s is already muted.", req.Target))
		return
	}

	srv.unicast(s, fmt.Sprintf("%s has been muted.", req.Target))

	if target, ok := srv.Registry.Lookup(req.Target); ok {
		srv.unicast(target, "You have been muted by a manager.")
	}
}

// handlePrivate delivers a direct message addressed by username.
func (srv *Server) handlePrivate(s *session, req protocol.Request) {
	if srv.Registry.IsMuted(s.username) {
		srv.unicast(s, "You cannot speak here.")
		return
	}

	srv.sendPrivate(s, req.Target, req.Text)
}

// sendPrivate resolves the recipient and delivers the formatted message to
// both the recipient and the sender. The echo to the sender is intentional:
// it is the sender's only confirmation, since there is no separate
// acknowledgment channel.
func (srv *Server) sendPrivate(s *session, target, text string) {
	recipient, ok := srv.Registry.Lookup(target)
	if !ok {
		srv.unicast(s, fmt.Sprintf("User %s not found.", target))
		return
	}

	msg := fmt.Sprintf("%s !%s: %s", srv.timestamp(), s.username, text)
	srv.unicast(s, msg)
	srv.unicast(recipient, msg)
}
