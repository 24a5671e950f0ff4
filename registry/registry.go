// Package registry holds the single source of truth for who is in the chat
// room: the binding between live sessions and usernames, the manager role
// set, and the mute set. Every compound read-modify-write the dispatcher
// needs (promote-if-absent, mute-if-absent, drop-and-close) happens under one
// lock, so concurrent connection goroutines can never observe a half-applied
// mutation or double-close a kicked session's transport.
package registry

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// Session is the registry's view of one live connection. The server's
// concrete session type implements it; the registry never reaches past this
// interface into transport details.
type Session interface {
	// ID returns the session's unique identifier for the process lifetime.
	ID() uint32

	// Send writes an encoded frame to the session's transport. Safe for
	// concurrent use.
	Send(data []byte) error

	// Close closes the session's transport. Safe to call multiple times.
	Close() error
}

// ErrUsernameRejected reports a registration attempt with a reserved or empty
// username. The '@' sigil is reserved for rendering manager display names.
var ErrUsernameRejected = errors.New("registry: username rejected")

// Registry is the concurrency-safe room state. Roles and mute status are
// keyed by username, not by session, so a manager keeps the role across
// reconnects within the process lifetime; mute entries, by contrast, are
// revoked when their session leaves.
//
// Username uniqueness is not enforced: registering a name already in the
// room rebinds lookups to the newest session, matching the behavior this
// service replaces. A Registry must not be copied after first use.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]Session
	names    map[uint32]string
	managers map[string]struct{}
	muted    map[string]struct{}
}

// New creates a Registry seeded with the given manager usernames. Seeded
// managers hold the role before (and regardless of) ever connecting.
//
// Parameters:
//   - seedManagers: Usernames granted the manager role at startup
//
// Returns:
//   - A new empty Registry
func New(seedManagers ...string) *Registry {
	r := &Registry{
		byName:   make(map[string]Session),
		names:    make(map[uint32]string),
		managers: make(map[string]struct{}),
		muted:    make(map[string]struct{}),
	}

	for _, name := range seedManagers {
		if name = strings.TrimSpace(name); name != "" {
			r.managers[name] = struct{}{}
		}
	}

	return r
}

// Register binds a username to a session. It rejects empty usernames and
// usernames starting with '@'.
//
// Parameters:
//   - sess: The session to bind
//   - username: The identity to bind it to
//
// Returns:
//   - ErrUsernameRejected if the username is reserved or empty, nil otherwise
func (r *Registry) Register(sess Session, username string) error {
	if username == "" || strings.HasPrefix(username, "@") {
		return ErrUsernameRejected
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byName[username] = sess
	r.names[sess.ID()] = username
	return nil
}

// Drop removes a session from the room, revokes its username's mute entry,
// and closes its transport, all under the registry lock so no observer sees
// the user present with a dead transport or vice versa. It is the one removal
// path for quits, kicks, and transport failures alike; dropping an unknown or
// already-dropped session only closes the transport again, which sessions
// make idempotent.
//
// Parameters:
//   - sess: The session to remove
//
// Returns:
//   - The username the session was bound to, or "" if it never registered
func (r *Registry) Drop(sess Session) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	username := r.names[sess.ID()]
	delete(r.names, sess.ID())

	if username != "" {
		delete(r.muted, username)
		// Another session may have rebound the name in the meantime; only
		// release it if it still points at the session being dropped.
		if cur, ok := r.byName[username]; ok && cur.ID() == sess.ID() {
			delete(r.byName, username)
		}
	}

	_ = sess.Close()
	return username
}

// Lookup resolves a username to its live session.
//
// Parameters:
//   - username: The username to resolve
//
// Returns:
//   - The session and true if the user is in the room, false otherwise
func (r *Registry) Lookup(username string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.byName[username]
	return sess, ok
}

// Username returns the identity bound to the given session ID, or "" if the
// session never registered.
func (r *Registry) Username(sessionID uint32) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names[sessionID]
}

// IsManager reports whether the username holds the manager role.
func (r *Registry) IsManager(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.managers[username]
	return ok
}

// Promote grants the manager role to a username. The check and the grant are
// one atomic step, so concurrent promotes of the same user cannot duplicate
// the entry.
//
// Parameters:
//   - username: The username to promote
//
// Returns:
//   - true if the role was granted, false if the user was already a manager
func (r *Registry) Promote(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.managers[username]; ok {
		return false
	}

	r.managers[username] = struct{}{}
	return true
}

// ManagerNames returns a sorted snapshot of all manager usernames.
func (r *Registry) ManagerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.managers))
	for name := range r.managers {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// Mute adds a username to the mute set. Check and add are one atomic step.
//
// Parameters:
//   - username: The username to mute
//
// Returns:
//   - true if the user was muted, false if already muted
func (r *Registry) Mute(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.muted[username]; ok {
		return false
	}

	r.muted[username] = struct{}{}
	return true
}

// IsMuted reports whether the username is currently muted.
func (r *Registry) IsMuted(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.muted[username]
	return ok
}

// Sessions returns a point-in-time snapshot of all registered sessions, for
// broadcast iteration. Delivery failures discovered while walking the
// snapshot are the caller's problem; the snapshot itself never goes stale
// under its feet.
func (r *Registry) Sessions() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]Session, 0, len(r.byName))
	for _, sess := range r.byName {
		sessions = append(sessions, sess)
	}

	return sessions
}

// Len returns the number of registered users in the room.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
