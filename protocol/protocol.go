// Package protocol implements the chat wire format shared by the client and
// the server. Every field of a message is encoded as its decimal ASCII byte
// length immediately followed by the field bytes, with no delimiters; the one
// exception is the action code, which travels as a single fixed-width ASCII
// digit. How many length-prefixed fields follow the action code is a static
// property of each action, so decoding never has to guess field boundaries
// from content.
package protocol

import "errors"

// Action identifies what a client request asks the server to do.
type Action byte

const (
	ActionRegister Action = iota // Bind a username to the connection (first message only)
	ActionChat                   // Public chat line, or a server-side command payload
	ActionPromote                // Promote the target username to manager
	ActionKick                   // Disconnect the target username
	ActionMute                   // Forbid the target username from speaking
	ActionPrivate                // Private message to the target username
)

// String returns a human-readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionRegister:
		return "register"
	case ActionChat:
		return "chat"
	case ActionPromote:
		return "promote"
	case ActionKick:
		return "kick"
	case ActionMute:
		return "mute"
	case ActionPrivate:
		return "private"
	default:
		return "unknown"
	}
}

// Known reports whether the action code is one the server has a handler for.
// Unknown-but-well-formed codes are decoded anyway so the server can reply
// with a rejection instead of dropping the connection.
func (a Action) Known() bool {
	return a <= ActionPrivate
}

// Request is one fully decoded client-to-server message.
//
// Target is set for promote, kick, mute and private actions; Text is set for
// chat and private actions. Register carries only the sender.
type Request struct {
	Sender string
	Action Action
	Target string
	Text   string
}

// DefaultMaxFieldLen is the default upper bound on a single field's declared
// byte length. A length above the configured bound is treated as a malformed
// frame, not as a request to buffer that many bytes.
const DefaultMaxFieldLen = 64 * 1024

var (
	// ErrTruncated reports that the buffered bytes end before a complete
	// message. It is not fatal: the caller keeps the residue and feeds more
	// bytes as they arrive.
	ErrTruncated = errors.New("protocol: truncated frame")

	// ErrMalformed reports an unrecoverable framing violation (non-digit
	// length or action byte, or a declared length above the configured
	// maximum). The owning connection must be closed.
	ErrMalformed = errors.New("protocol: malformed frame")
)
