package client

import (
	"errors"
	"strings"

	"github.com/cyberinferno/go-chat/protocol"
)

// KickedNotice is the server text that tells a client it has been removed
// from the room. Receiving it means the server is about to close the
// transport; the client shuts down instead of waiting for the read error.
const KickedNotice = "You have been kicked from the chat."

// PrivateUsage is the hint printed when a /msg line cannot be split into a
// recipient and a message.
const PrivateUsage = "Invalid private message format. Use: /msg username message"

// ErrPrivateFormat reports a /msg line with no recipient or no message. It is
// a local input error; nothing is sent.
var ErrPrivateFormat = errors.New("client: invalid private message format")

// Sender is the outbound half of a chat transport.
type Sender interface {
	Send(data []byte) error
}

// Chat translates console input lines into wire requests for one username.
// Slash commands map to their dedicated action codes; everything else is sent
// as a chat action, including lines with the '!' private sigil, which the
// server re-routes itself.
type Chat struct {
	username string
	sender   Sender
}

// NewChat creates a Chat for the given username over the given transport.
//
// Parameters:
//   - username: The identity to declare as sender on every request
//   - sender: The transport to write encoded requests to
//
// Returns:
//   - A new Chat
func NewChat(username string, sender Sender) *Chat {
	return &Chat{username: username, sender: sender}
}

// Username returns the identity this chat sends as.
func (c *Chat) Username() string {
	return c.username
}

// Register sends the registration request. It must be the first message on a
// fresh connection.
//
// Returns:
//   - An error if the send fails
func (c *Chat) Register() error {
	return c.sender.Send(protocol.EncodeRequest(c.username, protocol.ActionRegister, "", ""))
}

// HandleInput translates one console line into a wire request and sends it.
//
// Parameters:
//   - line: The raw console input line
//
// Returns:
//   - done: true when the line was the quit sentinel and the session is over
//   - err: ErrPrivateFormat for an unsendable /msg line, or a send error
func (c *Chat) HandleInput(line string) (done bool, err error) {
	trimmed := strings.TrimSpace(line)

	switch {
	case trimmed == "quit":
		err = c.sender.Send(protocol.EncodeRequest(c.username, protocol.ActionChat, "", line))
		return true, err

	case strings.HasPrefix(line, "/promote "):
		target := strings.TrimSpace(strings.TrimPrefix(line, "/promote "))
		return false, c.sender.Send(protocol.EncodeRequest(c.username, protocol.ActionPromote, target, ""))

	case strings.HasPrefix(line, "/kick "):
		target := strings.TrimSpace(strings.TrimPrefix(line, "/kick "))
		return false, c.sender.Send(protocol.EncodeRequest(c.username, protocol.ActionKick, target, ""))

	case strings.HasPrefix(line, "/mute "):
		target := strings.TrimSpace(strings.TrimPrefix(line, "/mute "))
		return false, c.sender.Send(protocol.EncodeRequest(c.username, protocol.ActionMute, target, ""))

	case strings.HasPrefix(line, "/msg "):
		parts := strings.SplitN(line, " ", 3)
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return false, ErrPrivateFormat
		}

		return false, c.sender.Send(protocol.EncodeRequest(c.username, protocol.ActionPrivate, parts[1], parts[2]))

	default:
		return false, c.sender.Send(protocol.EncodeRequest(c.username, protocol.ActionChat, "", line))
	}
}
