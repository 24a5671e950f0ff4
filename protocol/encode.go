package protocol

import "strconv"

// AppendField appends one length-prefixed field to dst and returns the
// extended slice: the field's byte length in decimal ASCII, immediately
// followed by the field bytes.
//
// Parameters:
//   - dst: The buffer to append to (may be nil)
//   - field: The field content
//
// Returns:
//   - The extended buffer
func AppendField(dst []byte, field string) []byte {
	dst = strconv.AppendInt(dst, int64(len(field)), 10)
	return append(dst, field...)
}

// EncodeFields encodes an ordered sequence of fields back-to-back with no
// delimiters between them.
//
// Parameters:
//   - fields: The fields to encode, in wire order
//
// Returns:
//   - The encoded bytes
func EncodeFields(fields ...string) []byte {
	var b []byte
	for _, f := range fields {
		b = AppendField(b, f)
	}

	return b
}

// EncodeRequest encodes one client-to-server message: the sender field, the
// action code as a single ASCII digit, and the action's own fields. Target
// and text are included only where the action's shape defines them; register
// carries neither.
//
// Parameters:
//   - sender: The sending username
//   - action: The action code
//   - target: The target username (promote, kick, mute, private)
//   - text: The message payload (chat, private)
//
// Returns:
//   - The encoded request bytes, ready to write to the transport
func EncodeRequest(sender string, action Action, target, text string) []byte {
	b := AppendField(nil, sender)
	b = append(b, byte('0')+byte(action))

	switch action {
	case ActionChat:
		b = AppendField(b, text)
	case ActionPromote, ActionKick, ActionMute:
		b = AppendField(b, target)
	case ActionPrivate:
		b = AppendField(b, target)
		b = AppendField(b, text)
	}

	return b
}

// EncodeReply encodes one server-to-client message: a single length-prefixed
// text frame.
//
// Parameters:
//   - text: The reply or broadcast text
//
// Returns:
//   - The encoded reply bytes
func EncodeReply(text string) []byte {
	return AppendField(nil, text)
}
