package protocol

import "fmt"

// scanner walks a buffer according to the frame grammar without consuming it.
// A length is a greedy run of ASCII digits with no leading zeros; the run is
// terminated by the first non-digit byte, which is the start of the field
// content. Callers only advance the owning decoder's buffer once a whole
// message has scanned cleanly, so a truncated scan leaves everything intact
// for the next attempt.
type scanner struct {
	data []byte
	pos  int
	max  int
}

// length reads one decimal field length.
func (s *scanner) length() (int, error) {
	if s.pos >= len(s.data) {
		return 0, ErrTruncated
	}

	c := s.data[s.pos]
	if c < '0' || c > '9' {
		return 0, fmt.Errorf("%w: length byte %q is not a digit", ErrMalformed, c)
	}

	if c == '0' {
		// Lengths carry no leading zeros, so a zero length is exactly one byte.
		s.pos++
		return 0, nil
	}

	n := 0
	for s.pos < len(s.data) {
		c = s.data[s.pos]
		if c < '0' || c > '9' {
			return n, nil
		}

		n = n*10 + int(c-'0')
		if n > s.max {
			return 0, fmt.Errorf("%w: declared length %d exceeds maximum %d", ErrMalformed, n, s.max)
		}

		s.pos++
	}

	// The buffer ended inside the digit run; more digits may still arrive.
	return 0, ErrTruncated
}

// field reads one length-prefixed field.
func (s *scanner) field() (string, error) {
	n, err := s.length()
	if err != nil {
		return "", err
	}

	if s.pos+n > len(s.data) {
		return "", ErrTruncated
	}

	f := string(s.data[s.pos : s.pos+n])
	s.pos += n
	return f, nil
}

// actionCode reads the fixed-width single-digit action code.
func (s *scanner) actionCode() (Action, error) {
	if s.pos >= len(s.data) {
		return 0, ErrTruncated
	}

	c := s.data[s.pos]
	if c < '0' || c > '9' {
		return 0, fmt.Errorf("%w: action code byte %q is not a digit", ErrMalformed, c)
	}

	s.pos++
	return Action(c - '0'), nil
}

// RequestDecoder is the server-side resumable frame decoder. Feed it raw
// bytes as they arrive from the transport and drain complete requests with
// Next; partial frames stay buffered across calls, and several frames fed in
// one chunk come back one Next call at a time, in order.
type RequestDecoder struct {
	buf      []byte
	maxField int
}

// NewRequestDecoder creates a RequestDecoder that rejects any field whose
// declared length exceeds maxFieldLen. A maxFieldLen of zero or below falls
// back to DefaultMaxFieldLen.
//
// Parameters:
//   - maxFieldLen: Upper bound on a single field's declared byte length
//
// Returns:
//   - A new RequestDecoder with an empty buffer
func NewRequestDecoder(maxFieldLen int) *RequestDecoder {
	if maxFieldLen <= 0 {
		maxFieldLen = DefaultMaxFieldLen
	}

	return &RequestDecoder{maxField: maxFieldLen}
}

// Feed appends raw transport bytes to the decoder's buffer.
//
// Parameters:
//   - p: The received bytes; the decoder keeps its own copy
func (d *RequestDecoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of bytes held back waiting for a complete frame.
func (d *RequestDecoder) Buffered() int {
	return len(d.buf)
}

// Next decodes the next complete request from the buffer and consumes its
// bytes. The number of fields read after the action code is fixed per action;
// an unknown (but well-formed) action code decodes with no further fields so
// the caller can reject it without killing the connection.
//
// Returns:
//   - The decoded request, or a zero Request with ErrTruncated when more
//     bytes are needed, or with ErrMalformed when the stream is corrupt
func (d *RequestDecoder) Next() (Request, error) {
	s := scanner{data: d.buf, max: d.maxField}

	sender, err := s.field()
	if err != nil {
		return Request{}, err
	}

	action, err := s.actionCode()
	if err != nil {
		return Request{}, err
	}

	req := Request{Sender: sender, Action: action}

	switch action {
	case ActionRegister:
		// Username only; no trailing fields.
	case ActionChat:
		req.Text, err = s.field()
	case ActionPromote, ActionKick, ActionMute:
		req.Target, err = s.field()
	case ActionPrivate:
		req.Target, err = s.field()
		if err == nil {
			req.Text, err = s.field()
		}
	}

	if err != nil {
		return Request{}, err
	}

	d.buf = d.buf[s.pos:]
	return req, nil
}

// ReplyDecoder is the client-side resumable decoder for server replies and
// broadcasts, which are single length-prefixed text frames.
type ReplyDecoder struct {
	buf      []byte
	maxField int
}

// NewReplyDecoder creates a ReplyDecoder with the given field length bound;
// zero or below falls back to DefaultMaxFieldLen.
func NewReplyDecoder(maxFieldLen int) *ReplyDecoder {
	if maxFieldLen <= 0 {
		maxFieldLen = DefaultMaxFieldLen
	}

	return &ReplyDecoder{maxField: maxFieldLen}
}

// Feed appends raw transport bytes to the decoder's buffer.
func (d *ReplyDecoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of bytes held back waiting for a complete frame.
func (d *ReplyDecoder) Buffered() int {
	return len(d.buf)
}

// Next decodes the next complete reply text and consumes its bytes.
//
// Returns:
//   - The reply text, or ErrTruncated when more bytes are needed, or
//     ErrMalformed when the stream is corrupt
func (d *ReplyDecoder) Next() (string, error) {
	s := scanner{data: d.buf, max: d.maxField}

	text, err := s.field()
	if err != nil {
		return "", err
	}

	d.buf = d.buf[s.pos:]
	return text, nil
}
