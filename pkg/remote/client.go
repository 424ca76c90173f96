package remote

import (
	"bufio"
	"net"

	"github.com/dubalu/xapiand-go/pkg/xerror"
)

// Client is the dialing side of the remote protocol: it drives the
// same greeting and framing pkg/remote's Conn serves, used by
// pkg/replication to pull changesets from another node (spec.md §4.H
// "Framed, bidirectional" and §4.J step 4 "Open a connection to
// src.node using H").
type Client struct {
	raw net.Conn
	r   *bufio.Reader
	w   *bufio.Writer
}

// Dial connects to addr and completes the protocol greeting.
func Dial(addr string) (*Client, error) {
	raw, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, xerror.Wrap(xerror.NetworkError, "dialing "+addr, err)
	}
	c := &Client{raw: raw, r: bufio.NewReader(raw), w: bufio.NewWriter(raw)}
	if err := c.greet(); err != nil {
		raw.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) greet() error {
	frame, err := ReadFrame(c.r)
	if err != nil {
		return xerror.Wrap(xerror.NetworkError, "reading peer greeting", err)
	}
	peer, ok := DecodeVersion(frame.Payload)
	if !ok {
		return xerror.New(xerror.ClientError, "malformed greeting")
	}
	if peer.Major > ProtocolMajor {
		return xerror.New(xerror.ClientError, "peer protocol major version is newer than supported")
	}
	if err := WriteFrame(c.w, Frame{Type: GreetingFrameType, Payload: EncodeVersion(Version{Major: ProtocolMajor, Minor: ProtocolMinor})}); err != nil {
		return err
	}
	return c.w.Flush()
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.raw.Close()
}

// Request sends msg and returns its single reply. It is not valid for
// messages whose reply is a stream (see Stream).
func (c *Client) Request(msg MessageType, payload []byte) (ReplyType, []byte, error) {
	if err := WriteFrame(c.w, Frame{Type: byte(msg), Payload: payload}); err != nil {
		return 0, nil, err
	}
	if err := c.w.Flush(); err != nil {
		return 0, nil, xerror.Wrap(xerror.NetworkError, "flushing request", err)
	}
	frame, err := ReadFrame(c.r)
	if err != nil {
		return 0, nil, xerror.Wrap(xerror.NetworkError, "reading reply", err)
	}
	reply := ReplyType(frame.Type)
	if reply == ReplyException {
		kind, message, ok := DecodeException(frame.Payload)
		if !ok {
			return 0, nil, xerror.New(xerror.ClientError, "malformed exception reply")
		}
		return reply, nil, xerror.New(kind, message)
	}
	if !AcceptsReply(msg, reply) {
		return 0, nil, xerror.New(xerror.ClientError, "unexpected reply type for request")
	}
	return reply, frame.Payload, nil
}

// Stream sends msg and invokes onFrame for every frame the peer emits
// in reply, in order, until a ReplyDone frame arrives (not passed to
// onFrame) or an Exception/transport error occurs. Frames are
// delivered one at a time rather than buffered, so a large changeset
// stream never needs to fit in memory at once. It is the client side
// of spec.md §4.H's "Replication subset" ("streamed Changeset(data)
// frames terminated by a Done").
func (c *Client) Stream(msg MessageType, payload []byte, onFrame func(Frame) error) error {
	if err := WriteFrame(c.w, Frame{Type: byte(msg), Payload: payload}); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return xerror.Wrap(xerror.NetworkError, "flushing request", err)
	}

	for {
		frame, err := ReadFrame(c.r)
		if err != nil {
			return xerror.Wrap(xerror.NetworkError, "reading streamed reply", err)
		}
		reply := ReplyType(frame.Type)
		if reply == ReplyException {
			kind, message, ok := DecodeException(frame.Payload)
			if !ok {
				return xerror.New(xerror.ClientError, "malformed exception reply")
			}
			return xerror.New(kind, message)
		}
		if reply == ReplyDone {
			return nil
		}
		if !AcceptsReply(msg, reply) {
			return xerror.New(xerror.ClientError, "unexpected reply type in stream")
		}
		if err := onFrame(frame); err != nil {
			return err
		}
	}
}
