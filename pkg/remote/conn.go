package remote

import (
	"bufio"
	"errors"
	"io"
	"net"
	"os"

	"github.com/dubalu/xapiand-go/pkg/log"
	"github.com/dubalu/xapiand-go/pkg/xerror"
)

// State is a connection's position in the per-connection state
// machine (spec.md §4.H "State machine per connection").
type State int

const (
	StateInitRemote State = iota
	StateRemoteServer
	StateClosing
)

// Handler executes the operation a message requests and returns the
// reply to send back. pkg/remote owns only framing, versioning, and
// the connection state machine; Handler supplies the backend work —
// spec.md §4.H's message table names the operations, not how they
// reach storage (that is pkg/backend/pkg/dbpool's concern, reached
// through whatever Handler implementation cmd/xapiand wires up).
type Handler interface {
	Handle(msg MessageType, payload []byte) (reply ReplyType, replyPayload []byte, err error)
}

// ChangesetSource is implemented by Handlers that can serve spec.md
// §4.H's "Replication subset": GetChangesets streams every changeset
// in [startRev, endRev] (endRev of 0 meaning latest) to emit, in
// revision order, before returning. pkg/replication's Driver is the
// client side that consumes the resulting stream.
type ChangesetSource interface {
	Changesets(startRev, endRev uint64, emit func(revision uint64, data []byte) error) error
}

// Conn wraps one accepted connection through the remote protocol's
// greeting, state machine, and sequential message loop. Responses are
// written and flushed before the next request is read, so there is
// exactly one reader and one writer for the connection's lifetime;
// this is also what gives the backpressure spec.md §4.H calls for
// ("if full, reads are paused") for free — a stalled socket write
// stalls the same goroutine that would otherwise read the next
// request.
type Conn struct {
	raw     net.Conn
	r       *bufio.Reader
	w       *bufio.Writer
	handler Handler
	tempDir string

	state        State
	writableHeld bool
	files        []string
}

// NewConn wraps raw for the remote protocol, dispatching requests to
// handler. Files streamed via FileFollows frames are written under
// tempDir (os.TempDir() if empty).
func NewConn(raw net.Conn, handler Handler, tempDir string) *Conn {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Conn{
		raw:     raw,
		r:       bufio.NewReader(raw),
		w:       bufio.NewWriter(raw),
		handler: handler,
		tempDir: tempDir,
	}
}

// Files lists the temp-file paths received so far via FileFollows
// frames, in arrival order (spec.md §4.H "the receiver writes it to a
// temp path and records it in the connection's file list").
func (c *Conn) Files() []string {
	out := make([]string, len(c.files))
	copy(out, c.files)
	return out
}

// Serve negotiates the greeting, then processes messages sequentially
// until Shutdown, connection close, or an unrecoverable transport
// error.
func (c *Conn) Serve() error {
	logger := log.WithComponent("remote")

	if err := c.greet(); err != nil {
		return err
	}

	for {
		typeByte, length, err := readHeader(c.r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if typeByte == FileFollows {
			path, err := c.receiveFile(length)
			if err != nil {
				return err
			}
			c.files = append(c.files, path)
			continue
		}

		msg := MessageType(typeByte)

		if msg == MsgKeepAlive {
			if _, err := readBody(c.r, length); err != nil {
				return err
			}
			if err := c.reply(Frame{Type: typeByte}); err != nil {
				return err
			}
			continue
		}

		if msg == MsgShutdown {
			c.state = StateClosing
			return c.w.Flush()
		}

		payload, err := readBody(c.r, length)
		if err != nil {
			return err
		}

		if c.state == StateInitRemote && (msg == MsgReadAccess || msg == MsgWriteAccess) {
			c.state = StateRemoteServer
		}

		if msg == MsgWriteAccess {
			if c.writableHeld {
				if err := c.replyException(xerror.AlreadyLocked, "endpoint already held for write"); err != nil {
					return err
				}
				continue
			}
			c.writableHeld = true
		}

		if msg == MsgGetChangesets {
			if err := c.serveChangesets(payload); err != nil {
				return err
			}
			continue
		}

		replyType, replyPayload, herr := c.handler.Handle(msg, payload)
		if herr != nil {
			logger.Warn().Err(herr).Uint8("message", uint8(msg)).Msg("remote: request failed")
			if err := c.replyException(xerror.KindOf(herr), herr.Error()); err != nil {
				return err
			}
			continue
		}
		if err := c.reply(Frame{Type: byte(replyType), Payload: replyPayload}); err != nil {
			return err
		}
	}
}

func (c *Conn) greet() error {
	if err := c.reply(Frame{Type: GreetingFrameType, Payload: EncodeVersion(Version{Major: ProtocolMajor, Minor: ProtocolMinor})}); err != nil {
		return xerror.Wrap(xerror.NetworkError, "sending greeting", err)
	}
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
	return nil
}

func (c *Conn) reply(frame Frame) error {
	if err := WriteFrame(c.w, frame); err != nil {
		return err
	}
	if err := c.w.Flush(); err != nil {
		return xerror.Wrap(xerror.NetworkError, "flushing reply", err)
	}
	return nil
}

func (c *Conn) replyException(kind xerror.Kind, message string) error {
	return c.reply(Frame{Type: byte(ReplyException), Payload: EncodeException(kind, message)})
}

// serveChangesets answers a GetChangesets request by streaming
// ReplyChangeset frames followed by a terminating ReplyDone, per
// spec.md §4.H's "Replication subset".
func (c *Conn) serveChangesets(payload []byte) error {
	startRev, endRev, ok := DecodeGetChangesets(payload)
	if !ok {
		return c.replyException(xerror.ClientError, "malformed GetChangesets payload")
	}
	source, ok := c.handler.(ChangesetSource)
	if !ok {
		return c.replyException(xerror.ClientError, "handler does not support replication")
	}
	err := source.Changesets(startRev, endRev, func(revision uint64, data []byte) error {
		return c.reply(Frame{Type: byte(ReplyChangeset), Payload: EncodeChangeset(revision, data)})
	})
	if err != nil {
		return c.replyException(xerror.KindOf(err), err.Error())
	}
	return c.reply(Frame{Type: byte(ReplyDone)})
}

func (c *Conn) receiveFile(length uint64) (string, error) {
	f, err := os.CreateTemp(c.tempDir, "remote-file-*")
	if err != nil {
		return "", xerror.Wrap(xerror.NetworkError, "creating temp file for file-follows payload", err)
	}
	defer f.Close()
	if _, err := io.CopyN(f, c.r, int64(length)); err != nil {
		return "", xerror.Wrap(xerror.NetworkError, "streaming file-follows payload", err)
	}
	return f.Name(), nil
}

