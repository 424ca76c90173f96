package remote

import (
	"bufio"
	"io"

	"github.com/dubalu/xapiand-go/pkg/xerror"
	"google.golang.org/protobuf/encoding/protowire"
)

// Frame is one in-memory wire message: a type byte, a varint length,
// and a payload of that many bytes (spec.md §4.H framing
// "type:u8, length:varint, payload:bytes"). A FileFollows-typed frame
// is read through readHeader/Conn.receiveFile instead, since its body
// streams straight to a temp file rather than into memory.
type Frame struct {
	Type    byte
	Payload []byte
}

// WriteFrame writes frame to w as a header followed by its payload.
func WriteFrame(w io.Writer, frame Frame) error {
	header := protowire.AppendVarint([]byte{frame.Type}, uint64(len(frame.Payload)))
	if _, err := w.Write(header); err != nil {
		return xerror.Wrap(xerror.NetworkError, "writing frame header", err)
	}
	if len(frame.Payload) > 0 {
		if _, err := w.Write(frame.Payload); err != nil {
			return xerror.Wrap(xerror.NetworkError, "writing frame payload", err)
		}
	}
	return nil
}

// ReadFrame reads one complete frame from r, buffering its payload in
// memory. Callers that need to special-case FileFollows should use
// readHeader directly instead (see Conn.Serve).
func ReadFrame(r *bufio.Reader) (Frame, error) {
	typeByte, length, err := readHeader(r)
	if err != nil {
		return Frame{}, err
	}
	payload, err := readBody(r, length)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: typeByte, Payload: payload}, nil
}

// readHeader reads a frame's type byte and varint length, one byte at
// a time: the length is not known ahead of time on a live connection,
// so the continuation bit of each byte is checked as it arrives
// before protowire.ConsumeVarint decodes the accumulated bytes.
func readHeader(r *bufio.Reader) (byte, uint64, error) {
	typeByte, err := r.ReadByte()
	if err != nil {
		return 0, 0, xerror.Wrap(xerror.NetworkError, "reading frame type", err)
	}

	var raw []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, xerror.Wrap(xerror.NetworkError, "reading frame length", err)
		}
		raw = append(raw, b)
		if b < 0x80 {
			break
		}
	}
	length, n := protowire.ConsumeVarint(raw)
	if n < 0 {
		return 0, 0, xerror.New(xerror.ClientError, "malformed frame length")
	}
	return typeByte, length, nil
}

func readBody(r io.Reader, length uint64) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, xerror.Wrap(xerror.NetworkError, "reading frame payload", err)
	}
	return payload, nil
}

// EncodeVersion serializes a greeting payload (spec.md §4.H).
func EncodeVersion(v Version) []byte {
	buf := protowire.AppendVarint(nil, uint64(v.Major))
	buf = protowire.AppendVarint(buf, uint64(v.Minor))
	return buf
}

// DecodeVersion parses a greeting payload written by EncodeVersion.
func DecodeVersion(payload []byte) (Version, bool) {
	major, n := protowire.ConsumeVarint(payload)
	if n < 0 {
		return Version{}, false
	}
	minor, n2 := protowire.ConsumeVarint(payload[n:])
	if n2 < 0 {
		return Version{}, false
	}
	return Version{Major: uint32(major), Minor: uint32(minor)}, true
}

// EncodeException serializes an Exception reply's {error_kind,
// error_string} payload (spec.md §4.H "Errors surface via Exception
// replies carrying {error_kind, error_string}").
func EncodeException(kind xerror.Kind, message string) []byte {
	buf := protowire.AppendVarint(nil, uint64(kind))
	buf = protowire.AppendBytes(buf, []byte(message))
	return buf
}

// DecodeException parses an Exception reply's payload.
func DecodeException(payload []byte) (kind xerror.Kind, message string, ok bool) {
	kindVal, n := protowire.ConsumeVarint(payload)
	if n < 0 {
		return 0, "", false
	}
	msgBytes, n2 := protowire.ConsumeBytes(payload[n:])
	if n2 < 0 {
		return 0, "", false
	}
	return xerror.Kind(kindVal), string(msgBytes), true
}
