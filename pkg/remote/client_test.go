package remote

import (
	"net"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changesetHandler struct {
	stubHandler
	changesets []struct {
		rev  uint64
		data []byte
	}
}

func (h *changesetHandler) Changesets(startRev, endRev uint64, emit func(revision uint64, data []byte) error) error {
	for _, cs := range h.changesets {
		if cs.rev < startRev {
			continue
		}
		if endRev != 0 && cs.rev > endRev {
			continue
		}
		if err := emit(cs.rev, cs.data); err != nil {
			return err
		}
	}
	return nil
}

func TestGetChangesetsPayloadRoundTrip(t *testing.T) {
	payload := EncodeGetChangesets(10, 20)
	startRev, endRev, ok := DecodeGetChangesets(payload)
	require.True(t, ok)
	assert.Equal(t, uint64(10), startRev)
	assert.Equal(t, uint64(20), endRev)
}

func TestChangesetPayloadRoundTrip(t *testing.T) {
	payload := EncodeChangeset(7, []byte("changeset-bytes"))
	revision, data, ok := DecodeChangeset(payload)
	require.True(t, ok)
	assert.Equal(t, uint64(7), revision)
	assert.Equal(t, []byte("changeset-bytes"), data)
}

func startTestServer(t *testing.T, handler Handler) string {
	t.Helper()
	srv := NewServer(handler, t.TempDir())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv.listener = ln
	logger := zerolog.Nop()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.serveConn(conn, logger)
		}
	}()
	t.Cleanup(func() { srv.Stop() })
	return ln.Addr().String()
}

func TestClientDialAndRequest(t *testing.T) {
	handler := &stubHandler{handle: func(msg MessageType, payload []byte) (ReplyType, []byte, error) {
		assert.Equal(t, MsgDocument, msg)
		return ReplyDocData, []byte("doc-bytes"), nil
	}}
	addr := startTestServer(t, handler)

	cli, err := Dial(addr)
	require.NoError(t, err)
	defer cli.Close()

	reply, payload, err := cli.Request(MsgDocument, []byte("term-id"))
	require.NoError(t, err)
	assert.Equal(t, ReplyDocData, reply)
	assert.Equal(t, []byte("doc-bytes"), payload)
}

func TestClientStreamChangesets(t *testing.T) {
	handler := &changesetHandler{changesets: []struct {
		rev  uint64
		data []byte
	}{
		{rev: 1, data: []byte("a")},
		{rev: 2, data: []byte("b")},
		{rev: 3, data: []byte("c")},
	}}
	addr := startTestServer(t, handler)

	cli, err := Dial(addr)
	require.NoError(t, err)
	defer cli.Close()

	var got []uint64
	err = cli.Stream(MsgGetChangesets, EncodeGetChangesets(1, 0), func(frame Frame) error {
		rev, _, ok := DecodeChangeset(frame.Payload)
		require.True(t, ok)
		got = append(got, rev)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, got)
}
