package remote

import (
	"net"

	"github.com/dubalu/xapiand-go/pkg/log"
	"github.com/dubalu/xapiand-go/pkg/xerror"
	"github.com/rs/zerolog"
)

// Server accepts remote-protocol connections and serves each on its
// own goroutine, logging per-connection failures rather than letting
// one bad peer take down the accept loop (spec.md §4.H).
type Server struct {
	newHandler func() Handler
	tempDir    string
	listener   net.Listener
}

// NewServer returns a Server that dispatches every connection's
// requests to the same handler instance. Use this for a Handler with
// no per-connection state (e.g. a test stub).
func NewServer(handler Handler, tempDir string) *Server {
	return NewServerFactory(func() Handler { return handler }, tempDir)
}

// NewServerFactory returns a Server that calls newHandler once per
// accepted connection, for a Handler that tracks per-connection state
// such as which endpoint the connection's ReadAccess/WriteAccess
// bound it to (original_source/src/server/remote_protocol_client.h's
// msg_readaccess/msg_writeaccess "select current database").
func NewServerFactory(newHandler func() Handler, tempDir string) *Server {
	return &Server{newHandler: newHandler, tempDir: tempDir}
}

// Start listens on addr and serves connections until Stop is called
// or Accept returns an error, which Start then returns.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return xerror.Wrap(xerror.NetworkError, "listening on "+addr, err)
	}
	s.listener = lis

	logger := log.WithComponent("remote")
	logger.Info().Str("addr", addr).Msg("remote protocol server listening")

	for {
		conn, err := lis.Accept()
		if err != nil {
			return err
		}
		go s.serveConn(conn, logger)
	}
}

func (s *Server) serveConn(raw net.Conn, logger zerolog.Logger) {
	defer raw.Close()
	handler := s.newHandler()
	c := NewConn(raw, handler, s.tempDir)
	if err := c.Serve(); err != nil {
		logger.Warn().Err(err).Str("remote_addr", raw.RemoteAddr().String()).Msg("remote connection closed with error")
	}
	if closer, ok := handler.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Warn().Err(err).Msg("remote: closing connection handler failed")
		}
	}
}

// Stop closes the listener, causing Start's accept loop to return.
func (s *Server) Stop() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}
