package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// callTimeout bounds one call, including the REST requests it makes.
const callTimeout = 60 * time.Second

type Server struct {
	handler  *Handler
	listener net.Listener
	path     string
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// Start listens on a unix socket at path, readable by the owner only.
func Start(path string, handler *Handler) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{handler: handler, listener: ln, path: path, logger: handler.logger, ctx: ctx, cancel: cancel}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Error("rpc accept failed", "error", err)
			}
			return
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting, cancels calls in flight and removes the socket.
func (s *Server) Close() error {
	s.cancel()
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &Error{Code: codeParseError, Message: "parse error"}, ID: nil})
			return
		}

		ctx, cancel := context.WithTimeout(s.ctx, callTimeout)
		resp := s.handler.handle(ctx, req)
		cancel()
		if err := enc.Encode(resp); err != nil {
			s.logger.Warn("rpc write failed", "method", req.Method, "error", err)
			return
		}
	}
}
