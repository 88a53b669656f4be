package main

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nickyhof/KivDB/db"
	"github.com/nickyhof/KivDB/metrics"
)

// Server is a TCP server that accepts one KivQL statement per line and
// answers with one JSON Response per line. Besides statements it
// understands AUTH JWT <token>, CHECKPOINT [message], quit and exit.
type Server struct {
	listener  net.Listener
	engine    *db.Engine
	auth      *Authenticator
	logger    *slog.Logger
	tlsConfig *tls.Config

	done  chan struct{}
	wg    sync.WaitGroup
	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer creates a TCP server over engine. A nil auth disables
// authentication.
func NewServer(engine *db.Engine, auth *Authenticator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = engine.Logger()
	}
	return &Server{
		engine: engine,
		auth:   auth,
		logger: logger.With("component", "tcp"),
		done:   make(chan struct{}),
		conns:  make(map[net.Conn]struct{}),
	}
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	s.logger.Info("TCP server listening", "addr", listener.Addr().String())

	go s.acceptLoop()
	return nil
}

// StartTLS begins listening for TLS connections using the given certificate.
func (s *Server) StartTLS(addr, certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	s.tlsConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	listener, err := tls.Listen("tcp", addr, s.tlsConfig)
	if err != nil {
		return fmt.Errorf("failed to start TLS server: %w", err)
	}
	s.listener = listener

	s.logger.Info("TCP server listening", "addr", listener.Addr().String(), "tls", true)

	go s.acceptLoop()
	return nil
}

// TLSEnabled reports whether the server was started with StartTLS.
func (s *Server) TLSEnabled() bool {
	return s.tlsConfig != nil
}

// Stop closes the listener and every open connection, then waits for the
// connection handlers to return.
func (s *Server) Stop() error {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return nil
	default:
	}
	close(s.done)
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}

	s.wg.Wait()
	return err
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept error", "error", err)
			continue
		}

		// Connections accepted after Stop began are closed, not served
		s.mu.Lock()
		select {
		case <-s.done:
			s.mu.Unlock()
			conn.Close()
			return
		default:
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	metrics.TCPConnections.Inc()
	defer metrics.TCPConnections.Dec()

	logger := s.logger.With("session", uuid.NewString(), "remote", conn.RemoteAddr().String())
	logger.Info("client connected")

	state := &ConnectionState{}
	reader := bufio.NewReader(conn)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				logger.Warn("read error", "error", err)
			}
			logger.Info("client disconnected")
			return
		}

		request := strings.TrimSpace(line)
		if request == "" {
			continue
		}

		lower := strings.ToLower(request)
		if lower == "quit" || lower == "exit" {
			logger.Info("client disconnected")
			return
		}

		response := s.handleRequest(request, state, logger)

		data, err := EncodeResponse(response)
		if err != nil {
			logger.Error("failed to encode response", "error", err)
			continue
		}

		if _, err := conn.Write(data); err != nil {
			logger.Warn("write error", "error", err)
			return
		}
	}
}

func (s *Server) handleRequest(request string, state *ConnectionState, logger *slog.Logger) Response {
	if isAuthCommand(request) {
		if s.auth == nil {
			return authError("notConfigured", errAuthNotConfig)
		}
		response := s.handleAuth(request, state)
		if response.Success {
			logger.Info("client authenticated", "identity", state.Identity().String())
		}
		return response
	}

	if s.auth != nil && !state.IsAuthenticated() {
		return authError("authenticationRequired", errAuthRequired)
	}

	if message, ok := parseCheckpointCommand(request); ok {
		return s.handleCheckpoint(message, state, logger)
	}

	result, err := s.engine.Execute(request)
	if err != nil && !db.IsCompileError(err) {
		logger.Error("statement failed", "error", err)
	}
	return statementResponse(result, err)
}

// parseCheckpointCommand recognizes CHECKPOINT [message].
func parseCheckpointCommand(line string) (string, bool) {
	keyword, message, _ := strings.Cut(line, " ")
	if !strings.EqualFold(keyword, "CHECKPOINT") {
		return "", false
	}
	return strings.TrimSpace(message), true
}

func (s *Server) handleCheckpoint(message string, state *ConnectionState, logger *slog.Logger) Response {
	identity := s.engine.Identity
	if id := state.Identity(); id != nil {
		identity = *id
	}

	txn, err := s.engine.CheckpointAs(identity, message)
	if err != nil {
		logger.Warn("checkpoint failed", "error", err)
		return failure(db.ErrorInfo{Kind: KindCommand, Code: "checkpointFailed", Detail: err.Error()})
	}

	return success(TypeCheckpoint, CheckpointResponse{
		Id:      txn.Id,
		Author:  txn.Author,
		Message: txn.Message,
	})
}
