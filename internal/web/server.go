package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/orcidhub/orcidhub/internal/log"
)

// Server serves a Handler on a TCP listener.
type Server struct {
	server   *http.Server
	listener net.Listener
	addr     string
	port     int // actual port after binding (useful with :0)
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the address to listen on (e.g. "127.0.0.1:5000" or ":0").
	Addr    string
	Handler *Handler
	// ReadTimeout defaults to 30 seconds.
	ReadTimeout time.Duration
	// WriteTimeout defaults to 30 seconds.
	WriteTimeout time.Duration
}

// NewServer binds the listener so Port is known before Start.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Handler == nil {
		return nil, errors.New("web: handler is required")
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}
	port := 0
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}

	return &Server{
		addr:     cfg.Addr,
		port:     port,
		listener: listener,
		server: &http.Server{
			Handler:           cfg.Handler.Routes(),
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      writeTimeout,
		},
	}, nil
}

// Start serves until Stop. A graceful stop returns nil.
func (s *Server) Start() error {
	log.Info(log.CatHTTP, "Starting web server", "addr", s.listener.Addr().String(), "port", s.port)
	if err := s.server.Serve(s.listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	log.Info(log.CatHTTP, "Stopping web server")
	return s.server.Shutdown(ctx)
}

// Run serves until ctx is cancelled, then shuts down within grace.
func (s *Server) Run(ctx context.Context, grace time.Duration) error {
	errc := make(chan error, 1)
	go func() { errc <- s.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		return err
	}
	return <-errc
}

// Port returns the bound port.
func (s *Server) Port() int {
	return s.port
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// URL returns the base URL of the bound listener.
func (s *Server) URL() string {
	return "http://" + s.listener.Addr().String()
}
