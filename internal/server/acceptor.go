// Package server exposes the coordinator over TCP (optionally TLS) and
// WebSocket, plus a small HTTP status surface.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/park285/chess-room-server/internal/config"
	"github.com/park285/chess-room-server/internal/transport"
	"go.uber.org/zap"
)

// SessionHandler serves one connection until it ends.
type SessionHandler interface {
	HandleSession(ctx context.Context, conn transport.Conn) error
}

// LoadTLS returns the server TLS config, or nil when TLS is not configured.
func LoadTLS(cfg *config.AppConfig) (*tls.Config, error) {
	if !cfg.TLSEnabled() {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
	if err != nil {
		return nil, fmt.Errorf("load tls key pair: %w", err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}, nil
}

// Acceptor listens on a stream socket and runs each connection through the
// handler on its own goroutine.
type Acceptor struct {
	addr         string
	tlsConfig    *tls.Config
	readTimeout  time.Duration
	writeTimeout time.Duration
	handler      SessionHandler
	logger       *zap.Logger

	listener net.Listener
	wg       sync.WaitGroup
	quit     chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewAcceptor builds an acceptor for cfg.ListenAddr. tlsConfig may be nil.
func NewAcceptor(cfg *config.AppConfig, tlsConfig *tls.Config, handler SessionHandler, logger *zap.Logger) *Acceptor {
	return &Acceptor{
		addr:         cfg.ListenAddr,
		tlsConfig:    tlsConfig,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		handler:      handler,
		logger:       logger,
		quit:         make(chan struct{}),
	}
}

// ListenAndServe accepts connections until Stop is called.
func (a *Acceptor) ListenAndServe() error {
	var (
		listener net.Listener
		err      error
	)
	if a.tlsConfig != nil {
		listener, err = tls.Listen("tcp", a.addr, a.tlsConfig)
	} else {
		listener, err = net.Listen("tcp", a.addr)
	}
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.addr, err)
	}

	a.mu.Lock()
	select {
	case <-a.quit:
		a.mu.Unlock()
		_ = listener.Close()
		return nil
	default:
	}
	a.listener = listener
	a.running = true
	a.mu.Unlock()

	a.logger.Info("acceptor_listening",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("tls", a.tlsConfig != nil),
	)

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-a.quit:
				return nil
			default:
				a.logger.Error("accept_error", zap.Error(err))
				continue
			}
		}
		a.wg.Add(1)
		go a.handleConn(conn)
	}
}

func (a *Acceptor) handleConn(raw net.Conn) {
	defer a.wg.Done()
	start := time.Now()
	conn := transport.NewStreamConn(raw,
		transport.WithReadTimeout(a.readTimeout),
		transport.WithWriteTimeout(a.writeTimeout),
	)
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-a.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := a.handler.HandleSession(ctx, conn); err != nil {
		a.logger.Debug("connection_closed",
			zap.String("remote_addr", conn.RemoteAddr()),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return
	}
	a.logger.Debug("connection_closed",
		zap.String("remote_addr", conn.RemoteAddr()),
		zap.Duration("duration", time.Since(start)),
	)
}

// Stop closes the listener, cancels every session and waits for them.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	select {
	case <-a.quit:
		a.mu.Unlock()
		return
	default:
	}
	close(a.quit)
	a.running = false
	if a.listener != nil {
		_ = a.listener.Close()
	}
	a.mu.Unlock()

	a.wg.Wait()
	a.logger.Info("acceptor_stopped")
}

// Addr returns the bound address, or "" before listening.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return ""
}

func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
