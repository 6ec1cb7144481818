package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/park285/chess-room-server/internal/lobby"
	"github.com/park285/chess-room-server/internal/transport"
	"go.uber.org/zap"
)

// HTTPServer serves WebSocket play on /ws and read-only status on /healthz
// and /rooms.
type HTTPServer struct {
	reg          *lobby.Registry
	handler      SessionHandler
	logger       *zap.Logger
	writeTimeout time.Duration
	tlsConfig    *tls.Config

	srv *http.Server

	// base is cancelled on shutdown; WebSocket sessions derive from it
	// because hijacked connections outlive http.Server.Shutdown.
	base     context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup

	mu sync.Mutex
	ln net.Listener
}

func NewHTTPServer(addr string, reg *lobby.Registry, handler SessionHandler, tlsConfig *tls.Config, writeTimeout time.Duration, logger *zap.Logger) *HTTPServer {
	base, cancel := context.WithCancel(context.Background())
	h := &HTTPServer{
		reg:          reg,
		handler:      handler,
		logger:       logger,
		writeTimeout: writeTimeout,
		tlsConfig:    tlsConfig,
		base:         base,
		cancel:       cancel,
	}
	h.srv = &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         tlsConfig,
	}
	return h
}

// Handler returns the route table.
func (h *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", h.serveWS)
	mux.HandleFunc("GET /healthz", h.serveHealth)
	mux.HandleFunc("GET /rooms", h.serveRooms)
	return mux
}

func (h *HTTPServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := transport.AcceptWS(w, r, h.writeTimeout)
	if err != nil {
		h.logger.Debug("ws_accept_error", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}
	h.sessions.Add(1)
	defer h.sessions.Done()

	if err := h.handler.HandleSession(h.base, conn); err != nil {
		h.logger.Debug("connection_closed", zap.String("remote_addr", conn.RemoteAddr()), zap.Error(err))
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}

func (h *HTTPServer) serveHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Rooms: h.reg.Len()})
}

type roomsResponse struct {
	Rooms []lobby.RoomInfo `json:"rooms"`
}

func (h *HTTPServer) serveRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, roomsResponse{Rooms: h.reg.Snapshot()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe blocks until Shutdown.
func (h *HTTPServer) ListenAndServe() error {
	ln, err := net.Listen("tcp", h.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.srv.Addr, err)
	}
	if h.tlsConfig != nil {
		ln = tls.NewListener(ln, h.tlsConfig)
	}
	h.mu.Lock()
	h.ln = ln
	h.mu.Unlock()

	h.logger.Info("http_listening", zap.String("addr", ln.Addr().String()), zap.Bool("tls", h.tlsConfig != nil))
	if err := h.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound address, or "" before listening.
func (h *HTTPServer) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ln == nil {
		return ""
	}
	return h.ln.Addr().String()
}

// Shutdown stops accepting requests, ends WebSocket sessions and waits for
// them within ctx.
func (h *HTTPServer) Shutdown(ctx context.Context) error {
	err := h.srv.Shutdown(ctx)
	h.cancel()
	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	h.logger.Info("http_stopped")
	return err
}
