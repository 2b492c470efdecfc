// Package health serves the unauthenticated liveness endpoint used by
// external process monitors (and by free-tier hosts that require an open
// port). It carries no other semantics.
package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"kursbot/pkg/logx"
)

const body = "Bot is running OK!"

type Server struct {
	mu   sync.Mutex
	log  logx.Logger
	addr string

	srv *http.Server
	ln  net.Listener
}

func New(addr string, log logx.Logger) *Server {
	return &Server{addr: addr, log: log}
}

func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("health server stopped unexpectedly", logx.Err(err))
		}
	}()
	s.log.Info("health endpoint listening", logx.String("addr", ln.Addr().String()))
	return nil
}

func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.ln = nil
	s.mu.Unlock()
	if srv == nil {
		return
	}
	_ = srv.Shutdown(ctx)
}

// Addr reports the bound listen address (useful when ":0" was configured).
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}
