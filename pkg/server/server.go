package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"towerterm/pkg/config"
	"towerterm/pkg/liquidity"
	"towerterm/pkg/models"
	"towerterm/pkg/watcher"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "server").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "server").Logger()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Options tunes the HTTP surface.
type Options struct {
	AllowedOrigins []string
	RatePerMinute  int
}

type Server struct {
	watcher *watcher.Watcher
	cfg     config.Config
	pools   []models.Pool
	gate    *liquidity.Gate
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
	mux     *chi.Mux
	handler http.Handler
}

func NewServer(w *watcher.Watcher, gate *liquidity.Gate, opts Options) *Server {
	if gate == nil {
		gate = liquidity.NewGate(liquidity.LogSubmitter{})
	}
	cfg := w.Config()
	s := &Server{
		watcher: w,
		cfg:     cfg,
		pools:   cfg.ResolvePools(),
		gate:    gate,
		clients: make(map[*websocket.Conn]bool),
		mux:     chi.NewMux(),
	}
	s.routes(opts)
	s.handler = newCORSHandler(opts.AllowedOrigins, s.mux)
	return s
}

func (s *Server) routes(opts Options) {
	s.mux.Use(zerologMiddleware)
	s.mux.Use(zerologRecoverer)
	s.mux.Use(middleware.RequestID)
	s.mux.Use(middleware.RealIP)
	if opts.RatePerMinute > 0 {
		s.mux.Use(httprate.LimitByIP(opts.RatePerMinute, time.Minute))
	}

	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	s.mux.Route("/api", func(r chi.Router) {
		r.Get("/assets", s.handleAssets)
		r.Get("/balances", s.handleBalances)
		r.Get("/pools", s.handlePools)
		r.Post("/liquidity/decision", s.handleDecision)
		r.Post("/liquidity/deposit", s.handleDeposit)
	})
	s.mux.Get("/ws", s.handleWS)
}

// Handler is the full middleware-wrapped handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves on port until ctx is cancelled.
func (s *Server) Start(ctx context.Context, port int) error {
	go s.listenToWatcher(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Int("port", port).Msg("API server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	s.mu.Lock()
	s.clients[conn] = true
	// Send initial state
	err = conn.WriteJSON(wsMessage{Type: "initial", Data: s.snapshot()})
	s.mu.Unlock()
	if err != nil {
		return
	}

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) listenToWatcher(ctx context.Context) {
	sub := s.watcher.Subscribe()
	defer s.watcher.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub:
			if !ok {
				return
			}
			s.broadcast(event)
		}
	}
}

func (s *Server) broadcast(event watcher.Event) {
	msg := wsMessage{Type: string(event.Type)}
	if data, ok := event.Data.(models.BalanceData); ok {
		msg.Source = data.Source
		if data.Err != nil {
			msg.Error = data.Err.Error()
		}
	}
	msg.Data = s.snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients {
		if err := client.WriteJSON(msg); err != nil {
			_ = client.Close()
			delete(s.clients, client)
		}
	}
}
