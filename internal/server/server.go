// Package server поднимает небольшой HTTP-сервер для keep-alive пингеров
// хостинга и простой диагностики хранилища.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// StatsProvider — то немногое, что серверу нужно от хранилища.
type StatsProvider interface {
	Stats(ctx context.Context) (map[string]int, error)
}

// Server представляет HTTP-сервер.
type Server struct {
	HTTPServer *http.Server
	logger     *slog.Logger
}

// New создает новый экземпляр Server.
func New(addr, backend string, stats StatsProvider, logger *slog.Logger) *Server {
	chiRouter := chi.NewRouter()
	chiRouter.Use(middleware.RequestID)
	chiRouter.Use(middleware.Recoverer)

	chiRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	chiRouter.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		counts, err := stats.Stats(r.Context())
		if err != nil {
			logger.Error("failed to collect stats", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
			return
		}
		total := 0
		for _, n := range counts {
			total += n
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"backend":     backend,
			"scopes":      counts,
			"total_rules": total,
			"timestamp":   time.Now(),
		})
	})

	return &Server{
		HTTPServer: &http.Server{
			Addr:         addr,
			Handler:      chiRouter,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start блокирует до остановки сервера.
func (s *Server) Start() error {
	s.logger.Info("health server listening", slog.String("addr", s.HTTPServer.Addr))
	err := s.HTTPServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown корректно гасит сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.HTTPServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
