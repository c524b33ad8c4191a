// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api serves the HTTP API.
package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/tailscale/tscert"

	"github.com/wingedpig/buildwatch/internal/api/handlers"
	"github.com/wingedpig/buildwatch/internal/api/middleware"
	"github.com/wingedpig/buildwatch/internal/crashes"
	"github.com/wingedpig/buildwatch/internal/diagnostics"
	"github.com/wingedpig/buildwatch/internal/events"
	"github.com/wingedpig/buildwatch/internal/monitor"
	"github.com/wingedpig/buildwatch/internal/recorder"
	"github.com/wingedpig/buildwatch/internal/trends"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Host         string
	Port         int
	TLSCert      string // Path to TLS certificate file
	TLSKey       string // Path to TLS private key file
	TLSTailscale bool   // Use certificates from the local Tailscale daemon
}

// Dependencies holds all dependencies for API handlers.
type Dependencies struct {
	Store           *diagnostics.Store
	Recorder        *recorder.Recorder
	Aggregator      *trends.Aggregator
	Monitor         *monitor.Monitor
	CrashManager    *crashes.Manager
	EventBus        events.EventBus
	TrendWindowDays int
}

// NewRouter creates a new API router.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Build history, solutions and status
	buildHandler := handlers.NewBuildHandler(deps.Store, deps.Recorder, deps.Aggregator, deps.TrendWindowDays)
	api.HandleFunc("/builds", buildHandler.Record).Methods("POST")
	api.HandleFunc("/builds/trends", buildHandler.Trends).Methods("GET")
	api.HandleFunc("/builds/diagnostics", buildHandler.RecentDiagnostics).Methods("GET")
	api.HandleFunc("/issues/frequent", buildHandler.FrequentIssues).Methods("GET")
	api.HandleFunc("/solutions", buildHandler.AddSolution).Methods("POST")
	api.HandleFunc("/solutions/best", buildHandler.BestSolution).Methods("GET")
	api.HandleFunc("/status", buildHandler.Status).Methods("GET")

	// Runtime log monitor
	monitorHandler := handlers.NewMonitorHandler(deps.Monitor)
	api.HandleFunc("/monitor/start", monitorHandler.Start).Methods("POST")
	api.HandleFunc("/monitor/stop", monitorHandler.Stop).Methods("POST")
	api.HandleFunc("/monitor/status", monitorHandler.Status).Methods("GET")
	api.HandleFunc("/monitor/logs", monitorHandler.Logs).Methods("GET")
	api.HandleFunc("/monitor/errors", monitorHandler.Errors).Methods("GET")
	api.HandleFunc("/monitor/analyze", monitorHandler.Analyze).Methods("GET")
	api.HandleFunc("/monitor/stream", monitorHandler.Stream).Methods("GET")

	// Crash artifacts
	crashHandler := handlers.NewCrashesHandler(deps.CrashManager)
	api.HandleFunc("/crashes", crashHandler.List).Methods("GET")
	api.HandleFunc("/crashes/newest", crashHandler.Newest).Methods("GET")
	api.HandleFunc("/crashes/{id}", crashHandler.Get).Methods("GET")

	// Events
	eventHandler := handlers.NewEventHandler(deps.EventBus)
	api.HandleFunc("/events", eventHandler.History).Methods("GET")
	api.HandleFunc("/events/ws", eventHandler.WebSocket).Methods("GET")

	// Debug/profiling endpoints
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	return r
}

// Server represents the API server.
type Server struct {
	router *mux.Router
	cfg    ServerConfig
	server *http.Server
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, deps Dependencies) *Server {
	s := &Server{
		router: NewRouter(deps),
		cfg:    cfg,
	}
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router returns the underlying router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
}

// ListenAndServe starts the server. HTTPS is used when tls_cert and
// tls_key are set or tls_tailscale is enabled. It returns
// http.ErrServerClosed after Shutdown.
func (s *Server) ListenAndServe() error {
	addr := s.Addr()

	mode, err := ResolveTLS(s.cfg)
	if err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	switch mode {
	case TLSTailscale:
		s.server.TLSConfig = &tls.Config{
			GetCertificate: tscert.GetCertificate,
		}
		log.Printf("API server listening on https://%s (Tailscale TLS)", addr)
		return s.server.ListenAndServeTLS("", "")
	case TLSFiles:
		log.Printf("API server listening on https://%s (TLS enabled)", addr)
		return s.server.ListenAndServeTLS(expandPath(s.cfg.TLSCert), expandPath(s.cfg.TLSKey))
	}

	log.Printf("API server listening on http://%s", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")

	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	return s.server.Shutdown(shutdownCtx)
}
