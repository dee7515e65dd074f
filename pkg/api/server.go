// Zaparoo Core
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Core.
//
// Zaparoo Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Core.  If not, see <http://www.gnu.org/licenses/>.

// Package api serves the IPC bridge to web content over a local WebSocket
// and forwards game notifications to every connected client.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"runtime"
	"slices"
	"time"

	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/ipc"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/middleware"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/api/validation"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/config"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games"
	"github.com/ZaparooProject/zaparoo-desktop/pkg/games/search"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	IPCPath    = "/api/ipc"
	HealthPath = "/health"

	sessionBridgeKey  = "bridge"
	readHeaderTimeout = 10 * time.Second
)

var (
	ErrRescanCooldown = errors.New("rescan requested too soon")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrNotStarted     = errors.New("server not started")
)

// Library is the game catalog the server exposes.
type Library interface {
	Games() []games.Descriptor
	RescanGames(ctx context.Context) ([]games.Descriptor, error)
	IsMonitoring() bool
}

// Server owns the HTTP listener, the WebSocket sessions and one IPC bridge
// per session. Notifications are published to all sessions at once.
type Server struct {
	startedAt   time.Time
	lib         Library
	clock       clockwork.Clock
	cfg         *config.Instance
	melody      *melody.Melody
	broadcast   *ipc.Bridge
	limiter     *middleware.IPRateLimiter
	ipFilter    *middleware.IPFilter
	rescanLimit *rate.Limiter
	router      chi.Router
	httpServer  *http.Server
	listener    net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the clock used for bridge timeouts and the rescan cooldown.
func WithClock(c clockwork.Clock) Option {
	return func(s *Server) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewServer builds the router and WebSocket handlers. Nothing listens until
// Start is called.
func NewServer(cfg *config.Instance, lib Library, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		lib:      lib,
		clock:    clockwork.NewRealClock(),
		melody:   melody.New(),
		ipFilter: middleware.NewIPFilter(cfg.AllowedIPs()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startedAt = s.clock.Now()
	s.limiter = middleware.NewIPRateLimiter(s.clock)
	s.rescanLimit = rate.NewLimiter(rate.Every(cfg.RescanCooldown()), 1)
	s.broadcast = ipc.NewBridge(
		ipc.TransportFunc(s.melody.Broadcast),
		ipc.WithClock(s.clock),
	)

	s.melody.Upgrader.CheckOrigin = s.checkOrigin
	s.melody.HandleConnect(s.handleConnect)
	s.melody.HandleDisconnect(s.handleDisconnect)
	s.melody.HandleMessage(middleware.WebSocketRateLimitHandler(
		s.limiter,
		s.handleMessage,
		s.handleRateLimited,
	))
	s.melody.HandleError(func(session *melody.Session, err error) {
		log.Debug().Err(err).Str("remote", session.Request.RemoteAddr).Msg("websocket session error")
	})

	s.router = s.newRouter()
	return s
}

func (s *Server) newRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.HTTPIPFilterMiddleware(s.ipFilter))
	r.Use(middleware.HTTPRateLimitMiddleware(s.limiter))
	r.Use(chimiddleware.NoCache)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins(),
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept"},
	}))

	r.Get(IPCPath, func(w http.ResponseWriter, r *http.Request) {
		if err := s.melody.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})
	r.Get(HealthPath, s.handleHealth)

	return r
}

func (s *Server) allowedOrigins() []string {
	origins := []string{"http://localhost:*", "http://127.0.0.1:*"}
	return append(origins, s.cfg.AllowedOrigins()...)
}

// checkOrigin accepts non-browser clients, loopback pages and configured
// origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if ip := net.ParseIP(u.Hostname()); (ip != nil && ip.IsLoopback()) || u.Hostname() == "localhost" {
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins(), origin)
}

// Router returns the HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Clients returns the number of connected sessions.
func (s *Server) Clients() int {
	return s.melody.Len()
}

// Addr returns the listening address once started.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds the listener before returning so clients can connect
// immediately, then serves in the background.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.APIListen())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.APIListen(), err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.limiter.StartCleanup(ctx)

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()

	log.Info().Str("addr", ln.Addr().String()).Msg("api server listening")
	return nil
}

// Shutdown closes every session and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.broadcast.Close()
	if err := s.melody.Close(); err != nil && !errors.Is(err, melody.ErrClosed) {
		log.Warn().Err(err).Msg("closing websocket sessions")
	}
	if s.httpServer == nil {
		return ErrNotStarted
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// Publish sends a notification to every connected session.
func (s *Server) Publish(n models.Notification) error {
	if s.melody.Len() == 0 {
		return nil
	}
	return s.broadcast.Send(ipc.Message{Type: n.Method, Payload: n.Params})
}

// Forward publishes notifications until ctx is done or the channel closes.
func (s *Server) Forward(ctx context.Context, notifications <-chan models.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			if err := s.Publish(n); err != nil {
				log.Error().Err(err).Str("method", n.Method).Msg("broadcasting notification")
			}
		}
	}
}

func (s *Server) handleConnect(session *melody.Session) {
	b := ipc.NewBridge(
		ipc.TransportFunc(session.Write),
		ipc.WithClock(s.clock),
		ipc.WithDefaultTimeout(s.cfg.RequestTimeout()),
	)
	s.registerHandlers(b)
	session.Set(sessionBridgeKey, b)
	log.Debug().Str("remote", session.Request.RemoteAddr).Msg("websocket client connected")
}

func (*Server) handleDisconnect(session *melody.Session) {
	if b := sessionBridge(session); b != nil {
		b.Close()
	}
	log.Debug().Str("remote", session.Request.RemoteAddr).Msg("websocket client disconnected")
}

func sessionBridge(session *melody.Session) *ipc.Bridge {
	v, ok := session.Get(sessionBridgeKey)
	if !ok {
		return nil
	}
	b, _ := v.(*ipc.Bridge)
	return b
}

func (*Server) handleMessage(session *melody.Session, msg []byte) {
	// heartbeat
	if string(msg) == "ping" {
		if err := session.Write([]byte("pong")); err != nil {
			log.Error().Err(err).Msg("sending pong")
		}
		return
	}

	b := sessionBridge(session)
	if b == nil {
		log.Warn().Msg("message on session without bridge")
		return
	}
	_ = b.HandleInbound(msg)
}

func (*Server) handleRateLimited(session *melody.Session, msg []byte) {
	var req struct {
		Type      string `json:"type"`
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(msg, &req); err != nil || req.RequestID == "" {
		return
	}
	b := sessionBridge(session)
	if b == nil {
		return
	}
	err := b.Send(ipc.Message{
		Type:      ipc.ResponseType(req.Type),
		RequestID: req.RequestID,
		Error:     ErrRateLimited.Error(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("sending rate limit response")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := models.HealthResponse{
		StartedAt:  s.startedAt,
		Status:     "ok",
		Version:    config.AppVersion,
		Games:      len(s.lib.Games()),
		Clients:    s.melody.Len(),
		Monitoring: s.lib.IsMonitoring(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("encoding health response")
	}
}

func (s *Server) registerHandlers(b *ipc.Bridge) {
	b.Handle(models.MethodGamesList, s.handleGamesList)
	b.Handle(models.MethodGamesRescan, s.handleGamesRescan)
	b.Handle(models.MethodVersion, handleVersion)
}

func (s *Server) handleGamesList(_ context.Context, req ipc.Message) (any, error) {
	gs := s.lib.Games()
	if len(req.Payload) == 0 {
		return models.NewGamesResponse(gs), nil
	}

	var params models.GamesListParams
	if err := validation.ValidateAndUnmarshal(req.Payload, &params); err != nil {
		if errors.Is(err, validation.ErrMissingParams) {
			return models.NewGamesResponse(gs), nil
		}
		return nil, err
	}

	filtered := make([]games.Descriptor, 0, len(gs))
	for i := range gs {
		if params.Source != "" && gs[i].Source != params.Source {
			continue
		}
		if params.Running != nil && gs[i].IsRunning != *params.Running {
			continue
		}
		filtered = append(filtered, gs[i])
	}
	if params.Query != "" {
		filtered = search.Games(filtered, params.Query, search.DefaultMinSimilarity)
	}
	return models.NewGamesResponse(filtered), nil
}

func (s *Server) handleGamesRescan(ctx context.Context, _ ipc.Message) (any, error) {
	if !s.rescanLimit.AllowN(s.clock.Now(), 1) {
		return nil, ErrRescanCooldown
	}
	gs, err := s.lib.RescanGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("rescan: %w", err)
	}
	return models.NewGamesResponse(gs), nil
}

func handleVersion(context.Context, ipc.Message) (any, error) {
	return models.VersionResponse{
		Version:  config.AppVersion,
		Platform: runtime.GOOS,
	}, nil
}
