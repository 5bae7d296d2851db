/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package server hosts the editor over HTTP: a JSON API for the gestures, a
// websocket pointer stream and the export view/download channels.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"canvasboard/internal/editor"
	"canvasboard/internal/export"
	applog "canvasboard/internal/log"
	"canvasboard/internal/storage"
)

// Options configures a Server. A nil Loop gets a private one that Close stops.
type Options struct {
	State *editor.State
	Loop  *editor.Loop
	// Sinks receive every export in addition to the view/download cache.
	Sinks []export.Sink
}

// Server is the HTTP host. Every editor call runs on the Loop.
type Server struct {
	state    *editor.State
	loop     *editor.Loop
	ownsLoop bool
	hub      *hub
	sinks    []export.Sink
	log      *slog.Logger

	mu   sync.Mutex
	last *export.Document
}

// New wires the server into st: board changes are pushed to websocket clients
// next to any renderer the host already installed.
func New(opts Options) *Server {
	s := &Server{
		state: opts.State,
		loop:  opts.Loop,
		sinks: opts.Sinks,
		log:   applog.WithComponent("server"),
	}
	if s.loop == nil {
		s.loop, s.ownsLoop = editor.NewLoop(), true
	}
	s.hub = newHub(s.log)
	s.state.Board().AddRenderer(s.hub)
	return s
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("GET /api/board", s.handleBoard)
	mux.HandleFunc("POST /api/items", s.handleCreate)
	mux.HandleFunc("POST /api/drop", s.handleDrop)
	mux.HandleFunc("POST /api/images", s.handleImage)
	mux.HandleFunc("POST /api/background/color", s.handleBackgroundColor)
	mux.HandleFunc("POST /api/background/image", s.handleBackgroundImage)
	mux.HandleFunc("PUT /api/items/{id}/content", s.handleContent)
	mux.HandleFunc("POST /api/save", s.handleSave)
	mux.HandleFunc("POST /api/load", s.handleLoad)
	mux.HandleFunc("POST /api/clear", s.handleClear)
	mux.HandleFunc("POST /api/export", s.handleExport)
	mux.HandleFunc("GET /export/view", s.handleExportDoc(false))
	mux.HandleFunc("GET /export/download", s.handleExportDoc(true))
	mux.HandleFunc("GET /ws", s.handleWS)
	return s.logRequests(withSecurityHeaders(mux))
}

// do runs fn on the editor loop.
func (s *Server) do(ctx context.Context, fn func()) error {
	return s.loop.Do(ctx, fn)
}

// Watch reloads the board whenever the file slot changes on disk. Stores
// other than the file store are not watched and stop is a no-op.
func (s *Server) Watch(ctx context.Context) (stop func(), err error) {
	fs, ok := s.state.Store().(*storage.FileStore)
	if !ok {
		s.log.Debug("slot not watchable", slog.String("store", fmt.Sprintf("%T", s.state.Store())))
		return func() {}, nil
	}
	return fs.Watch(ctx, func() {
		l := applog.WithOperation(s.log, "reload")
		err := s.do(ctx, func() {
			if _, err := s.state.Load(ctx); err != nil {
				l.Warn("reload failed", slog.Any("err", err))
			}
		})
		if err != nil {
			l.Debug("reload skipped", slog.Any("err", err))
			return
		}
		l.Info("slot changed on disk; board reloaded")
	})
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.log.Info("listening", slog.String("addr", ln.Addr().String()))
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	s.hub.closeAll()
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("stopped")
	return nil
}

// Close disconnects websocket clients and stops a private loop.
func (s *Server) Close() {
	s.hub.closeAll()
	if s.ownsLoop {
		s.loop.Close()
	}
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack passes through so websocket upgrades work behind the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer cannot hijack")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("took", time.Since(start)))
	})
}
