/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor ties the canvas surface to its storage slot and exporters.
// A State is process-scoped; hosts create one and pass it around.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"canvasboard/internal/board"
	"canvasboard/internal/config"
	"canvasboard/internal/drag"
	"canvasboard/internal/export"
	applog "canvasboard/internal/log"
	"canvasboard/internal/persist"
	"canvasboard/internal/storage"
)

// Options configures a State. Store overrides the configured storage driver;
// a Store passed in is not closed by State.Close.
type Options struct {
	Config   config.AppConfig
	Store    storage.Store
	Renderer board.Renderer
	Bus      *drag.Bus
	// Open replaces the desktop viewer used when exports are shown right away.
	Open func(ctx context.Context, path string) error
}

// State is the editor: one board, one slot. Not safe for concurrent use;
// see Loop.
type State struct {
	cfg       config.AppConfig
	board     *board.Board
	store     storage.Store
	ownsStore bool
	slotPath  string
	open      func(ctx context.Context, path string) error
	ctx       context.Context
	log       *slog.Logger
}

// New builds the board and opens the storage slot described by opts.
func New(opts Options) (*State, error) {
	cfg := opts.Config
	s := &State{
		cfg:   cfg,
		store: opts.Store,
		open:  opts.Open,
		ctx:   context.Background(),
		log:   applog.WithComponent("editor"),
	}
	if s.store == nil {
		path, err := cfg.SlotPath()
		if err != nil {
			return nil, fmt.Errorf("resolve slot path: %w", err)
		}
		st, err := storage.Open(cfg.Storage.Driver, path)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		s.store, s.ownsStore, s.slotPath = st, true, path
	}
	s.board = board.New(board.Config{
		Width:      cfg.Canvas.Width,
		Height:     cfg.Canvas.Height,
		Origin:     drag.Point{X: cfg.Canvas.OriginX, Y: cfg.Canvas.OriginY},
		Background: cfg.Canvas.Background,
		Renderer:   opts.Renderer,
		Bus:        opts.Bus,
	})
	return s, nil
}

// Init restores the saved layout, if any. ctx also becomes the context of
// handlers installed by Bind.
func (s *State) Init(ctx context.Context) error {
	s.ctx = ctx
	restored, err := s.Load(ctx)
	if err != nil {
		return err
	}
	s.log.Info("editor ready",
		slog.String("driver", s.cfg.Storage.Driver),
		slog.String("slot", s.slotPath),
		slog.Bool("restored", restored),
		slog.Int("items", s.board.Len()))
	return nil
}

func (s *State) Board() *board.Board      { return s.board }
func (s *State) Store() storage.Store     { return s.store }
func (s *State) Config() config.AppConfig { return s.cfg }
func (s *State) SlotPath() string         { return s.slotPath }
func (s *State) Context() context.Context { return s.ctx }

// Save writes the current layout to the slot.
func (s *State) Save(ctx context.Context) error {
	if err := persist.Save(ctx, s.board, s.store); err != nil {
		return err
	}
	s.log.Info("layout saved", slog.Int("items", s.board.Len()))
	return nil
}

// Load replaces the layout with the saved one. Nothing changes when the slot
// is empty or holds malformed data.
func (s *State) Load(ctx context.Context) (bool, error) {
	return persist.Load(ctx, s.board, s.store)
}

// Clear removes every item; the saved slot is not touched.
func (s *State) Clear() {
	s.board.Clear()
	s.log.Info("board cleared")
}

// Snapshot encodes the current layout the way Save stores it.
func (s *State) Snapshot() ([]byte, error) { return persist.Encode(s.board) }

// DataDir is where the slot lives, or "" for in-memory storage.
func (s *State) DataDir() string {
	if s.slotPath == "" {
		return ""
	}
	return filepath.Dir(s.slotPath)
}

// Render generates the export document once, named after the configured
// export filename.
func (s *State) Render(format export.Format) (export.Document, error) {
	return export.Render(s.board.Scene(), format, s.cfg.Export.Filename)
}

// Sinks returns the configured delivery channels: the download file, plus the
// viewer when export.open is set.
func (s *State) Sinks() []export.Sink {
	sinks := []export.Sink{&export.FileSink{Dir: s.cfg.Export.Dir}}
	if s.cfg.Export.Open {
		sinks = append([]export.Sink{export.ViewerSink{Open: s.open}}, sinks...)
	}
	return sinks
}

// Export renders the board in format and hands the same document to every
// sink, or to Sinks() when none are given.
func (s *State) Export(ctx context.Context, format export.Format, sinks ...export.Sink) (export.Document, error) {
	l := applog.WithOperation(s.log, "export")
	doc, err := s.Render(format)
	if err != nil {
		return export.Document{}, err
	}
	if len(sinks) == 0 {
		sinks = s.Sinks()
	}
	if err := export.Deliver(ctx, doc, sinks...); err != nil {
		return doc, err
	}
	l.Info("exported", slog.String("file", doc.Filename), slog.Int("bytes", len(doc.Body)))
	return doc, nil
}

// Close releases the storage slot when State opened it.
func (s *State) Close() error {
	if !s.ownsStore {
		return nil
	}
	s.ownsStore = false
	return s.store.Close()
}
