/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"canvasboard/internal/board"
	"canvasboard/internal/drag"
	"canvasboard/internal/export"
	"canvasboard/internal/item"
	applog "canvasboard/internal/log"
	"canvasboard/internal/version"
)

const (
	maxJSONBody  = 1 << 20
	maxImageBody = 32 << 20
)

type itemView struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Left    string `json:"left"`
	Top     string `json:"top"`
	Src     string `json:"src,omitempty"`
}

func viewOf(it *item.Item) itemView {
	pos := it.Position()
	return itemView{
		ID:      it.ID(),
		Kind:    it.Kind().String(),
		Content: it.Content(),
		Left:    pos.Left.String(),
		Top:     pos.Top.String(),
		Src:     it.ImageSource(),
	}
}

type backgroundView struct {
	Color string `json:"color"`
	Image string `json:"image,omitempty"`
}

type boardView struct {
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Background backgroundView `json:"background"`
	Items      []itemView     `json:"items"`
	Focused    string         `json:"focused,omitempty"`
	Dragging   string         `json:"dragging,omitempty"`
}

func boardViewOf(b *board.Board) boardView {
	w, h := b.Size()
	bg := b.Background()
	v := boardView{
		Width:      w,
		Height:     h,
		Background: backgroundView{Color: bg.Color, Image: bg.Image},
		Items:      []itemView{},
		Focused:    b.Focused(),
	}
	for _, it := range b.Items() {
		v.Items = append(v.Items, viewOf(it))
	}
	if it := b.Dragging(); it != nil {
		v.Dragging = it.ID()
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// statusOf maps editor errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, board.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, item.ErrNotEditable):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}

func decodeJSON(r *http.Request, v any) error {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	_ = r.Body.Close()
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// readUpload returns the raw image bytes of a request. A multipart form is
// read from its "file" field; any other body is taken as-is.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	body := http.MaxBytesReader(w, r.Body, maxImageBody)
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		r.Body = body
		if err := r.ParseMultipartForm(maxImageBody); err != nil {
			return nil, fmt.Errorf("parse upload: %w", err)
		}
		f, _, err := r.FormFile("file")
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return io.ReadAll(body)
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(version.String()))
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	var v boardView
	if err := s.do(r.Context(), func() { v = boardViewOf(s.state.Board()) }); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type createRequest struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Left    string `json:"left"`
	Top     string `json:"top"`
	Src     string `json:"src"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	kind, err := item.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pos := item.DefaultPosition
	if req.Left != "" || req.Top != "" {
		if pos, err = item.ParsePosition(req.Left, req.Top); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	var v itemView
	derr := s.do(r.Context(), func() {
		var it *item.Item
		if it, err = s.state.Board().CreateItem(kind, req.Content, pos, req.Src); err == nil {
			v = viewOf(it)
		}
	})
	if derr != nil {
		err = derr
	}
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

type dropRequest struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var req dropRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var (
		v  itemView
		ok bool
	)
	err := s.do(r.Context(), func() {
		var it *item.Item
		if it, ok = s.state.Board().HandleDrop(req.Type, drag.Point{X: req.X, Y: req.Y}); ok {
			v = viewOf(it)
		}
	})
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var it *item.Item
	derr := s.do(r.Context(), func() {
		it, err = s.state.Board().HandleImageUpload(data)
	})
	if derr != nil {
		err = derr
	}
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	if it == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(it))
}

func (s *Server) handleBackgroundColor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Color string `json:"color"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var err error
	if derr := s.do(r.Context(), func() { err = s.state.Board().SetBackgroundColor(req.Color) }); derr != nil {
		err = derr
	}
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBackgroundImage(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if derr := s.do(r.Context(), func() { err = s.state.Board().SetBackgroundImage(data) }); derr != nil {
		err = derr
	}
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := r.PathValue("id")
	var (
		v   itemView
		err error
	)
	derr := s.do(r.Context(), func() {
		if err = s.state.Board().SetContent(id, req.Content); err != nil {
			return
		}
		it, _ := s.state.Board().Find(id)
		v = viewOf(it)
	})
	if derr != nil {
		err = derr
	}
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var err error
	if derr := s.do(r.Context(), func() { err = s.state.Save(r.Context()) }); derr != nil {
		err = derr
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var (
		restored bool
		err      error
	)
	if derr := s.do(r.Context(), func() { restored, err = s.state.Load(r.Context()) }); derr != nil {
		err = derr
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"restored": restored})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.do(r.Context(), s.state.Clear); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// cache is the sink behind /export/view and /export/download.
func (s *Server) cache() export.Sink {
	return export.SinkFunc(func(_ context.Context, doc export.Document) error {
		s.mu.Lock()
		s.last = &doc
		s.mu.Unlock()
		return nil
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sinks := append([]export.Sink{s.cache()}, s.sinks...)
	var doc export.Document
	if derr := s.do(r.Context(), func() { doc, err = s.state.Export(r.Context(), format, sinks...) }); derr != nil {
		err = derr
	}
	if err != nil {
		applog.WithOperation(s.log, "export").Warn("export incomplete", slog.Any("err", err))
		if doc.Body == nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filename":     doc.Filename,
		"content_type": doc.ContentType,
		"bytes":        len(doc.Body),
		"view":         "/export/view",
		"download":     "/export/download",
	})
}

// handleExportDoc serves the last export; before any export it renders the
// HTML page on demand.
func (s *Server) handleExportDoc(download bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		last := s.last
		s.mu.Unlock()
		if last == nil {
			var (
				doc export.Document
				err error
			)
			if derr := s.do(r.Context(), func() { doc, err = s.state.Render(export.FormatHTML) }); derr != nil {
				err = derr
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			last = &doc
		}
		w.Header().Set("Content-Type", last.ContentType)
		w.Header().Set("Cache-Control", "no-store")
		disposition := "inline"
		if download {
			disposition = "attachment"
		}
		w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": last.Filename}))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(last.Body)
	}
}
