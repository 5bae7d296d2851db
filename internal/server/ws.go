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
	"log/slog"
	"net/http"
	"sync"
	"time"

	"canvasboard/internal/board"
	"canvasboard/internal/crash"
	"canvasboard/internal/drag"
	"canvasboard/internal/item"
	applog "canvasboard/internal/log"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
	maxInbound = 64 << 10
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// event is pushed to websocket clients.
type event struct {
	Type       string          `json:"type"`
	Item       *itemView       `json:"item,omitempty"`
	Background *backgroundView `json:"background,omitempty"`
	Board      *boardView      `json:"board,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// message is one inbound pointer stream frame. Page defaults to Client.
type message struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Client point  `json:"client"`
	Page   *point `json:"page,omitempty"`
}

func (m message) pointer() drag.Pointer {
	p := drag.Pointer{Client: drag.Point{X: m.Client.X, Y: m.Client.Y}}
	p.Page = p.Client
	if m.Page != nil {
		p.Page = drag.Point{X: m.Page.X, Y: m.Page.Y}
	}
	return p
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	// ctx tags every log line of the connection with its session id
	ctx context.Context
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// hub fans board changes out to websocket clients. It is the board's
// renderer, so its Renderer methods run on the editor loop.
type hub struct {
	log *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	// last known position per item; tells moves apart from content edits
	positions map[string]item.Position
}

func newHub(l *slog.Logger) *hub {
	return &hub{log: l, clients: map[*client]struct{}{}, positions: map[string]item.Position{}}
}

func (h *hub) Mount(it *item.Item) {
	h.mu.Lock()
	h.positions[it.ID()] = it.Position()
	h.mu.Unlock()
	v := viewOf(it)
	h.broadcast(event{Type: "created", Item: &v})
}

func (h *hub) Update(it *item.Item) {
	h.mu.Lock()
	prev, known := h.positions[it.ID()]
	h.positions[it.ID()] = it.Position()
	h.mu.Unlock()
	typ := "updated"
	if !known || prev != it.Position() {
		typ = "moved"
	}
	v := viewOf(it)
	h.broadcast(event{Type: typ, Item: &v})
}

func (h *hub) Reset() {
	h.mu.Lock()
	clear(h.positions)
	h.mu.Unlock()
	h.broadcast(event{Type: "cleared"})
}

func (h *hub) Background(bg board.Background) {
	h.broadcast(event{Type: "background", Background: &backgroundView{Color: bg.Color, Image: bg.Image}})
}

var _ board.Renderer = (*hub)(nil)

func (h *hub) broadcast(ev event) {
	b, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("encode event", slog.Any("err", err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.enqueue(c, b)
	}
}

// enqueue must be called with h.mu held. Slow clients are dropped.
func (h *hub) enqueue(c *client, b []byte) {
	select {
	case c.send <- b:
	default:
		h.log.Warn("websocket client too slow; disconnecting")
		delete(h.clients, c)
		c.close()
	}
}

func (h *hub) sendTo(c *client, ev event) {
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.enqueue(c, b)
	}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// handleWS upgrades to the pointer stream. The first frame sent is the whole
// board; change events follow.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", slog.Any("err", err))
		return
	}
	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		ctx:  applog.ContextWith(context.Background(), slog.String("session", uuid.NewString())),
	}
	s.log.DebugContext(c.ctx, "websocket connected", slog.String("remote", r.RemoteAddr))
	go s.writePump(c)

	// Registering on the loop orders the snapshot before any later change.
	err = s.do(r.Context(), func() {
		s.hub.add(c)
		v := boardViewOf(s.state.Board())
		s.hub.sendTo(c, event{Type: "board", Board: &v})
	})
	if err != nil {
		c.close()
		return
	}
	go s.readPump(c)
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) readPump(c *client) {
	defer crash.Recover(s.state)
	defer s.hub.remove(c)
	defer s.log.DebugContext(c.ctx, "websocket disconnected")
	c.conn.SetReadLimit(maxInbound)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var m message
		if err := c.conn.ReadJSON(&m); err != nil {
			var syntax *json.SyntaxError
			if errors.As(err, &syntax) {
				s.hub.sendTo(c, event{Type: "error", Error: err.Error()})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.DebugContext(c.ctx, "websocket closed", slog.Any("err", err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if err := s.apply(c, m); err != nil {
			s.log.WarnContext(c.ctx, "pointer event failed", slog.String("type", m.Type), slog.Any("err", err))
			s.hub.sendTo(c, event{Type: "error", Error: err.Error()})
		}
	}
}

// apply runs one pointer stream frame on the editor. A sync frame answers c
// with the whole board.
func (s *Server) apply(c *client, m message) error {
	var err error
	b := s.state.Board()
	derr := s.do(s.state.Context(), func() {
		switch m.Type {
		case "pointerdown":
			_, err = b.PointerDown(m.ID, m.pointer())
		case "pointermove":
			b.PointerMove(m.pointer())
		case "pointerup":
			b.PointerUp(m.pointer())
		case "focus":
			err = b.Focus(m.ID)
		case "blur":
			b.Blur()
		case "sync":
			v := boardViewOf(b)
			s.hub.sendTo(c, event{Type: "board", Board: &v})
		default:
			err = fmt.Errorf("unknown message type %q", m.Type)
		}
	})
	if derr != nil {
		return derr
	}
	return err
}
