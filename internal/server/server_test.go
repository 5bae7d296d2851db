/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"canvasboard/internal/board"
	"canvasboard/internal/config"
	"canvasboard/internal/editor"
	"canvasboard/internal/item"
	applog "canvasboard/internal/log"
	"canvasboard/internal/persist"
	"canvasboard/internal/version"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, cfg config.AppConfig) (*Server, *httptest.Server) {
	t.Helper()
	st, err := editor.New(editor.Options{Config: cfg})
	if err != nil {
		t.Fatalf("editor: %v", err)
	}
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	s := New(Options{State: st})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
		_ = st.Close()
	})
	return s, ts
}

func memConfig(t *testing.T) config.AppConfig {
	cfg := config.Defaults()
	cfg.Storage.Driver = config.DriverMemory
	cfg.Export.Dir = t.TempDir()
	return cfg
}

func do(t *testing.T, method, url, contentType string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func postJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(v)
	return do(t, http.MethodPost, url, "application/json", b)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status %d, want %d: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, b)
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestHealthAndVersion(t *testing.T) {
	_, ts := newTestServer(t, memConfig(t))

	resp := do(t, http.MethodGet, ts.URL+"/healthz", "", nil)
	expectStatus(t, resp, http.StatusOK)
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("missing nosniff header: %q", got)
	}

	resp = do(t, http.MethodGet, ts.URL+"/version", "", nil)
	expectStatus(t, resp, http.StatusOK)
	b, _ := io.ReadAll(resp.Body)
	if string(b) != version.String() {
		t.Fatalf("version = %q", b)
	}
}

func TestItemsAPI(t *testing.T) {
	_, ts := newTestServer(t, memConfig(t))

	resp := postJSON(t, ts.URL+"/api/items", map[string]string{"kind": "text", "content": "Hello", "left": "10px", "top": "20px"})
	expectStatus(t, resp, http.StatusCreated)
	text := decode[itemView](t, resp)
	if text.Kind != "text" || text.Content != "Hello" || text.Left != "10px" || text.Top != "20px" {
		t.Fatalf("unexpected item: %+v", text)
	}

	resp = postJSON(t, ts.URL+"/api/items", map[string]string{"kind": "note"})
	expectStatus(t, resp, http.StatusCreated)
	if note := decode[itemView](t, resp); note.Left != "50px" || note.Top != "50px" {
		t.Fatalf("default position not applied: %+v", note)
	}

	expectStatus(t, postJSON(t, ts.URL+"/api/items", map[string]string{"kind": "sticker"}), http.StatusBadRequest)
	expectStatus(t, postJSON(t, ts.URL+"/api/items", map[string]string{"kind": "image"}), http.StatusBadRequest)
	expectStatus(t, do(t, http.MethodPost, ts.URL+"/api/items", "application/json", []byte("{")), http.StatusBadRequest)

	resp = postJSON(t, ts.URL+"/api/drop", map[string]any{"type": "note", "x": 40, "y": 60})
	expectStatus(t, resp, http.StatusCreated)
	if dropped := decode[itemView](t, resp); dropped.Content != "Sticky Note" || dropped.Left != "40px" {
		t.Fatalf("unexpected drop: %+v", dropped)
	}
	expectStatus(t, postJSON(t, ts.URL+"/api/drop", map[string]any{"type": "image", "x": 1, "y": 1}), http.StatusNoContent)

	resp = do(t, http.MethodPut, ts.URL+"/api/items/"+text.ID+"/content", "application/json", []byte(`{"content":"edited"}`))
	expectStatus(t, resp, http.StatusOK)
	if got := decode[itemView](t, resp); got.Content != "edited" {
		t.Fatalf("content = %q", got.Content)
	}
	expectStatus(t, do(t, http.MethodPut, ts.URL+"/api/items/nope/content", "application/json", []byte(`{"content":"x"}`)), http.StatusNotFound)

	resp = do(t, http.MethodPost, ts.URL+"/api/images", "image/png", pngBytes(t))
	expectStatus(t, resp, http.StatusCreated)
	img := decode[itemView](t, resp)
	if img.Kind != "image" || !strings.HasPrefix(img.Src, "data:image/png;base64,") {
		t.Fatalf("unexpected image: %+v", img)
	}
	expectStatus(t, do(t, http.MethodPut, ts.URL+"/api/items/"+img.ID+"/content", "application/json", []byte(`{"content":"x"}`)), http.StatusConflict)
	expectStatus(t, do(t, http.MethodPost, ts.URL+"/api/images", "image/png", nil), http.StatusNoContent)
	expectStatus(t, do(t, http.MethodPost, ts.URL+"/api/images", "image/png", []byte("nope")), http.StatusBadRequest)

	resp = do(t, http.MethodGet, ts.URL+"/api/board", "", nil)
	expectStatus(t, resp, http.StatusOK)
	bv := decode[boardView](t, resp)
	if len(bv.Items) != 4 || bv.Width != 800 || bv.Height != 600 {
		t.Fatalf("unexpected board: %d items, %dx%d", len(bv.Items), bv.Width, bv.Height)
	}
}

func TestBackgroundAPI(t *testing.T) {
	_, ts := newTestServer(t, memConfig(t))

	expectStatus(t, postJSON(t, ts.URL+"/api/background/color", map[string]string{"color": "#ffcc00"}), http.StatusNoContent)
	expectStatus(t, postJSON(t, ts.URL+"/api/background/color", map[string]string{"color": "nope"}), http.StatusBadRequest)
	expectStatus(t, do(t, http.MethodPost, ts.URL+"/api/background/image", "image/png", pngBytes(t)), http.StatusNoContent)

	bv := decode[boardView](t, do(t, http.MethodGet, ts.URL+"/api/board", "", nil))
	if bv.Background.Color != "#ffcc00" {
		t.Fatalf("color = %q", bv.Background.Color)
	}
	if !strings.HasPrefix(bv.Background.Image, "data:image/png;base64,") {
		t.Fatalf("image = %q", bv.Background.Image)
	}
}

func TestSaveClearLoadAPI(t *testing.T) {
	_, ts := newTestServer(t, memConfig(t))

	expectStatus(t, postJSON(t, ts.URL+"/api/items", map[string]string{"kind": "text", "content": "Hello", "left": "10px", "top": "20px"}), http.StatusCreated)
	expectStatus(t, postJSON(t, ts.URL+"/api/items", map[string]string{"kind": "note", "content": "Sticky Note", "left": "100px", "top": "40px"}), http.StatusCreated)
	expectStatus(t, do(t, http.MethodPost, ts.URL+"/api/save", "", nil), http.StatusNoContent)
	expectStatus(t, do(t, http.MethodPost, ts.URL+"/api/clear", "", nil), http.StatusNoContent)

	if bv := decode[boardView](t, do(t, http.MethodGet, ts.URL+"/api/board", "", nil)); len(bv.Items) != 0 {
		t.Fatalf("board not cleared: %d items", len(bv.Items))
	}

	resp := do(t, http.MethodPost, ts.URL+"/api/load", "", nil)
	expectStatus(t, resp, http.StatusOK)
	if got := decode[map[string]bool](t, resp); !got["restored"] {
		t.Fatalf("expected restore")
	}
	bv := decode[boardView](t, do(t, http.MethodGet, ts.URL+"/api/board", "", nil))
	if len(bv.Items) != 2 || bv.Items[0].Content != "Hello" || bv.Items[1].Left != "100px" {
		t.Fatalf("unexpected restore: %+v", bv.Items)
	}
}

func TestExportChannels(t *testing.T) {
	_, ts := newTestServer(t, memConfig(t))

	// before any export the view renders the page on demand
	resp := do(t, http.MethodGet, ts.URL+"/export/view", "", nil)
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}

	expectStatus(t, postJSON(t, ts.URL+"/api/background/color", map[string]string{"color": "#ffcc00"}), http.StatusNoContent)
	expectStatus(t, postJSON(t, ts.URL+"/api/items", map[string]string{"kind": "note", "content": "Sticky Note"}), http.StatusCreated)

	resp = do(t, http.MethodPost, ts.URL+"/api/export?format=html", "", nil)
	expectStatus(t, resp, http.StatusOK)
	meta := decode[map[string]any](t, resp)
	if meta["filename"] != "canvas.html" {
		t.Fatalf("filename = %v", meta["filename"])
	}

	view := do(t, http.MethodGet, ts.URL+"/export/view", "", nil)
	expectStatus(t, view, http.StatusOK)
	viewBody, _ := io.ReadAll(view.Body)
	download := do(t, http.MethodGet, ts.URL+"/export/download", "", nil)
	expectStatus(t, download, http.StatusOK)
	downloadBody, _ := io.ReadAll(download.Body)

	if !bytes.Equal(viewBody, downloadBody) {
		t.Fatalf("view and download differ")
	}
	if !bytes.Contains(viewBody, []byte("background-color: #ffcc00;")) || !bytes.Contains(viewBody, []byte("Sticky Note")) {
		t.Fatalf("export lacks board content: %s", viewBody)
	}
	disp, params, err := mime.ParseMediaType(download.Header.Get("Content-Disposition"))
	if err != nil || disp != "attachment" || params["filename"] != "canvas.html" {
		t.Fatalf("content disposition = %q", download.Header.Get("Content-Disposition"))
	}
	if disp, _, _ := mime.ParseMediaType(view.Header.Get("Content-Disposition")); disp != "inline" {
		t.Fatalf("view disposition = %q", disp)
	}

	resp = do(t, http.MethodPost, ts.URL+"/api/export?format=png", "", nil)
	expectStatus(t, resp, http.StatusOK)
	download = do(t, http.MethodGet, ts.URL+"/export/download", "", nil)
	if ct := download.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("png content type = %q", ct)
	}
	expectStatus(t, do(t, http.MethodPost, ts.URL+"/api/export?format=svg", "", nil), http.StatusBadRequest)
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func readEvent(t *testing.T, conn *websocket.Conn, typ string) event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var ev event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("waiting for %q: %v", typ, err)
		}
		if ev.Type == typ {
			return ev
		}
	}
}

func TestPointerStream(t *testing.T) {
	s, ts := newTestServer(t, memConfig(t))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readEvent(t, conn, "board")
	if first.Board == nil || len(first.Board.Items) != 0 {
		t.Fatalf("unexpected snapshot: %+v", first.Board)
	}
	if s.hub.len() != 1 {
		t.Fatalf("client not registered")
	}

	expectStatus(t, postJSON(t, ts.URL+"/api/items", map[string]string{"kind": "note", "content": "drag me", "left": "10px", "top": "20px"}), http.StatusCreated)
	created := readEvent(t, conn, "created")
	id := created.Item.ID

	send := func(m message) {
		t.Helper()
		if err := conn.WriteJSON(m); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	send(message{Type: "pointerdown", ID: id, Client: point{X: 15, Y: 25}})
	send(message{Type: "pointermove", Client: point{X: 105, Y: 65}})
	moved := readEvent(t, conn, "moved")
	if moved.Item.ID != id || moved.Item.Left != "100px" || moved.Item.Top != "60px" {
		t.Fatalf("unexpected move: %+v", moved.Item)
	}
	send(message{Type: "pointermove", Client: point{X: 0, Y: 0}, Page: &point{X: 205, Y: 105}})
	moved = readEvent(t, conn, "moved")
	if moved.Item.Left != "200px" || moved.Item.Top != "100px" {
		t.Fatalf("page coordinates not used: %+v", moved.Item)
	}
	send(message{Type: "pointerup"})

	send(message{Type: "pointerdown", ID: "missing"})
	if ev := readEvent(t, conn, "error"); !strings.Contains(ev.Error, "not found") {
		t.Fatalf("unexpected error event: %q", ev.Error)
	}

	expectStatus(t, do(t, http.MethodPut, ts.URL+"/api/items/"+id+"/content", "application/json", []byte(`{"content":"edited"}`)), http.StatusOK)
	if ev := readEvent(t, conn, "updated"); ev.Item.Content != "edited" {
		t.Fatalf("unexpected update: %+v", ev.Item)
	}
	expectStatus(t, do(t, http.MethodPost, ts.URL+"/api/clear", "", nil), http.StatusNoContent)
	readEvent(t, conn, "cleared")
	expectStatus(t, postJSON(t, ts.URL+"/api/background/color", map[string]string{"color": "teal"}), http.StatusNoContent)
	if ev := readEvent(t, conn, "background"); ev.Background.Color != "teal" {
		t.Fatalf("unexpected background: %+v", ev.Background)
	}
}

func TestFocusedItemDoesNotDragOverStream(t *testing.T) {
	_, ts := newTestServer(t, memConfig(t))
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readEvent(t, conn, "board")

	expectStatus(t, postJSON(t, ts.URL+"/api/items", map[string]string{"kind": "text", "content": "x", "left": "0px", "top": "0px"}), http.StatusCreated)
	id := readEvent(t, conn, "created").Item.ID

	for _, m := range []message{
		{Type: "focus", ID: id},
		{Type: "pointerdown", ID: id, Client: point{X: 1, Y: 1}},
		{Type: "pointermove", Client: point{X: 50, Y: 50}},
		{Type: "pointerup"},
		{Type: "blur"},
		{Type: "sync"},
	} {
		if err := conn.WriteJSON(m); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	// frames apply in order; the sync reply marks the end
	bv := *readEvent(t, conn, "board").Board
	if bv.Items[0].Left != "0px" || bv.Focused != "" {
		t.Fatalf("focused item moved or focus kept: %+v focused=%q", bv.Items[0], bv.Focused)
	}
}

func TestSyncFrameResendsBoard(t *testing.T) {
	_, ts := newTestServer(t, memConfig(t))
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if first := readEvent(t, conn, "board"); len(first.Board.Items) != 0 {
		t.Fatalf("fresh board has items: %+v", first.Board.Items)
	}

	expectStatus(t, postJSON(t, ts.URL+"/api/items", map[string]string{"kind": "note", "content": "n"}), http.StatusCreated)
	readEvent(t, conn, "created")
	if err := conn.WriteJSON(message{Type: "sync"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var ev event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Type != "board" || ev.Board == nil {
		t.Fatalf("sync answered with %q (%s)", ev.Type, ev.Error)
	}
	if len(ev.Board.Items) != 1 || ev.Board.Items[0].Content != "n" {
		t.Fatalf("unexpected board: %+v", ev.Board.Items)
	}
}

func TestWatchReloadsExternalChanges(t *testing.T) {
	cfg := memConfig(t)
	cfg.Storage.Driver = config.DriverFile
	cfg.Storage.Path = filepath.Join(t.TempDir(), "canvas.json")
	s, ts := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop, err := s.Watch(ctx)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer stop()

	snapshot := `[{"kind":"note","content":"from disk","left":"5px","top":"6px","src":null}]`
	slot, _ := json.Marshal(map[string]string{persist.Key: snapshot})
	if err := os.WriteFile(cfg.Storage.Path, slot, 0o644); err != nil {
		t.Fatalf("write slot: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		bv := decode[boardView](t, do(t, http.MethodGet, ts.URL+"/api/board", "", nil))
		if len(bv.Items) == 1 && bv.Items[0].Content == "from disk" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("board not reloaded: %+v", bv.Items)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestWatchIgnoresMemoryStore(t *testing.T) {
	s, _ := newTestServer(t, memConfig(t))
	stop, err := s.Watch(context.Background())
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	stop()
}

func TestServeShutsDownOnCancel(t *testing.T) {
	st, err := editor.New(editor.Options{Config: memConfig(t)})
	if err != nil {
		t.Fatalf("editor: %v", err)
	}
	s := New(Options{State: st})
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}

type mountCounter struct {
	board.NopRenderer
	mounted atomic.Int32
}

func (m *mountCounter) Mount(*item.Item) { m.mounted.Add(1) }

func TestServerKeepsHostRenderer(t *testing.T) {
	host := &mountCounter{}
	st, err := editor.New(editor.Options{Config: memConfig(t), Renderer: host})
	if err != nil {
		t.Fatalf("editor: %v", err)
	}
	s := New(Options{State: st})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
		_ = st.Close()
	})
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readEvent(t, conn, "board")

	expectStatus(t, postJSON(t, ts.URL+"/api/items", map[string]string{"kind": "note"}), http.StatusCreated)
	readEvent(t, conn, "created")
	if n := host.mounted.Load(); n != 1 {
		t.Fatalf("host renderer mounted %d items, want 1", n)
	}
}

// lockedBuffer is written by server goroutines and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStreamLogsCarrySession(t *testing.T) {
	var out lockedBuffer
	applog.Init(applog.Options{Level: "debug", Format: "json", Writer: &out})
	t.Cleanup(func() { applog.Init(applog.Options{Level: "error", Writer: io.Discard}) })

	_, ts := newTestServer(t, memConfig(t))
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readEvent(t, conn, "board")
	if err := conn.WriteJSON(message{Type: "pointerdown", ID: "missing"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readEvent(t, conn, "error")

	sessions := map[string]bool{}
	for _, line := range strings.Split(out.String(), "\n") {
		var rec map[string]any
		if json.Unmarshal([]byte(line), &rec) != nil {
			continue
		}
		if msg := rec["msg"]; msg == "websocket connected" || msg == "pointer event failed" {
			id, _ := rec["session"].(string)
			if id == "" {
				t.Fatalf("%v logged without a session: %s", msg, line)
			}
			sessions[id] = true
		}
	}
	if len(sessions) != 1 {
		t.Fatalf("want one session id across the connection, got %v", sessions)
	}
}
