//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests need the Fyne test driver and build only with -tags fyne:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"

	"canvasboard/internal/drag"
	"canvasboard/internal/item"
)

func newTestView(t *testing.T, onEdit func(string)) (*boardView, *surface) {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)
	st := newEditor(t)
	sf := &surface{}
	view := newBoardView(st.Board(), sf, onEdit)
	st.Board().SetRenderer(view)
	st.Bind(sf)
	w := test.NewWindow(view)
	t.Cleanup(w.Close)
	return view, sf
}

func pngFixture(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestBoardViewMinSizeIsBoardSize(t *testing.T) {
	view, _ := newTestView(t, nil)
	w, h := view.board.Size()
	if got := view.MinSize(); got != fyne.NewSize(float32(w), float32(h)) {
		t.Fatalf("MinSize = %v, want %dx%d", got, w, h)
	}
}

func TestBoardViewTracksItems(t *testing.T) {
	view, sf := newTestView(t, nil)
	sf.drop("text", drag.Point{X: 10, Y: 20})
	sf.drop("note", drag.Point{X: 60, Y: 80})
	if len(view.items) != 2 {
		t.Fatalf("expected 2 item widgets, got %d", len(view.items))
	}
	for _, it := range view.board.Items() {
		iw := view.items[it.ID()]
		if iw == nil {
			t.Fatalf("no widget for %s", it.ID())
		}
		if iw.left != float32(it.Position().Left.Pixels()) || iw.top != float32(it.Position().Top.Pixels()) {
			t.Fatalf("widget at %v,%v, item at %v", iw.left, iw.top, it.Position())
		}
	}

	view.board.Clear()
	if len(view.items) != 0 {
		t.Fatalf("clear left %d widgets", len(view.items))
	}
}

func TestItemWidgetBoxBounds(t *testing.T) {
	view, _ := newTestView(t, nil)
	long, err := view.board.CreateItem(item.Text, strings.Repeat("lorem ipsum ", 40), item.At(0, 0), "")
	if err != nil {
		t.Fatal(err)
	}
	short, err := view.board.CreateItem(item.Note, "x", item.At(0, 0), "")
	if err != nil {
		t.Fatal(err)
	}
	ls := view.items[long.ID()].MinSize()
	if ls.Width > maxTextW || ls.Height <= minItemH {
		t.Fatalf("long text box = %v", ls)
	}
	ss := view.items[short.ID()].MinSize()
	if ss.Width < minItemW || ss.Height < minItemH {
		t.Fatalf("short note box = %v", ss)
	}
}

func TestDoubleTapEditsTextOnly(t *testing.T) {
	var edited []string
	view, sf := newTestView(t, func(id string) { edited = append(edited, id) })
	sf.drop("text", drag.Point{X: 5, Y: 5})
	sf.upload(pngFixture(t))

	for _, it := range view.board.Items() {
		view.items[it.ID()].DoubleTapped(&fyne.PointEvent{})
	}
	if len(edited) != 1 || edited[0] != view.board.Items()[0].ID() {
		t.Fatalf("edited = %v", edited)
	}
}
