/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"strings"
	"testing"

	"canvasboard/internal/config"
	"canvasboard/internal/drag"
	"canvasboard/internal/editor"
	"canvasboard/internal/item"
)

func newEditor(t *testing.T) *editor.State {
	t.Helper()
	cfg := config.Defaults()
	cfg.Storage.Driver = config.DriverMemory
	cfg.Export.Dir = t.TempDir()
	cfg.Export.Open = false
	st, err := editor.New(editor.Options{Config: cfg})
	if err != nil {
		t.Fatalf("editor: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return st
}

func TestSurfaceRunReturnsHandlerFailure(t *testing.T) {
	st := newEditor(t)
	sf := &surface{}
	st.Bind(sf)

	if err := sf.run(func() { sf.export("html") }); err != nil {
		t.Fatalf("html export reported %v", err)
	}
	err := sf.run(func() { sf.export("svg") })
	if err == nil || !strings.HasPrefix(err.Error(), "export: ") {
		t.Fatalf("svg export error = %v", err)
	}
	if err := sf.run(func() { sf.save() }); err != nil {
		t.Fatalf("a failure leaked into the next gesture: %v", err)
	}
}

func TestSurfaceReceivesEveryHandler(t *testing.T) {
	st := newEditor(t)

	sf := &surface{}
	st.Bind(sf)
	if sf.drop == nil || sf.upload == nil || sf.bgColor == nil || sf.bgImage == nil ||
		sf.pointerDown == nil || sf.pointerMove == nil || sf.pointerUp == nil ||
		sf.edit == nil || sf.focus == nil || sf.save == nil || sf.load == nil ||
		sf.export == nil {
		t.Fatalf("Bind left a handler unset: %+v", sf)
	}

	sf.drop("text", pointerAt(30, 40, drag.Point{}).Client)
	items := st.Board().Items()
	if len(items) != 1 || items[0].Position() != item.At(30, 40) {
		t.Fatalf("drop through surface failed: %v", items)
	}
	sf.pointerDown(items[0].ID(), pointerAt(35, 45, drag.Point{}))
	sf.pointerMove(pointerAt(135, 95, drag.Point{}))
	sf.pointerUp(pointerAt(135, 95, drag.Point{}))
	if got := items[0].Position(); got != item.At(130, 90) {
		t.Fatalf("drag through surface = %v", got)
	}
}

func TestDragWithOffsetBoard(t *testing.T) {
	st := newEditor(t)
	sf := &surface{}
	st.Bind(sf)
	origin := drag.Point{X: 100, Y: 50}
	st.Board().SetOrigin(origin)

	sf.drop("note", drag.Point{X: 130, Y: 90})
	items := st.Board().Items()
	if len(items) != 1 || items[0].Position() != item.At(30, 40) {
		t.Fatalf("drop = %v", items)
	}
	sf.pointerDown(items[0].ID(), pointerAt(135, 95, origin))
	sf.pointerMove(pointerAt(235, 145, origin))
	sf.pointerUp(pointerAt(235, 145, origin))
	if got := items[0].Position(); got != item.At(130, 90) {
		t.Fatalf("drag = %v, want the item to follow the pointer", got)
	}
}
