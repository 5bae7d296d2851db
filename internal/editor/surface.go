/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"log/slog"

	"canvasboard/internal/drag"
	"canvasboard/internal/export"
	applog "canvasboard/internal/log"
)

// Surface is a host that emits user gestures. Each On method registers the
// single handler for that gesture.
type Surface interface {
	OnDrop(func(dataType string, client drag.Point))
	OnImageUpload(func(data []byte))
	OnBackgroundColor(func(color string))
	OnBackgroundImage(func(data []byte))
	OnPointerDown(func(id string, p drag.Pointer))
	OnPointerMove(func(p drag.Pointer))
	OnPointerUp(func(p drag.Pointer))
	OnEdit(func(id, text string))
	OnFocus(func(id string, focused bool))
	OnSave(func())
	OnLoad(func())
	OnExport(func(format string))
}

// FailureReporter is implemented by surfaces that show handler failures to
// the user.
type FailureReporter interface {
	Failed(gesture string, err error)
}

// Bind wires every gesture of sf to the editor. Handler failures are logged,
// passed to sf when it is a FailureReporter, and the surface keeps running.
func (s *State) Bind(sf Surface) {
	l := applog.WithOperation(s.log, "handle")
	reporter, _ := sf.(FailureReporter)
	fail := func(gesture string, err error) {
		l.Warn("gesture failed", slog.String("gesture", gesture), slog.Any("err", err))
		if reporter != nil {
			reporter.Failed(gesture, err)
		}
	}

	sf.OnDrop(func(dataType string, client drag.Point) {
		if _, ok := s.board.HandleDrop(dataType, client); !ok && dataType != "" {
			l.Debug("drop ignored", slog.String("type", dataType))
		}
	})
	sf.OnImageUpload(func(data []byte) {
		if _, err := s.board.HandleImageUpload(data); err != nil {
			fail("image", err)
		}
	})
	sf.OnBackgroundColor(func(color string) {
		if err := s.board.SetBackgroundColor(color); err != nil {
			fail("background-color", err)
		}
	})
	sf.OnBackgroundImage(func(data []byte) {
		if err := s.board.SetBackgroundImage(data); err != nil {
			fail("background-image", err)
		}
	})
	sf.OnPointerDown(func(id string, p drag.Pointer) {
		if _, err := s.board.PointerDown(id, p); err != nil {
			fail("pointerdown", err)
		}
	})
	sf.OnPointerMove(s.board.PointerMove)
	sf.OnPointerUp(func(p drag.Pointer) { s.board.PointerUp(p) })
	sf.OnEdit(func(id, text string) {
		if err := s.board.SetContent(id, text); err != nil {
			fail("edit", err)
		}
	})
	sf.OnFocus(func(id string, focused bool) {
		if !focused {
			s.board.Blur()
			return
		}
		if err := s.board.Focus(id); err != nil {
			fail("focus", err)
		}
	})
	sf.OnSave(func() {
		if err := s.Save(s.ctx); err != nil {
			fail("save", err)
		}
	})
	sf.OnLoad(func() {
		if _, err := s.Load(s.ctx); err != nil {
			fail("load", err)
		}
	})
	sf.OnExport(func(format string) {
		f, err := export.ParseFormat(format)
		if err != nil {
			fail("export", err)
			return
		}
		if _, err := s.Export(s.ctx, f); err != nil {
			fail("export", err)
		}
	})
}
