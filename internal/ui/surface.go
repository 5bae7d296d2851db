/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"fmt"

	"canvasboard/internal/drag"
	"canvasboard/internal/editor"
)

// surface collects the editor's gesture handlers; desktop widgets call them.
type surface struct {
	drop        func(dataType string, client drag.Point)
	upload      func(data []byte)
	bgColor     func(color string)
	bgImage     func(data []byte)
	pointerDown func(id string, p drag.Pointer)
	pointerMove func(p drag.Pointer)
	pointerUp   func(p drag.Pointer)
	edit        func(id, text string)
	focus       func(id string, focused bool)
	save        func()
	load        func()
	export      func(format string)

	err error // last handler failure
}

var (
	_ editor.Surface         = (*surface)(nil)
	_ editor.FailureReporter = (*surface)(nil)
)

func (s *surface) OnDrop(fn func(string, drag.Point))          { s.drop = fn }
func (s *surface) OnImageUpload(fn func([]byte))               { s.upload = fn }
func (s *surface) OnBackgroundColor(fn func(string))           { s.bgColor = fn }
func (s *surface) OnBackgroundImage(fn func([]byte))           { s.bgImage = fn }
func (s *surface) OnPointerDown(fn func(string, drag.Pointer)) { s.pointerDown = fn }
func (s *surface) OnPointerMove(fn func(drag.Pointer))         { s.pointerMove = fn }
func (s *surface) OnPointerUp(fn func(drag.Pointer))           { s.pointerUp = fn }
func (s *surface) OnEdit(fn func(string, string))              { s.edit = fn }
func (s *surface) OnFocus(fn func(string, bool))               { s.focus = fn }
func (s *surface) OnSave(fn func())                            { s.save = fn }
func (s *surface) OnLoad(fn func())                            { s.load = fn }
func (s *surface) OnExport(fn func(string))                    { s.export = fn }

func (s *surface) Failed(gesture string, err error) {
	s.err = fmt.Errorf("%s: %w", gesture, err)
}

// run calls fn and returns the first handler failure it caused, if any.
func (s *surface) run(fn func()) error {
	s.err = nil
	fn()
	err := s.err
	s.err = nil
	return err
}

// pointerAt builds a pointer event from window coordinates. Client stays in
// window space; Page is measured from the board's origin so a dragged item
// follows the pointer without jumping.
func pointerAt(x, y float32, origin drag.Point) drag.Pointer {
	client := drag.Point{X: float64(x), Y: float64(y)}
	return drag.Pointer{Client: client, Page: client.Sub(origin)}
}
