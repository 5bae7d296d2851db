/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package board

import "canvasboard/internal/item"

// Renderer mirrors board changes onto a display.
type Renderer interface {
	Mount(*item.Item)
	Update(*item.Item)
	Reset()
	Background(Background)
}

// NopRenderer renders nothing.
type NopRenderer struct{}

func (NopRenderer) Mount(*item.Item)      {}
func (NopRenderer) Update(*item.Item)     {}
func (NopRenderer) Reset()                {}
func (NopRenderer) Background(Background) {}

// Renderers fans every call out to each renderer in order.
type Renderers []Renderer

func (rs Renderers) Mount(it *item.Item) {
	for _, r := range rs {
		r.Mount(it)
	}
}

func (rs Renderers) Update(it *item.Item) {
	for _, r := range rs {
		r.Update(it)
	}
}

func (rs Renderers) Reset() {
	for _, r := range rs {
		r.Reset()
	}
}

func (rs Renderers) Background(bg Background) {
	for _, r := range rs {
		r.Background(bg)
	}
}
