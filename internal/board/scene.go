/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package board

import (
	"canvasboard/internal/item"
)

// Scene is a read-only copy of what the surface shows, for exporters.
type Scene struct {
	Width, Height int
	Background    Background
	Items         []item.Descriptor
}

// Scene snapshots the surface.
func (b *Board) Scene() Scene {
	s := Scene{Width: b.width, Height: b.height, Background: b.bg, Items: make([]item.Descriptor, 0, len(b.items))}
	for _, it := range b.items {
		s.Items = append(s.Items, it.Descriptor())
	}
	return s
}

// Descriptors returns the persisted attributes of every item, in order.
func (b *Board) Descriptors() []item.Descriptor { return b.Scene().Items }
