/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package item

// Appearance holds the visual rules for a kind. It is derived, never stored.
type Appearance struct {
	Tag        string // element name in exported markup
	Background string // empty means transparent
	Padding    string
	Radius     string
	MaxWidth   string
	Editable   bool
}

// AppearanceOf returns the deterministic visual rules for kind.
func AppearanceOf(k Kind) Appearance {
	switch k {
	case Note:
		return Appearance{Tag: "div", Background: "lightyellow", Padding: "10px", Radius: "5px", Editable: true}
	case Image:
		return Appearance{Tag: "img", MaxWidth: "200px"}
	default:
		return Appearance{Tag: "div", Editable: k == Text}
	}
}

// Placeholder is the initial content of an item created from the palette.
func Placeholder(k Kind) string {
	switch k {
	case Text:
		return "Editable Text"
	case Note:
		return "Sticky Note"
	}
	return ""
}
