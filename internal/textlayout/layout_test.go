/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"strings"
	"testing"
)

func TestWordWrap_Breaks(t *testing.T) {
	l := NewWordWrap(BasicProvider{})
	box := l.Layout("Hello world from Go", 50)
	if len(box.Lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %d", len(box.Lines))
	}
	if box.Width <= 0 || box.Width > 50 || box.Height <= 0 {
		t.Fatalf("unexpected box size: %+v", box)
	}
	if got := strings.Join(box.Strings(), " "); got != "Hello world from Go" {
		t.Fatalf("words lost or reordered: %q", got)
	}
}

func TestWordWrap_Newlines(t *testing.T) {
	box := NewWordWrap(nil).Layout("a\n\nb", 0)
	if got := box.Strings(); len(got) != 3 || got[0] != "a" || got[1] != "" || got[2] != "b" {
		t.Fatalf("lines = %q", got)
	}
	if box.Height != 3*box.Metrics.LineHeight() {
		t.Fatalf("height = %v, want 3 lines", box.Height)
	}
}

func TestWordWrap_SplitsLongWords(t *testing.T) {
	// Face7x13 advances 7px per glyph.
	box := NewWordWrap(BasicProvider{}).Layout("abcdefghij", 30)
	want := []string{"abcd", "efgh", "ij"}
	got := box.Strings()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("lines = %q, want %q", got, want)
	}
	for _, ln := range box.Lines {
		if ln.Width > 30 {
			t.Fatalf("line %q is %vpx wide", ln.Text, ln.Width)
		}
	}
}

func TestWordWrap_Empty(t *testing.T) {
	box := NewWordWrap(BasicProvider{}).Layout("", 100)
	if len(box.Lines) != 1 || box.Lines[0].Text != "" || box.Width != 0 {
		t.Fatalf("empty layout = %+v", box)
	}
}

func TestMeasure_Deterministic(t *testing.T) {
	w1, h1 := Measure(BasicProvider{}, "ABC")
	w2, h2 := Measure(nil, "ABC")
	if w1 != 21 || w1 != w2 || h1 != h2 {
		t.Fatalf("expected same measure, got w1=%v h1=%v vs w2=%v h2=%v", w1, h1, w2, h2)
	}
}
