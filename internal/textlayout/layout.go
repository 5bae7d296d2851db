/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and line-breaks item content for the raster
// exporters. Measurement sits behind Provider so the engine can change
// without touching the renderers.
package textlayout

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Metrics are font metrics in pixels.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// LineHeight is the baseline-to-baseline distance.
func (m Metrics) LineHeight() float64 { return m.Ascent + m.Descent + m.LineGap }

// Line is one laid out line.
type Line struct {
	Text  string
	Width float64
}

// Box is text laid out into a maximum width.
type Box struct {
	Lines   []Line
	Width   float64 // widest line
	Height  float64
	Metrics Metrics
}

// Strings returns the text of each line.
func (b Box) Strings() []string {
	out := make([]string, len(b.Lines))
	for i, l := range b.Lines {
		out[i] = l.Text
	}
	return out
}

// Provider supplies the face used for measuring.
type Provider interface {
	Face() (font.Face, Metrics)
}

// BasicProvider uses x/image/basicfont Face7x13, which is deterministic and
// needs no font files.
type BasicProvider struct{}

func (BasicProvider) Face() (font.Face, Metrics) {
	f := basicfont.Face7x13
	m := f.Metrics()
	return f, Metrics{
		Ascent:  float64(m.Ascent.Round()),
		Descent: float64(m.Descent.Round()),
		LineGap: float64(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// WordWrap breaks on spaces and newlines. A word wider than the box is split
// between runes. It does no shaping or hyphenation.
type WordWrap struct{ Provider Provider }

func NewWordWrap(provider Provider) *WordWrap { return &WordWrap{Provider: provider} }

// Layout lays text out into maxWidth pixels. A non-positive maxWidth disables
// wrapping. Empty text yields a single empty line.
func (l *WordWrap) Layout(text string, maxWidth float64) Box {
	p := l.Provider
	if p == nil {
		p = BasicProvider{}
	}
	face, met := p.Face()
	d := &font.Drawer{Face: face}
	box := Box{Metrics: met}
	add := func(s string) {
		w := advance(d, s)
		box.Lines = append(box.Lines, Line{Text: s, Width: w})
		box.Width = max(box.Width, w)
		box.Height += met.LineHeight()
	}
	fits := func(s string) bool { return maxWidth <= 0 || advance(d, s) <= maxWidth }

	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			for !fits(word) {
				head := splitAt(d, word, maxWidth)
				if line != "" {
					add(line)
					line = ""
				}
				add(word[:head])
				word = word[head:]
			}
			switch {
			case line == "":
				line = word
			case fits(line + " " + word):
				line += " " + word
			default:
				add(line)
				line = word
			}
		}
		add(line)
	}
	return box
}

// splitAt returns the byte length of the longest prefix of word that fits,
// never less than one rune.
func splitAt(d *font.Drawer, word string, maxWidth float64) int {
	_, first := utf8.DecodeRuneInString(word)
	n := first
	for n < len(word) {
		_, size := utf8.DecodeRuneInString(word[n:])
		if advance(d, word[:n+size]) > maxWidth {
			break
		}
		n += size
	}
	return n
}

func advance(d *font.Drawer, s string) float64 {
	return float64(d.MeasureString(s).Round())
}

// Measure returns the width of s on a single line and the line height.
func Measure(provider Provider, s string) (w, h float64) {
	if provider == nil {
		provider = BasicProvider{}
	}
	face, met := provider.Face()
	return advance(&font.Drawer{Face: face}, s), met.Ascent + met.Descent
}
