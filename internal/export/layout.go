/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"image"
	"image/color"

	"canvasboard/internal/board"
	"canvasboard/internal/imagesrc"
	"canvasboard/internal/item"
	"canvasboard/internal/textlayout"
)

var wrapper = textlayout.NewWordWrap(textlayout.BasicProvider{})

// Raster metrics shared by the PDF and PNG renderers. They follow
// basicfont.Face7x13 so both formats lay text out identically.
const (
	lineHeight  = 13.0
	ascent      = 11.0
	minBoxW     = 50.0
	minBoxH     = 20.0
	maxTextBoxW = 150.0
	maxImageW   = 200.0
	textPadding = 2.0
)

// box is the laid-out rectangle of one item in surface pixels. Fill uses
// straight alpha like ParseColor.
type box struct {
	X, Y, W, H float64
	Pad        float64
	Lines      []string
	Fill       color.RGBA
	Image      image.Image // nil for text-bearing items and undecodable sources
}

var (
	textFill   = color.RGBA{R: 255, G: 255, B: 255, A: 204}
	borderInk  = color.RGBA{A: 255}
	dashInk    = color.RGBA{R: 204, G: 204, B: 204, A: 255}
	missingInk = color.RGBA{R: 220, G: 220, B: 220, A: 255}
)

func surfaceSize(scene board.Scene) (int, int) {
	w, h := scene.Width, scene.Height
	if w <= 0 {
		w = board.DefaultWidth
	}
	if h <= 0 {
		h = board.DefaultHeight
	}
	return w, h
}

func backgroundColor(scene board.Scene) color.RGBA {
	if c, err := board.ParseColor(scene.Background.Color); err == nil {
		return c
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255}
}

// layoutItem computes the box an item occupies, mirroring the exported CSS.
func layoutItem(d item.Descriptor) box {
	ap := item.AppearanceOf(d.Kind)
	b := box{X: d.Position.Left.Pixels(), Y: d.Position.Top.Pixels()}
	if d.Kind == item.Image {
		img, err := imagesrc.Decode(d.ImageSource)
		if err != nil {
			b.W, b.H, b.Fill = minBoxW, minBoxW, missingInk
			return b
		}
		sz := img.Bounds().Size()
		b.W, b.H = float64(sz.X), float64(sz.Y)
		if b.W > maxImageW {
			b.H = b.H * maxImageW / b.W
			b.W = maxImageW
		}
		b.Image = img
		return b
	}
	b.Pad = textPadding
	b.Fill = textFill
	if ap.Background != "" {
		if c, err := board.ParseColor(ap.Background); err == nil {
			b.Fill = c
		}
	}
	if ap.Padding != "" {
		b.Pad = item.MustLength(ap.Padding).Pixels()
	}
	tb := wrapper.Layout(d.Content, maxTextBoxW-2*b.Pad)
	b.Lines = tb.Strings()
	b.W = clamp(tb.Width+2*b.Pad, minBoxW, maxTextBoxW)
	b.H = max(float64(len(b.Lines))*lineHeight+2*b.Pad, minBoxH)
	return b
}

func clamp(v, lo, hi float64) float64 { return min(max(v, lo), hi) }

// coverRect fits an iw×ih image over a w×h surface, centered and cropped.
func coverRect(iw, ih, w, h float64) (x, y, cw, ch float64) {
	if iw <= 0 || ih <= 0 {
		return 0, 0, w, h
	}
	scale := max(w/iw, h/ih)
	cw, ch = iw*scale, ih*scale
	return (w - cw) / 2, (h - ch) / 2, cw, ch
}
