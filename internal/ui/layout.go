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
	"image"
	"image/color"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// Text item metrics, matching the exported page's CSS.
const (
	minItemW   = 50
	minItemH   = 20
	maxTextW   = 150
	maxImageW  = 200
	textPad    = 2
	borderSize = 2
)

// Window size bounds kept in preferences.
const (
	minWindowW = 800
	minWindowH = 600
)

// hexColor formats c as a CSS color: #rrggbb, or #rrggbbaa when translucent.
func hexColor(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", n.R, n.G, n.B, n.A)
}

// cover scales src to fill w x h, cropping the overflow evenly on both sides
// like CSS background-size: cover.
func cover(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
	sb := src.Bounds()
	if w <= 0 || h <= 0 || sb.Empty() {
		return dst
	}
	scale := math.Max(float64(w)/float64(sb.Dx()), float64(h)/float64(sb.Dy()))
	cw := float64(w) / scale
	ch := float64(h) / scale
	x0 := sb.Min.X + int(math.Round((float64(sb.Dx())-cw)/2))
	y0 := sb.Min.Y + int(math.Round((float64(sb.Dy())-ch)/2))
	crop := image.Rect(x0, y0, x0+int(math.Round(cw)), y0+int(math.Round(ch))).Intersect(sb)
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, crop, xdraw.Src, nil)
	return dst
}

// imageBox is the on-board size of an image item: natural size, scaled down
// to the maximum width.
func imageBox(w, h int) (float32, float32) {
	if w <= 0 || h <= 0 {
		return minItemW, minItemW
	}
	fw, fh := float32(w), float32(h)
	if fw > maxImageW {
		fh = fh * maxImageW / fw
		fw = maxImageW
	}
	return fw, fh
}

func clampWindow(w, h int) (int, int) {
	return max(w, minWindowW), max(h, minWindowH)
}

// wrapWords breaks s into lines no wider than width, on spaces. Explicit
// newlines are kept; a single word wider than width gets its own line.
func wrapWords(s string, width float32, measure func(string) float32) []string {
	var out []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if measure(line+" "+w) <= width {
				line += " " + w
				continue
			}
			out = append(out, line)
			line = w
		}
		out = append(out, line)
	}
	return out
}
