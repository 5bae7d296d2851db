/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"canvasboard/internal/board"
	"canvasboard/internal/imagesrc"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PNG rasterizes scene at one pixel per surface pixel.
func PNG(scene board.Scene) (Document, error) {
	w, h := surfaceSize(scene)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.NRGBA(backgroundColor(scene))), image.Point{}, draw.Src)

	if scene.Background.Image != "" {
		if bg, err := imagesrc.Decode(scene.Background.Image); err == nil {
			sz := bg.Bounds().Size()
			x, y, cw, ch := coverRect(float64(sz.X), float64(sz.Y), float64(w), float64(h))
			xdraw.ApproxBiLinear.Scale(img, rectOf(x, y, cw, ch), bg, bg.Bounds(), xdraw.Over, nil)
		}
	}
	dashedBorder(img, dashInk, 2)

	face := basicfont.Face7x13
	for _, d := range scene.Items {
		b := layoutItem(d)
		r := rectOf(b.X, b.Y, b.W, b.H)
		if b.Image != nil {
			xdraw.ApproxBiLinear.Scale(img, r, b.Image, b.Image.Bounds(), xdraw.Over, nil)
			continue
		}
		draw.Draw(img, r, image.NewUniform(color.NRGBA(b.Fill)), image.Point{}, draw.Over)
		if b.Lines == nil {
			continue // undecodable image placeholder
		}
		strokeRect(img, r, borderInk)
		dr := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: face}
		for i, line := range b.Lines {
			dr.Dot = fixed.P(int(math.Round(b.X+b.Pad)), int(math.Round(b.Y+b.Pad+ascent+float64(i)*lineHeight)))
			dr.DrawString(line)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Document{}, fmt.Errorf("encode png: %w", err)
	}
	return Document{Filename: withExt(DefaultFilename, ".png"), ContentType: "image/png", Body: buf.Bytes()}, nil
}

func rectOf(x, y, w, h float64) image.Rectangle {
	x0, y0 := int(math.Round(x)), int(math.Round(y))
	return image.Rect(x0, y0, x0+int(math.Round(w)), y0+int(math.Round(h)))
}

// strokeRect draws a 1px border just inside r.
func strokeRect(img *image.RGBA, r image.Rectangle, col color.RGBA) {
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, col)
		img.SetRGBA(x, r.Max.Y-1, col)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, col)
		img.SetRGBA(r.Max.X-1, y, col)
	}
}

// dashedBorder draws a width-px dashed frame (6 on, 4 off) along the image edge.
func dashedBorder(img *image.RGBA, col color.RGBA, width int) {
	b := img.Bounds()
	on := func(i int) bool { return i%10 < 6 }
	for i := 0; i < width; i++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if on(x) {
				img.SetRGBA(x, b.Min.Y+i, col)
				img.SetRGBA(x, b.Max.Y-1-i, col)
			}
		}
		for y := b.Min.Y; y < b.Max.Y; y++ {
			if on(y) {
				img.SetRGBA(b.Min.X+i, y, col)
				img.SetRGBA(b.Max.X-1-i, y, col)
			}
		}
	}
}
