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
	"image/png"

	"canvasboard/internal/board"
	"canvasboard/internal/imagesrc"

	"github.com/jung-kurt/gofpdf"
)

// PDF renders scene as a single page whose size in points equals the surface
// size in pixels. Text uses the built-in Helvetica so nothing is embedded.
func PDF(scene board.Scene) (Document, error) {
	wi, hi := surfaceSize(scene)
	w, h := float64(wi), float64(hi)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetTitle(PageTitle, true)
	pdf.SetCreator("canvasboard", true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat("", gofpdf.SizeType{Wd: w, Ht: h})
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if bgc := backgroundColor(scene); bgc.A > 0 {
		setFillColor(pdf, bgc)
		pdf.Rect(0, 0, w, h, "F")
	}

	if scene.Background.Image != "" {
		if bg, err := imagesrc.Decode(scene.Background.Image); err == nil {
			sz := bg.Bounds().Size()
			x, y, cw, ch := coverRect(float64(sz.X), float64(sz.Y), w, h)
			pdf.ClipRect(0, 0, w, h, false)
			if err := placeImage(pdf, "background", bg, x, y, cw, ch); err != nil {
				return Document{}, err
			}
			pdf.ClipEnd()
		}
	}

	setDrawColor(pdf, dashInk)
	pdf.SetLineWidth(2)
	pdf.SetDashPattern([]float64{6, 4}, 0)
	pdf.Rect(1, 1, w-2, h-2, "D")
	pdf.SetDashPattern([]float64{}, 0)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetLineWidth(1)
	for i, d := range scene.Items {
		b := layoutItem(d)
		if b.Image != nil {
			if err := placeImage(pdf, fmt.Sprintf("item%d", i), b.Image, b.X, b.Y, b.W, b.H); err != nil {
				return Document{}, err
			}
			continue
		}
		setFillColor(pdf, b.Fill)
		setDrawColor(pdf, borderInk)
		if b.Fill.A < 255 {
			pdf.SetAlpha(float64(b.Fill.A)/255, "Normal")
		}
		style := "FD"
		if b.Lines == nil {
			style = "F"
		}
		pdf.Rect(b.X, b.Y, b.W, b.H, style)
		pdf.SetAlpha(1, "Normal")
		pdf.SetTextColor(0, 0, 0)
		for n, line := range b.Lines {
			pdf.Text(b.X+b.Pad, b.Y+b.Pad+ascent+float64(n)*lineHeight, tr(line))
		}
	}

	if err := pdf.Error(); err != nil {
		return Document{}, fmt.Errorf("render pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Document{}, fmt.Errorf("write pdf: %w", err)
	}
	return Document{Filename: withExt(DefaultFilename, ".pdf"), ContentType: "application/pdf", Body: buf.Bytes()}, nil
}

// placeImage registers img as PNG under name and draws it into the given box.
func placeImage(pdf *gofpdf.Fpdf, name string, img image.Image, x, y, w, h float64) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	opt := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opt, &buf)
	pdf.ImageOptions(name, x, y, w, h, false, opt, 0, "")
	return nil
}

func setDrawColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
