//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image"
	"image/color"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"canvasboard/internal/board"
	"canvasboard/internal/drag"
	"canvasboard/internal/imagesrc"
	"canvasboard/internal/item"
	applog "canvasboard/internal/log"
)

var (
	textFill   = color.NRGBA{R: 255, G: 255, B: 255, A: 204}
	dashInk    = color.NRGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
	missingInk = color.NRGBA{R: 220, G: 220, B: 220, A: 255}
)

// boardView draws the board and is its renderer: every board change refreshes it.
type boardView struct {
	widget.BaseWidget

	board  *board.Board
	sf     *surface
	onEdit func(id string)

	items map[string]*itemWidget
	bgSrc string
	bgImg image.Image
}

var _ board.Renderer = (*boardView)(nil)

func newBoardView(b *board.Board, sf *surface, onEdit func(id string)) *boardView {
	v := &boardView{board: b, sf: sf, onEdit: onEdit, items: map[string]*itemWidget{}}
	v.ExtendBaseWidget(v)
	return v
}

func (v *boardView) Mount(*item.Item)            { v.Refresh() }
func (v *boardView) Update(*item.Item)           { v.Refresh() }
func (v *boardView) Reset()                      { v.Refresh() }
func (v *boardView) Background(board.Background) { v.Refresh() }

// syncOrigin records where the board sits in the window so window
// coordinates map onto board coordinates.
func (v *boardView) syncOrigin() {
	abs := fyne.CurrentApp().Driver().AbsolutePositionForObject(v)
	v.board.SetOrigin(drag.Point{X: float64(abs.X), Y: float64(abs.Y)})
}

// itemWidgets reconciles the cached widgets with the board's items.
func (v *boardView) itemWidgets() []fyne.CanvasObject {
	live := v.board.Items()
	seen := make(map[string]bool, len(live))
	objs := make([]fyne.CanvasObject, 0, len(live))
	for _, it := range live {
		w, ok := v.items[it.ID()]
		if !ok {
			w = newItemWidget(v, it)
			v.items[it.ID()] = w
		} else {
			w.sync(it)
		}
		seen[it.ID()] = true
		objs = append(objs, w)
	}
	for id := range v.items {
		if !seen[id] {
			delete(v.items, id)
		}
	}
	return objs
}

func (v *boardView) backgroundImage(w, h int) image.Image {
	bg := v.board.Background()
	if bg.Image == "" {
		v.bgSrc, v.bgImg = "", nil
		return nil
	}
	if bg.Image != v.bgSrc {
		v.bgSrc, v.bgImg = bg.Image, nil
		src, err := imagesrc.Decode(bg.Image)
		if err != nil {
			applog.WithComponent("ui").Warn("background image not drawable", slog.Any("err", err))
			return nil
		}
		v.bgImg = cover(src, w, h)
	}
	return v.bgImg
}

func (v *boardView) CreateRenderer() fyne.WidgetRenderer {
	r := &boardRenderer{
		v:      v,
		bg:     canvas.NewRectangle(color.White),
		border: canvas.NewRectangle(color.Transparent),
	}
	r.border.StrokeColor = dashInk
	r.border.StrokeWidth = borderSize
	r.rebuild()
	return r
}

type boardRenderer struct {
	v       *boardView
	bg      *canvas.Rectangle
	bgImage *canvas.Image
	border  *canvas.Rectangle
	items   []fyne.CanvasObject
	objects []fyne.CanvasObject
}

func (r *boardRenderer) rebuild() {
	w, h := r.v.board.Size()
	r.bg.FillColor = color.White
	if c, err := board.ParseColor(r.v.board.Background().Color); err == nil {
		r.bg.FillColor = color.NRGBA(c)
	}
	r.objects = []fyne.CanvasObject{r.bg}
	if img := r.v.backgroundImage(w, h); img != nil {
		if r.bgImage == nil || r.bgImage.Image != img {
			r.bgImage = canvas.NewImageFromImage(img)
			r.bgImage.FillMode = canvas.ImageFillStretch
		}
		r.objects = append(r.objects, r.bgImage)
	}
	r.items = r.v.itemWidgets()
	r.objects = append(r.objects, r.items...)
	r.objects = append(r.objects, r.border)
}

func (r *boardRenderer) Layout(fyne.Size) {
	sz := r.MinSize()
	r.bg.Move(fyne.NewPos(0, 0))
	r.bg.Resize(sz)
	if r.bgImage != nil {
		r.bgImage.Move(fyne.NewPos(0, 0))
		r.bgImage.Resize(sz)
	}
	r.border.Move(fyne.NewPos(0, 0))
	r.border.Resize(sz)
	for _, o := range r.items {
		iw := o.(*itemWidget)
		o.Move(fyne.NewPos(iw.left, iw.top))
		o.Resize(o.MinSize())
	}
}

func (r *boardRenderer) MinSize() fyne.Size {
	w, h := r.v.board.Size()
	return fyne.NewSize(float32(w), float32(h))
}

func (r *boardRenderer) Refresh() {
	r.rebuild()
	r.Layout(r.v.Size())
	for _, o := range r.items {
		o.Refresh()
	}
	canvas.Refresh(r.v)
}

func (r *boardRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *boardRenderer) Destroy()                     {}

// itemWidget is one item on the board. Dragging it drives the board's pointer
// handlers; double-tapping a text or note opens the editor.
type itemWidget struct {
	widget.BaseWidget
	view *boardView

	id        string
	kind      item.Kind
	content   string
	left, top float32
	img       image.Image
	pressed   bool
}

func newItemWidget(v *boardView, it *item.Item) *itemWidget {
	w := &itemWidget{view: v, id: it.ID(), kind: it.Kind()}
	if it.Kind() == item.Image {
		if img, err := imagesrc.Decode(it.ImageSource()); err == nil {
			w.img = img
		}
	}
	w.sync(it)
	w.ExtendBaseWidget(w)
	return w
}

func (w *itemWidget) sync(it *item.Item) {
	pos := it.Position()
	w.content = it.Content()
	w.left = float32(pos.Left.Pixels())
	w.top = float32(pos.Top.Pixels())
}

func (w *itemWidget) padding() float32 {
	if p := item.AppearanceOf(w.kind).Padding; p != "" {
		if l, err := item.ParseLength(p); err == nil {
			return float32(l.Pixels())
		}
	}
	return textPad
}

// textLayout wraps the content and sizes the box the way the exported CSS does.
func (w *itemWidget) textLayout() ([]string, fyne.Size, float32) {
	size := theme.TextSize()
	measure := func(s string) float32 { return fyne.MeasureText(s, size, fyne.TextStyle{}).Width }
	pad := w.padding()
	lines := wrapWords(w.content, maxTextW-2*pad, measure)
	lineH := fyne.MeasureText("M", size, fyne.TextStyle{}).Height
	var widest float32
	for _, l := range lines {
		widest = max(widest, measure(l))
	}
	width := min(max(widest+2*pad, minItemW), maxTextW)
	height := max(float32(len(lines))*lineH+2*pad, minItemH)
	return lines, fyne.NewSize(width, height), lineH
}

func (w *itemWidget) MinSize() fyne.Size {
	if w.kind == item.Image {
		if w.img == nil {
			return fyne.NewSize(minItemW, minItemW)
		}
		b := w.img.Bounds()
		return fyne.NewSize(imageBox(b.Dx(), b.Dy()))
	}
	_, sz, _ := w.textLayout()
	return sz
}

func (w *itemWidget) Dragged(e *fyne.DragEvent) {
	if !w.pressed {
		w.pressed = true
		w.view.syncOrigin()
		start := e.AbsolutePosition.Subtract(e.Dragged)
		w.view.sf.pointerDown(w.id, pointerAt(start.X, start.Y, w.view.board.Origin()))
	}
	w.view.sf.pointerMove(pointerAt(e.AbsolutePosition.X, e.AbsolutePosition.Y, w.view.board.Origin()))
}

func (w *itemWidget) DragEnd() {
	if !w.pressed {
		return
	}
	w.pressed = false
	w.view.sf.pointerUp(drag.Pointer{})
}

func (w *itemWidget) DoubleTapped(*fyne.PointEvent) {
	if w.kind.Editable() && w.view.onEdit != nil {
		w.view.onEdit(w.id)
	}
}

func (w *itemWidget) CreateRenderer() fyne.WidgetRenderer {
	if w.kind == item.Image {
		if w.img == nil {
			return widget.NewSimpleRenderer(canvas.NewRectangle(missingInk))
		}
		im := canvas.NewImageFromImage(w.img)
		im.FillMode = canvas.ImageFillStretch
		return widget.NewSimpleRenderer(im)
	}
	ap := item.AppearanceOf(w.kind)
	var fill color.Color = textFill
	if c, err := board.ParseColor(ap.Background); err == nil {
		fill = color.NRGBA(c)
	}
	rect := canvas.NewRectangle(fill)
	rect.StrokeColor = color.Black
	rect.StrokeWidth = 1
	if ap.Radius != "" {
		if l, err := item.ParseLength(ap.Radius); err == nil {
			rect.CornerRadius = float32(l.Pixels())
		}
	}
	r := &itemRenderer{w: w, rect: rect}
	r.rebuild()
	return r
}

type itemRenderer struct {
	w       *itemWidget
	rect    *canvas.Rectangle
	lines   []*canvas.Text
	lineH   float32
	objects []fyne.CanvasObject
}

func (r *itemRenderer) rebuild() {
	lines, _, lineH := r.w.textLayout()
	r.lineH = lineH
	r.lines = r.lines[:0]
	r.objects = []fyne.CanvasObject{r.rect}
	for _, l := range lines {
		t := canvas.NewText(l, color.Black)
		r.lines = append(r.lines, t)
		r.objects = append(r.objects, t)
	}
}

func (r *itemRenderer) Layout(size fyne.Size) {
	r.rect.Resize(size)
	pad := r.w.padding()
	for i, t := range r.lines {
		t.Move(fyne.NewPos(pad, pad+float32(i)*r.lineH))
	}
}

func (r *itemRenderer) MinSize() fyne.Size { return r.w.MinSize() }

func (r *itemRenderer) Refresh() {
	r.rebuild()
	r.Layout(r.w.Size())
	canvas.Refresh(r.w)
}

func (r *itemRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *itemRenderer) Destroy()                     {}

// paletteChip is dragged from the toolbar onto the board to place a new item.
type paletteChip struct {
	widget.BaseWidget
	label    string
	dataType string
	onDrop   func(dataType string, abs fyne.Position)

	last     fyne.Position
	dragging bool
}

func newPaletteChip(label, dataType string, onDrop func(string, fyne.Position)) *paletteChip {
	c := &paletteChip{label: label, dataType: dataType, onDrop: onDrop}
	c.ExtendBaseWidget(c)
	return c
}

func (c *paletteChip) CreateRenderer() fyne.WidgetRenderer {
	var fill color.Color = textFill
	if ap := item.AppearanceOf(kindOf(c.dataType)); ap.Background != "" {
		if col, err := board.ParseColor(ap.Background); err == nil {
			fill = color.NRGBA(col)
		}
	}
	bg := canvas.NewRectangle(fill)
	bg.StrokeColor = color.Black
	bg.StrokeWidth = 1
	txt := canvas.NewText(c.label, color.Black)
	txt.Alignment = fyne.TextAlignCenter
	return &chipRenderer{bg: bg, txt: txt}
}

func (c *paletteChip) Dragged(e *fyne.DragEvent) {
	c.dragging = true
	c.last = e.AbsolutePosition
}

func (c *paletteChip) DragEnd() {
	if !c.dragging {
		return
	}
	c.dragging = false
	c.onDrop(c.dataType, c.last)
}

func kindOf(dataType string) item.Kind {
	if k, err := item.ParseKind(dataType); err == nil {
		return k
	}
	return item.Text
}

type chipRenderer struct {
	bg  *canvas.Rectangle
	txt *canvas.Text
}

func (r *chipRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.txt.Resize(size)
}

func (r *chipRenderer) MinSize() fyne.Size {
	ts := r.txt.MinSize()
	return fyne.NewSize(max(ts.Width+16, 80), ts.Height+12)
}

func (r *chipRenderer) Refresh()                     { canvas.Refresh(r.bg); canvas.Refresh(r.txt) }
func (r *chipRenderer) Objects() []fyne.CanvasObject { return []fyne.CanvasObject{r.bg, r.txt} }
func (r *chipRenderer) Destroy()                     {}
