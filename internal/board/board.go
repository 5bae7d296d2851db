/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package board implements the canvas surface: the live item collection, the
// palette drop and upload gestures, surface background state and the wiring of
// items to the drag controller. Rendering is delegated to a Renderer so the
// same surface drives a browser, a desktop window or nothing at all.
//
// A Board is not safe for concurrent use; hosts serialize calls.
package board

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"canvasboard/internal/drag"
	"canvasboard/internal/imagesrc"
	"canvasboard/internal/item"
	applog "canvasboard/internal/log"
)

var (
	// ErrNotFound is returned for ids that name no live item.
	ErrNotFound = errors.New("item not found")
	// ErrInvalidColor is returned by SetBackgroundColor for values that are not CSS colors.
	ErrInvalidColor = errors.New("invalid color")
)

// Default surface size, used when Config leaves it unset.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// Background is surface-level appearance, independent of the items.
type Background struct {
	Color string // CSS color; empty means unset
	Image string // data URL; drawn with cover sizing
}

// Config configures a new Board.
type Config struct {
	Width, Height int
	// Origin is the surface's offset inside its host, in client coordinates.
	Origin     drag.Point
	Background string
	Renderer   Renderer
	Bus        *drag.Bus
}

// Board is the canvas surface.
type Board struct {
	items    []*item.Item
	bg       Background
	width    int
	height   int
	origin   drag.Point
	renderer Renderer
	drag     *drag.Controller
	focused  string
}

// New returns an empty board.
func New(cfg Config) *Board {
	b := &Board{
		width:    cfg.Width,
		height:   cfg.Height,
		origin:   cfg.Origin,
		renderer: cfg.Renderer,
		drag:     drag.NewController(cfg.Bus),
	}
	if b.width <= 0 {
		b.width = DefaultWidth
	}
	if b.height <= 0 {
		b.height = DefaultHeight
	}
	if b.renderer == nil {
		b.renderer = NopRenderer{}
	}
	if c := strings.TrimSpace(cfg.Background); c != "" {
		if _, err := ParseColor(c); err == nil {
			b.bg.Color = c
		}
	}
	return b
}

// SetRenderer replaces the renderer. A nil renderer disables rendering.
func (b *Board) SetRenderer(r Renderer) {
	if r == nil {
		r = NopRenderer{}
	}
	b.renderer = r
}

// AddRenderer mirrors changes onto r as well as onto the renderers already
// installed.
func (b *Board) AddRenderer(r Renderer) {
	if r == nil {
		return
	}
	switch cur := b.renderer.(type) {
	case NopRenderer:
		b.SetRenderer(r)
	case Renderers:
		b.renderer = append(cur[:len(cur):len(cur)], r)
	default:
		b.renderer = Renderers{cur, r}
	}
}

// Drag exposes the drag controller, mainly for hosts that feed the pointer bus directly.
func (b *Board) Drag() *drag.Controller { return b.drag }

// CreateItem builds an item, renders it and appends it to the collection.
// The item becomes draggable through PointerDown.
func (b *Board) CreateItem(kind item.Kind, content string, pos item.Position, imageSource string) (*item.Item, error) {
	it, err := item.New(kind, content, pos, imageSource)
	if err != nil {
		return nil, err
	}
	b.items = append(b.items, it)
	b.renderer.Mount(it)
	applog.WithComponent("board").Debug("item created",
		slog.String("id", it.ID()), slog.String("kind", kind.String()),
		slog.String("left", pos.Left.String()), slog.String("top", pos.Top.String()))
	return it, nil
}

// HandleDrop places a palette item. Only "text" and "note" are recognized;
// anything else, including "image" and "", creates nothing.
func (b *Board) HandleDrop(dataTransferType string, pointer drag.Point) (*item.Item, bool) {
	var kind item.Kind
	switch dataTransferType {
	case "text":
		kind = item.Text
	case "note":
		kind = item.Note
	default:
		return nil, false
	}
	local := pointer.Sub(b.origin)
	it, err := b.CreateItem(kind, item.Placeholder(kind), item.At(local.X, local.Y), "")
	if err != nil {
		return nil, false
	}
	return it, true
}

// HandleImageUpload creates an image item at the default position. Empty input
// creates nothing and returns (nil, nil).
func (b *Board) HandleImageUpload(data []byte) (*item.Item, error) {
	if len(data) == 0 {
		return nil, nil
	}
	src, err := imagesrc.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("image upload: %w", err)
	}
	return b.CreateItem(item.Image, "", item.DefaultPosition, src)
}

// SetBackgroundColor sets the surface color. Invalid values leave the background unchanged.
func (b *Board) SetBackgroundColor(c string) error {
	c = strings.TrimSpace(c)
	if _, err := ParseColor(c); err != nil {
		return err
	}
	b.bg.Color = c
	b.renderer.Background(b.bg)
	return nil
}

// SetBackgroundImage sets the surface image from uploaded bytes. Empty input is ignored.
func (b *Board) SetBackgroundImage(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	src, err := imagesrc.FromBytes(data)
	if err != nil {
		return fmt.Errorf("background image: %w", err)
	}
	b.bg.Image = src
	b.renderer.Background(b.bg)
	return nil
}

// Background returns the current surface background.
func (b *Board) Background() Background { return b.bg }

// Clear removes every item. An active drag is released and focus dropped.
func (b *Board) Clear() {
	b.drag.Release()
	b.focused = ""
	b.items = nil
	b.renderer.Reset()
}

// Restore replaces the collection with items built from descs, in order. Every
// descriptor is validated first; on error the board is left untouched.
func (b *Board) Restore(descs []item.Descriptor) error {
	for i, d := range descs {
		if _, err := item.FromDescriptor(d); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	b.Clear()
	for _, d := range descs {
		if _, err := b.CreateItem(d.Kind, d.Content, d.Position, d.ImageSource); err != nil {
			return err
		}
	}
	return nil
}

// Items returns the live items in insertion order.
func (b *Board) Items() []*item.Item { return slices.Clone(b.items) }

func (b *Board) Len() int { return len(b.items) }

// Find returns the live item with id.
func (b *Board) Find(id string) (*item.Item, error) {
	for _, it := range b.items {
		if it.ID() == id {
			return it, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Focus puts an editable item into editing state; dragging it is disabled until Blur.
func (b *Board) Focus(id string) error {
	it, err := b.Find(id)
	if err != nil {
		return err
	}
	if !it.Kind().Editable() {
		return item.ErrNotEditable
	}
	b.focused = id
	return nil
}

// Blur ends editing focus.
func (b *Board) Blur() { b.focused = "" }

// Focused returns the id of the item in editing state, or "".
func (b *Board) Focused() string { return b.focused }

// SetContent edits the text of an item in place.
func (b *Board) SetContent(id, text string) error {
	it, err := b.Find(id)
	if err != nil {
		return err
	}
	if err := it.SetContent(text); err != nil {
		return err
	}
	b.renderer.Update(it)
	return nil
}

// PointerDown presses on item id and reports whether a drag started.
func (b *Board) PointerDown(id string, p drag.Pointer) (bool, error) {
	it, err := b.Find(id)
	if err != nil {
		return false, err
	}
	return b.drag.Press(&target{b: b, it: it}, p), nil
}

// PointerMove delivers a move to the active drag, if any.
func (b *Board) PointerMove(p drag.Pointer) { b.drag.Bus().Dispatch(p) }

// PointerUp ends the active drag and reports whether one was active.
func (b *Board) PointerUp(drag.Pointer) bool { return b.drag.Release() }

// Dragging returns the item being dragged, or nil.
func (b *Board) Dragging() *item.Item {
	if t, ok := b.drag.Target().(*target); ok {
		return t.it
	}
	return nil
}

// Size returns the surface width and height in pixels.
func (b *Board) Size() (int, int) { return b.width, b.height }

// SetSize changes the surface size; non-positive values are ignored.
func (b *Board) SetSize(w, h int) {
	if w > 0 {
		b.width = w
	}
	if h > 0 {
		b.height = h
	}
}

func (b *Board) Origin() drag.Point { return b.origin }

// SetOrigin sets the surface offset used to translate drop coordinates.
func (b *Board) SetOrigin(p drag.Point) { b.origin = p }

// target adapts a live item to drag.Target.
type target struct {
	b  *Board
	it *item.Item
}

func (t *target) TopLeft() drag.Point {
	pos := t.it.Position()
	return drag.Point{X: t.b.origin.X + pos.Left.Pixels(), Y: t.b.origin.Y + pos.Top.Pixels()}
}

func (t *target) Editing() bool { return t.b.focused == t.it.ID() }

func (t *target) MoveTo(p item.Position) {
	t.it.MoveTo(p)
	t.b.renderer.Update(t.it)
}
