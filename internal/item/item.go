/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package item defines the canvas item model: the three item kinds, their
// positions expressed as CSS lengths, and the visual rules derived from kind.
// Items never carry appearance state of their own; AppearanceOf is the single
// source of how a kind looks and behaves.
package item

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind identifies an item variant. It is fixed for the item's lifetime.
type Kind int

const (
	Text Kind = iota + 1
	Note
	Image
)

var (
	// ErrUnknownKind is returned for kind tags other than text, note and image.
	ErrUnknownKind = errors.New("unknown item kind")
	// ErrMissingImageSource is returned when an image item has no source.
	ErrMissingImageSource = errors.New("image item requires an image source")
	// ErrNotEditable is returned when content is set on an image item.
	ErrNotEditable = errors.New("item content is not editable")
)

// String returns the wire tag: "text", "note" or "image".
func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Note:
		return "note"
	case Image:
		return "image"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a wire tag to a Kind. Matching ignores case and surrounding space.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return Text, nil
	case "note":
		return Note, nil
	case "image":
		return Image, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Editable reports whether items of this kind carry user-editable text.
func (k Kind) Editable() bool { return k == Text || k == Note }

func (k Kind) valid() bool { return k >= Text && k <= Image }

// Item is one placed unit of content on a canvas surface.
type Item struct {
	id          string
	kind        Kind
	content     string
	imageSource string
	position    Position
}

// Descriptor is a value copy of the persisted attributes of an item.
type Descriptor struct {
	Kind        Kind
	Content     string
	Position    Position
	ImageSource string
}

// New builds an item. Image items require a non-empty source and never hold
// content; text and note items ignore any supplied source.
func New(kind Kind, content string, pos Position, imageSource string) (*Item, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
	it := &Item{id: uuid.NewString(), kind: kind, position: pos}
	if kind == Image {
		if strings.TrimSpace(imageSource) == "" {
			return nil, ErrMissingImageSource
		}
		it.imageSource = imageSource
		return it, nil
	}
	it.content = content
	return it, nil
}

// FromDescriptor is New applied to a descriptor.
func FromDescriptor(d Descriptor) (*Item, error) {
	return New(d.Kind, d.Content, d.Position, d.ImageSource)
}

// ID is a runtime handle for hosts. It is not persisted.
func (it *Item) ID() string          { return it.id }
func (it *Item) Kind() Kind          { return it.kind }
func (it *Item) Content() string     { return it.content }
func (it *Item) ImageSource() string { return it.imageSource }
func (it *Item) Position() Position  { return it.position }

// SetContent replaces the text of an editable item.
func (it *Item) SetContent(s string) error {
	if !it.kind.Editable() {
		return ErrNotEditable
	}
	it.content = s
	return nil
}

// MoveTo sets the item's position.
func (it *Item) MoveTo(p Position) { it.position = p }

// Descriptor returns the item's persisted attributes.
func (it *Item) Descriptor() Descriptor {
	return Descriptor{Kind: it.kind, Content: it.content, Position: it.position, ImageSource: it.imageSource}
}

func (it *Item) String() string {
	return fmt.Sprintf("%s@%s,%s", it.kind, it.position.Left, it.position.Top)
}
