/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drag

import (
	"testing"

	"canvasboard/internal/item"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	origin  Point
	pos     item.Position
	editing bool
	moves   int
}

func (f *fakeTarget) TopLeft() Point {
	return Point{X: f.origin.X + f.pos.Left.Pixels(), Y: f.origin.Y + f.pos.Top.Pixels()}
}
func (f *fakeTarget) Editing() bool { return f.editing }
func (f *fakeTarget) MoveTo(p item.Position) {
	f.pos = p
	f.moves++
}

func at(x, y float64) Pointer { return Pointer{Client: Point{x, y}, Page: Point{x, y}} }

func TestDragTracksPointerWithoutDrift(t *testing.T) {
	bus := NewBus()
	c := NewController(bus)
	tgt := &fakeTarget{origin: Point{8, 8}, pos: item.At(100, 50)}

	// grab 5px right and 7px below the top-left corner
	require.True(t, c.Press(tgt, at(113, 65)))
	assert.Equal(t, Dragging, c.State())
	assert.Equal(t, Point{5, 7}, c.Offset())

	var last Pointer
	for i := 0; i < 50; i++ {
		last = Pointer{Client: Point{float64(200 + i*3), float64(10 + i)}, Page: Point{float64(200 + i*3), float64(310 + i)}}
		bus.Dispatch(last)
	}
	assert.Equal(t, item.At(last.Page.X-5, last.Page.Y-7), tgt.pos)
	assert.Equal(t, 50, tgt.moves)

	require.True(t, c.Release())
	assert.Equal(t, Idle, c.State())
	assert.Nil(t, c.Target())
}

func TestPressIgnoredWhileEditing(t *testing.T) {
	c := NewController(nil)
	tgt := &fakeTarget{pos: item.At(10, 10), editing: true}
	assert.False(t, c.Press(tgt, at(12, 12)))
	assert.Equal(t, Idle, c.State())
	assert.Zero(t, c.Bus().Listeners())

	c.Move(at(500, 500))
	assert.Equal(t, item.At(10, 10), tgt.pos)
	assert.Zero(t, tgt.moves)
}

func TestSinglePointerModel(t *testing.T) {
	c := NewController(nil)
	a := &fakeTarget{pos: item.At(0, 0)}
	b := &fakeTarget{pos: item.At(100, 100)}
	require.True(t, c.Press(a, at(1, 1)))
	assert.False(t, c.Press(b, at(101, 101)), "second press during an active drag is ignored")
	c.Bus().Dispatch(at(50, 50))
	assert.Equal(t, item.At(49, 49), a.pos)
	assert.Equal(t, item.At(100, 100), b.pos)
	assert.Equal(t, 1, c.Bus().Listeners())
}

func TestMoveWithoutDragIsNoop(t *testing.T) {
	c := NewController(nil)
	assert.NotPanics(t, func() {
		c.Move(at(1, 2))
		c.Bus().Dispatch(at(3, 4))
	})
	assert.False(t, c.Release(), "release while idle reports no drag")
}

func TestListenersDetachedAcrossRepeatedDrags(t *testing.T) {
	bus := NewBus()
	c := NewController(bus)
	tgt := &fakeTarget{pos: item.At(0, 0)}
	for i := 0; i < 20; i++ {
		require.True(t, c.Press(tgt, at(tgt.pos.Left.Pixels(), tgt.pos.Top.Pixels())))
		assert.Equal(t, 1, bus.Listeners())
		bus.Dispatch(at(float64(i), float64(i)))
		c.Release()
		assert.Zero(t, bus.Listeners())
	}
	before := tgt.moves
	bus.Dispatch(at(999, 999))
	assert.Equal(t, before, tgt.moves, "no listener survives release")
}

func TestOnMoveHook(t *testing.T) {
	c := NewController(nil)
	var seen []item.Position
	c.OnMove = func(_ Target, p item.Position) { seen = append(seen, p) }
	tgt := &fakeTarget{pos: item.At(0, 0)}
	require.True(t, c.Press(tgt, at(0, 0)))
	c.Move(at(3, 4))
	c.Move(at(5, 6))
	assert.Equal(t, []item.Position{item.At(3, 4), item.At(5, 6)}, seen)
}

func TestBusUnsubscribeIdempotentAndOrdered(t *testing.T) {
	bus := NewBus()
	var order []string
	offA := bus.Subscribe(func(Pointer) { order = append(order, "a") })
	bus.Subscribe(func(Pointer) { order = append(order, "b") })
	bus.Dispatch(Pointer{})
	offA()
	offA()
	bus.Dispatch(Pointer{})
	assert.Equal(t, []string{"a", "b", "b"}, order)
	assert.Equal(t, 1, bus.Listeners())
}
