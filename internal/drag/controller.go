/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package drag converts press-move-release pointer gestures into item position
// updates. A Controller is a two-state machine (Idle, Dragging) that attaches a
// move listener to a Bus on press and detaches it on release. It never errors:
// events that do not fit the current state are ignored.
//
// Controller and Bus are not safe for concurrent use.
package drag

import (
	"canvasboard/internal/item"
)

// Point is a coordinate pair in pixels.
type Point struct {
	X, Y float64
}

func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Pointer is one pointer event. Client is viewport-relative, Page is
// document-relative; they differ only when the host is scrolled.
type Pointer struct {
	Client Point
	Page   Point
}

// Target is something a drag can move.
type Target interface {
	// TopLeft is the current on-screen top-left corner in client coordinates.
	TopLeft() Point
	// Editing reports whether the target currently holds editable focus.
	Editing() bool
	MoveTo(item.Position)
}

// State of a Controller.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Controller drives a single drag at a time.
type Controller struct {
	bus    *Bus
	state  State
	target Target
	offset Point
	detach func()
	// OnMove, if set, is called after every applied move.
	OnMove func(Target, item.Position)
}

// NewController returns an idle controller listening on bus. A nil bus gets a private one.
func NewController(bus *Bus) *Controller {
	if bus == nil {
		bus = NewBus()
	}
	return &Controller{bus: bus}
}

// Bus returns the pointer source the controller listens on while dragging.
func (c *Controller) Bus() *Bus { return c.bus }

func (c *Controller) State() State { return c.state }

// Target returns the item being dragged, or nil when idle.
func (c *Controller) Target() Target { return c.target }

// Offset returns the grab offset captured on press.
func (c *Controller) Offset() Point { return c.offset }

// Press starts a drag of target. It is ignored when target is being edited or
// another drag is active, and reports whether a drag started.
func (c *Controller) Press(target Target, p Pointer) bool {
	if target == nil || c.state == Dragging || target.Editing() {
		return false
	}
	c.target = target
	c.offset = p.Client.Sub(target.TopLeft())
	c.state = Dragging
	c.detach = c.bus.Subscribe(c.move)
	return true
}

// Move applies p directly, as if it had been dispatched on the bus.
func (c *Controller) Move(p Pointer) { c.move(p) }

func (c *Controller) move(p Pointer) {
	if c.state != Dragging {
		return
	}
	at := p.Page.Sub(c.offset)
	pos := item.At(at.X, at.Y)
	c.target.MoveTo(pos)
	if c.OnMove != nil {
		c.OnMove(c.target, pos)
	}
}

// Release ends the active drag and detaches its move listener. It reports
// whether a drag was active.
func (c *Controller) Release() bool {
	if c.state != Dragging {
		return false
	}
	if c.detach != nil {
		c.detach()
		c.detach = nil
	}
	c.state = Idle
	c.target = nil
	c.offset = Point{}
	return true
}
