/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drag

// Bus fans pointer-move events out to subscribers in subscription order.
type Bus struct {
	next      int
	listeners []listener
}

type listener struct {
	id int
	fn func(Pointer)
}

func NewBus() *Bus { return &Bus{} }

// Subscribe registers fn and returns its unsubscribe function. Calling the
// returned function more than once is harmless.
func (b *Bus) Subscribe(fn func(Pointer)) func() {
	b.next++
	id := b.next
	b.listeners = append(b.listeners, listener{id: id, fn: fn})
	return func() { b.remove(id) }
}

func (b *Bus) remove(id int) {
	for i, l := range b.listeners {
		if l.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}

// Dispatch delivers p to every listener registered at call time.
func (b *Bus) Dispatch(p Pointer) {
	snapshot := append([]listener(nil), b.listeners...)
	for _, l := range snapshot {
		l.fn(p)
	}
}

// Listeners returns the number of attached listeners.
func (b *Bus) Listeners() int { return len(b.listeners) }
