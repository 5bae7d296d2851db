/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"errors"
	"sync"
)

// ErrLoopClosed is returned by Do after Close.
var ErrLoopClosed = errors.New("editor loop closed")

// Loop runs submitted functions one at a time on a single goroutine, in
// arrival order. Hosts that receive events concurrently route every State
// call through it.
type Loop struct {
	jobs    chan *job
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

type job struct {
	fn    func()
	done  chan struct{}
	panic any
}

// NewLoop starts the loop goroutine.
func NewLoop() *Loop {
	l := &Loop{
		jobs:    make(chan *job),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		select {
		case j := <-l.jobs:
			j.exec()
		case <-l.quit:
			return
		}
	}
}

func (j *job) exec() {
	defer close(j.done)
	defer func() { j.panic = recover() }()
	j.fn()
}

// Do runs fn on the loop and waits for it to finish. Once accepted, fn always
// runs to completion; ctx only bounds the wait for a turn. A panic in fn is
// re-raised in the caller. fn must not call Do itself.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	j := &job{fn: fn, done: make(chan struct{})}
	select {
	case <-l.quit:
		return ErrLoopClosed
	default:
	}
	select {
	case l.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.quit:
		return ErrLoopClosed
	}
	<-j.done
	if j.panic != nil {
		panic(j.panic)
	}
	return nil
}

// Close stops the loop after the running function, if any, returns.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.quit) })
	<-l.stopped
}
