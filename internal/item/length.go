/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package item

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidLength is returned by ParseLength for values that are not a number with an optional CSS unit.
var ErrInvalidLength = errors.New("invalid length")

// units accepted by ParseLength; an absent unit means px.
var units = []string{"px", "%", "em", "rem", "pt", "vw", "vh", "cm", "mm", "in"}

// Length is a CSS length such as "10px".
type Length struct {
	Value float64
	Unit  string
}

// Px returns a pixel length.
func Px(v float64) Length { return Length{Value: v, Unit: "px"} }

// ParseLength parses "10px", "-4.5em" or a bare number (px).
func ParseLength(s string) (Length, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	if t == "" {
		return Length{}, fmt.Errorf("%w: empty", ErrInvalidLength)
	}
	unit := "px"
	num := t
	for _, u := range units {
		if strings.HasSuffix(t, u) {
			// "2rem" fails the em parse and falls through to rem.
			cand := strings.TrimSpace(strings.TrimSuffix(t, u))
			if _, err := strconv.ParseFloat(cand, 64); err == nil {
				unit, num = u, cand
				break
			}
		}
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Length{}, fmt.Errorf("%w: %q", ErrInvalidLength, s)
	}
	return Length{Value: v, Unit: unit}, nil
}

// MustLength is ParseLength that panics; for literals in tests and defaults.
func MustLength(s string) Length {
	l, err := ParseLength(s)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Length) String() string {
	unit := l.Unit
	if unit == "" {
		unit = "px"
	}
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + unit
}

// Pixels returns the value in pixels. Non-pixel units are taken at face value.
func (l Length) Pixels() float64 { return l.Value }

// Position is an offset from the surface's own origin.
type Position struct {
	Left Length
	Top  Length
}

// At returns a pixel position.
func At(x, y float64) Position { return Position{Left: Px(x), Top: Px(y)} }

// DefaultPosition is where items land when no position is given.
var DefaultPosition = At(50, 50)

// ParsePosition parses a left/top pair.
func ParsePosition(left, top string) (Position, error) {
	l, err := ParseLength(left)
	if err != nil {
		return Position{}, fmt.Errorf("left: %w", err)
	}
	t, err := ParseLength(top)
	if err != nil {
		return Position{}, fmt.Errorf("top: %w", err)
	}
	return Position{Left: l, Top: t}, nil
}
