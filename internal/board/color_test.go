/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package board

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColorAccepts(t *testing.T) {
	cases := map[string]color.RGBA{
		"#ffcc00":                 {R: 255, G: 204, B: 0, A: 255},
		"#FC0":                    {R: 255, G: 204, B: 0, A: 255},
		"#ffcc0080":               {R: 255, G: 204, B: 0, A: 128},
		"#0f08":                   {R: 0, G: 255, B: 0, A: 136},
		"rgb(1, 2, 3)":            {R: 1, G: 2, B: 3, A: 255},
		"rgba(255,0,0,0.5)":       {R: 255, A: 128},
		"rgb(100% 0% 0% / 50%)":   {R: 255, A: 128},
		"hsl(0, 100%, 50%)":       {R: 255, A: 255},
		"hsl(120deg 100% 25%)":    {G: 128, A: 255},
		"hsla(240, 100%, 50%, 1)": {B: 255, A: 255},
		"LightYellow":             {R: 255, G: 255, B: 224, A: 255},
		"white":                   {R: 255, G: 255, B: 255, A: 255},
		"transparent":             {},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseColorRejects(t *testing.T) {
	for _, bad := range []string{"", "#ff", "#gggggg", "rgb(1,2)", "hsl(10, 20, 30)", "notacolor", "url(x.png)", "rgb(a,b,c)"} {
		_, err := ParseColor(bad)
		assert.ErrorIs(t, err, ErrInvalidColor, bad)
	}
}
