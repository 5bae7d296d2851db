/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package board

import (
	"fmt"
	"image/color"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var funcColorRe = regexp.MustCompile(`^(rgba?|hsla?)\(\s*([^)]*)\)$`)

// ParseColor parses a CSS color: #rgb, #rgba, #rrggbb, #rrggbbaa, rgb()/rgba(),
// hsl()/hsla() or a named color (including "transparent"). The channels are
// straight alpha, not premultiplied.
func ParseColor(s string) (color.RGBA, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	if t == "" {
		return color.RGBA{}, fmt.Errorf("%w: empty", ErrInvalidColor)
	}
	if strings.HasPrefix(t, "#") {
		return parseHex(t[1:], s)
	}
	if m := funcColorRe.FindStringSubmatch(t); m != nil {
		return parseFunc(m[1], m[2], s)
	}
	if c, ok := namedColors[t]; ok {
		return c, nil
	}
	return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
}

func parseHex(h, orig string) (color.RGBA, error) {
	switch len(h) {
	case 3, 4:
		long := make([]byte, 0, 8)
		for i := 0; i < len(h); i++ {
			long = append(long, h[i], h[i])
		}
		if len(h) == 3 {
			long = append(long, 'f', 'f')
		}
		h = string(long)
	case 6:
		h += "ff"
	case 8:
	default:
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, orig)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, orig)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func parseFunc(name, args, orig string) (color.RGBA, error) {
	bad := fmt.Errorf("%w: %q", ErrInvalidColor, orig)
	args = strings.ReplaceAll(args, "/", " ")
	parts := strings.FieldsFunc(args, func(r rune) bool { return r == ',' || r == ' ' })
	if len(parts) != 3 && len(parts) != 4 {
		return color.RGBA{}, bad
	}
	alpha := 1.0
	if len(parts) == 4 {
		a, ok := component(parts[3], 1)
		if !ok {
			return color.RGBA{}, bad
		}
		alpha = a
	}
	if strings.HasPrefix(name, "rgb") {
		var ch [3]float64
		for i := range ch {
			v, ok := component(parts[i], 255)
			if !ok {
				return color.RGBA{}, bad
			}
			ch[i] = v
		}
		return color.RGBA{R: clamp8(ch[0]), G: clamp8(ch[1]), B: clamp8(ch[2]), A: clamp8(alpha * 255)}, nil
	}
	h, err := strconv.ParseFloat(strings.TrimSuffix(parts[0], "deg"), 64)
	if err != nil {
		return color.RGBA{}, bad
	}
	sat, ok1 := component(parts[1], 1)
	light, ok2 := component(parts[2], 1)
	if !ok1 || !ok2 || !strings.HasSuffix(parts[1], "%") || !strings.HasSuffix(parts[2], "%") {
		return color.RGBA{}, bad
	}
	r, g, b := hslToRGB(h, sat, light)
	return color.RGBA{R: clamp8(r * 255), G: clamp8(g * 255), B: clamp8(b * 255), A: clamp8(alpha * 255)}, nil
}

// component parses a number or percentage; percentages scale to full.
func component(s string, full float64) (float64, bool) {
	if p, ok := strings.CutSuffix(s, "%"); ok {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, false
		}
		return v / 100 * full, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func clamp8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}

func hslToRGB(h, s, l float64) (float64, float64, float64) {
	h = math.Mod(math.Mod(h, 360)+360, 360) / 360
	s = math.Max(0, math.Min(1, s))
	l = math.Max(0, math.Min(1, l))
	if s == 0 {
		return l, l, l
	}
	q := l * (1 + s)
	if l >= 0.5 {
		q = l + s - l*s
	}
	p := 2*l - q
	return hue(p, q, h+1.0/3), hue(p, q, h), hue(p, q, h-1.0/3)
}

func hue(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}

func rgb(r, g, b uint8) color.RGBA { return color.RGBA{R: r, G: g, B: b, A: 255} }

var namedColors = map[string]color.RGBA{
	"transparent": {},
	"aliceblue":   rgb(240, 248, 255), "antiquewhite": rgb(250, 235, 215), "aqua": rgb(0, 255, 255),
	"aquamarine": rgb(127, 255, 212), "azure": rgb(240, 255, 255), "beige": rgb(245, 245, 220),
	"bisque": rgb(255, 228, 196), "black": rgb(0, 0, 0), "blanchedalmond": rgb(255, 235, 205),
	"blue": rgb(0, 0, 255), "blueviolet": rgb(138, 43, 226), "brown": rgb(165, 42, 42),
	"burlywood": rgb(222, 184, 135), "cadetblue": rgb(95, 158, 160), "chartreuse": rgb(127, 255, 0),
	"chocolate": rgb(210, 105, 30), "coral": rgb(255, 127, 80), "cornflowerblue": rgb(100, 149, 237),
	"cornsilk": rgb(255, 248, 220), "crimson": rgb(220, 20, 60), "cyan": rgb(0, 255, 255),
	"darkblue": rgb(0, 0, 139), "darkcyan": rgb(0, 139, 139), "darkgoldenrod": rgb(184, 134, 11),
	"darkgray": rgb(169, 169, 169), "darkgreen": rgb(0, 100, 0), "darkgrey": rgb(169, 169, 169),
	"darkkhaki": rgb(189, 183, 107), "darkmagenta": rgb(139, 0, 139), "darkolivegreen": rgb(85, 107, 47),
	"darkorange": rgb(255, 140, 0), "darkorchid": rgb(153, 50, 204), "darkred": rgb(139, 0, 0),
	"darksalmon": rgb(233, 150, 122), "darkseagreen": rgb(143, 188, 143), "darkslateblue": rgb(72, 61, 139),
	"darkslategray": rgb(47, 79, 79), "darkslategrey": rgb(47, 79, 79), "darkturquoise": rgb(0, 206, 209),
	"darkviolet": rgb(148, 0, 211), "deeppink": rgb(255, 20, 147), "deepskyblue": rgb(0, 191, 255),
	"dimgray": rgb(105, 105, 105), "dimgrey": rgb(105, 105, 105), "dodgerblue": rgb(30, 144, 255),
	"firebrick": rgb(178, 34, 34), "floralwhite": rgb(255, 250, 240), "forestgreen": rgb(34, 139, 34),
	"fuchsia": rgb(255, 0, 255), "gainsboro": rgb(220, 220, 220), "ghostwhite": rgb(248, 248, 255),
	"gold": rgb(255, 215, 0), "goldenrod": rgb(218, 165, 32), "gray": rgb(128, 128, 128),
	"grey": rgb(128, 128, 128), "green": rgb(0, 128, 0), "greenyellow": rgb(173, 255, 47),
	"honeydew": rgb(240, 255, 240), "hotpink": rgb(255, 105, 180), "indianred": rgb(205, 92, 92),
	"indigo": rgb(75, 0, 130), "ivory": rgb(255, 255, 240), "khaki": rgb(240, 230, 140),
	"lavender": rgb(230, 230, 250), "lavenderblush": rgb(255, 240, 245), "lawngreen": rgb(124, 252, 0),
	"lemonchiffon": rgb(255, 250, 205), "lightblue": rgb(173, 216, 230), "lightcoral": rgb(240, 128, 128),
	"lightcyan": rgb(224, 255, 255), "lightgoldenrodyellow": rgb(250, 250, 210), "lightgray": rgb(211, 211, 211),
	"lightgreen": rgb(144, 238, 144), "lightgrey": rgb(211, 211, 211), "lightpink": rgb(255, 182, 193),
	"lightsalmon": rgb(255, 160, 122), "lightseagreen": rgb(32, 178, 170), "lightskyblue": rgb(135, 206, 250),
	"lightslategray": rgb(119, 136, 153), "lightslategrey": rgb(119, 136, 153), "lightsteelblue": rgb(176, 196, 222),
	"lightyellow": rgb(255, 255, 224), "lime": rgb(0, 255, 0), "limegreen": rgb(50, 205, 50),
	"linen": rgb(250, 240, 230), "magenta": rgb(255, 0, 255), "maroon": rgb(128, 0, 0),
	"mediumaquamarine": rgb(102, 205, 170), "mediumblue": rgb(0, 0, 205), "mediumorchid": rgb(186, 85, 211),
	"mediumpurple": rgb(147, 112, 219), "mediumseagreen": rgb(60, 179, 113), "mediumslateblue": rgb(123, 104, 238),
	"mediumspringgreen": rgb(0, 250, 154), "mediumturquoise": rgb(72, 209, 204), "mediumvioletred": rgb(199, 21, 133),
	"midnightblue": rgb(25, 25, 112), "mintcream": rgb(245, 255, 250), "mistyrose": rgb(255, 228, 225),
	"moccasin": rgb(255, 228, 181), "navajowhite": rgb(255, 222, 173), "navy": rgb(0, 0, 128),
	"oldlace": rgb(253, 245, 230), "olive": rgb(128, 128, 0), "olivedrab": rgb(107, 142, 35),
	"orange": rgb(255, 165, 0), "orangered": rgb(255, 69, 0), "orchid": rgb(218, 112, 214),
	"palegoldenrod": rgb(238, 232, 170), "palegreen": rgb(152, 251, 152), "paleturquoise": rgb(175, 238, 238),
	"palevioletred": rgb(219, 112, 147), "papayawhip": rgb(255, 239, 213), "peachpuff": rgb(255, 218, 185),
	"peru": rgb(205, 133, 63), "pink": rgb(255, 192, 203), "plum": rgb(221, 160, 221),
	"powderblue": rgb(176, 224, 230), "purple": rgb(128, 0, 128), "rebeccapurple": rgb(102, 51, 153),
	"red": rgb(255, 0, 0), "rosybrown": rgb(188, 143, 143), "royalblue": rgb(65, 105, 225),
	"saddlebrown": rgb(139, 69, 19), "salmon": rgb(250, 128, 114), "sandybrown": rgb(244, 164, 96),
	"seagreen": rgb(46, 139, 87), "seashell": rgb(255, 245, 238), "sienna": rgb(160, 82, 45),
	"silver": rgb(192, 192, 192), "skyblue": rgb(135, 206, 235), "slateblue": rgb(106, 90, 205),
	"slategray": rgb(112, 128, 144), "slategrey": rgb(112, 128, 144), "snow": rgb(255, 250, 250),
	"springgreen": rgb(0, 255, 127), "steelblue": rgb(70, 130, 180), "tan": rgb(210, 180, 140),
	"teal": rgb(0, 128, 128), "thistle": rgb(216, 191, 216), "tomato": rgb(255, 99, 71),
	"turquoise": rgb(64, 224, 208), "violet": rgb(238, 130, 238), "wheat": rgb(245, 222, 179),
	"white": rgb(255, 255, 255), "whitesmoke": rgb(245, 245, 245), "yellow": rgb(255, 255, 0),
	"yellowgreen": rgb(154, 205, 50),
}
