/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package render

// Text measuring and drawing for diagram labels. Face7x13 keeps output
// deterministic across platforms, which the render cache and the golden
// expectations in tests rely on.

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var face = basicfont.Face7x13

// MeasureString returns the pixel width of s in the diagram font.
func MeasureString(s string) int {
	d := &font.Drawer{Face: face}
	return int(d.MeasureString(s) >> 6)
}

// LineHeight is the vertical advance between label lines.
func LineHeight() int {
	m := face.Metrics()
	return m.Height.Round()
}

// Ascent is the baseline offset from the top of a line.
func Ascent() int {
	return face.Metrics().Ascent.Round()
}

// TruncateToWidth shortens s with a trailing ellipsis so it fits in
// maxWidth pixels. Strings that already fit come back unchanged.
func TruncateToWidth(s string, maxWidth int) string {
	if MeasureString(s) <= maxWidth {
		return s
	}
	const ell = "..."
	for len(s) > 0 {
		s = s[:len(s)-1]
		if MeasureString(s+ell) <= maxWidth {
			return s + ell
		}
	}
	return ell
}

// WrapToWidth breaks s on spaces into lines no wider than maxWidth.
// A single word wider than maxWidth gets a line of its own.
func WrapToWidth(s string, maxWidth int) []string {
	var lines []string
	var cur string
	flush := func() {
		if cur != "" {
			lines = append(lines, cur)
			cur = ""
		}
	}
	for _, para := range strings.Split(s, "\n") {
		for _, word := range strings.Fields(para) {
			candidate := word
			if cur != "" {
				candidate = cur + " " + word
			}
			if MeasureString(candidate) <= maxWidth || cur == "" {
				cur = candidate
				continue
			}
			flush()
			cur = word
		}
		flush()
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}

// drawString draws s with its baseline at (x, y).
func drawString(dst *image.RGBA, x, y int, col color.Color, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawStringCentered draws s horizontally centered on cx with its
// baseline at y.
func drawStringCentered(dst *image.RGBA, cx, y int, col color.Color, s string) {
	drawString(dst, cx-MeasureString(s)/2, y, col, s)
}
