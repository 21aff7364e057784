//go:build fyne && cgo

/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"

	"fyne.io/fyne/v2/canvas"
)

// Style constants carried over from the original desktop stylesheet. The
// window shell is a horizontal orange gradient; the navigation buttons are
// transparent until hovered or pressed; the content panel floats on top as
// a white card with a rounded top-left corner.
var (
	shellGradientStart = color.NRGBA{R: 255, G: 172, B: 0, A: 255}
	shellGradientEnd   = color.NRGBA{R: 255, G: 37, B: 0, A: 255}

	navHoverFill   = color.NRGBA{R: 255, G: 255, B: 255, A: 50}
	navPressedFill = color.NRGBA{R: 255, G: 255, B: 255, A: 127}
	navTextColor   = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	contentFill    = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	copyrightGray  = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	searchRuleGray = color.NRGBA{R: 190, G: 190, B: 190, A: 255}
)

const (
	navHoverRadius      float32 = 10
	contentCornerRadius float32 = 15

	// Nav button text inset: 5px vertical, 25px leading (text-align left).
	navPadLeft float32 = 25
	navPadV    float32 = 5
)

// shellGradient paints the window background left to right.
func shellGradient() *canvas.LinearGradient {
	return canvas.NewHorizontalGradient(shellGradientStart, shellGradientEnd)
}

// contentCard is the white main container. Fyne rounds every corner of a
// rectangle; the original rounded only the top-left one.
func contentCard() *canvas.Rectangle {
	card := canvas.NewRectangle(contentFill)
	card.CornerRadius = contentCornerRadius
	return card
}

// searchUnderline is the single bottom border of the header search field.
func searchUnderline() *canvas.Rectangle {
	return canvas.NewRectangle(searchRuleGray)
}
