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

import "image/color"

// Palette holds the diagram colors. The default matches the application
// shell: white surface, dark ink, the orange accent for input blocks.
type Palette struct {
	Background color.RGBA
	Border     color.RGBA
	Label      color.RGBA
	Shape      color.RGBA
	Connector  color.RGBA
	Category   map[string]color.RGBA
	Fallback   color.RGBA
}

// DefaultPalette returns the stock palette. The map is freshly built on
// each call so callers may adjust their copy.
func DefaultPalette() Palette {
	return Palette{
		Background: color.RGBA{255, 255, 255, 255},
		Border:     color.RGBA{68, 68, 68, 255},
		Label:      color.RGBA{33, 33, 33, 255},
		Shape:      color.RGBA{120, 120, 120, 255},
		Connector:  color.RGBA{96, 96, 96, 255},
		Category: map[string]color.RGBA{
			"core":           {222, 235, 247, 255},
			"convolution":    {255, 224, 178, 255},
			"pooling":        {207, 236, 236, 255},
			"regularization": {237, 224, 247, 255},
			"recurrent":      {221, 240, 216, 255},
			"merge":          {255, 243, 196, 255},
		},
		Fallback: color.RGBA{238, 238, 238, 255},
	}
}

// BlockFill returns the fill for a category, or the fallback gray.
func (p Palette) BlockFill(category string) color.RGBA {
	if c, ok := p.Category[category]; ok {
		return c
	}
	return p.Fallback
}
