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

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Builtin()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func testNetwork() *domain.Network {
	return &domain.Network{
		Name:       "mnist",
		Target:     domain.TargetTensorFlow,
		InputShape: []int{784},
		Blocks: []domain.Block{
			{ID: "in", Type: "input"},
			{ID: "d1", Type: "dense", Params: map[string]any{"units": 128}},
			{ID: "d2", Type: "dense", Params: map[string]any{"units": 10}},
		},
		Connections: []domain.Connection{
			{From: "in", To: "d1"},
			{From: "d1", To: "d2"},
		},
	}
}

func TestRenderNetworkLaysOutAndDraws(t *testing.T) {
	cat := testCatalog(t)
	img, err := RenderNetwork(testNetwork(), cat, Options{})
	if err != nil {
		t.Fatalf("RenderNetwork: %v", err)
	}
	b := img.Bounds()
	if b.Dx() < 400 || b.Dy() < 80 {
		t.Fatalf("diagram unexpectedly small: %v", b)
	}

	pal := DefaultPalette()
	if got := img.RGBAAt(2, 2); got != pal.Background {
		t.Fatalf("corner should be background, got %v", got)
	}
	// Auto layout puts the first block box at (24,24); probe inside it.
	if got := img.RGBAAt(30, 30); got != pal.BlockFill("core") {
		t.Fatalf("expected core fill inside first block, got %v", got)
	}
	// The connector between the first two blocks runs at the box midline.
	if got := img.RGBAAt(180, 52); got != pal.Connector {
		t.Fatalf("expected connector pixel, got %v", got)
	}
}

func TestRenderNetworkDeterministic(t *testing.T) {
	cat := testCatalog(t)
	a, err := EncodePNG(testNetwork(), cat, Options{ShowShapes: true})
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	b, err := EncodePNG(testNetwork(), cat, Options{ShowShapes: true})
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("same network rendered differently")
	}
}

func TestRenderNetworkUsesStoredPositions(t *testing.T) {
	cat := testCatalog(t)
	n := testNetwork()
	n.Blocks[0].Position = domain.Point{X: 10, Y: 10}
	n.Blocks[1].Position = domain.Point{X: 300, Y: 10}
	n.Blocks[2].Position = domain.Point{X: 600, Y: 10}
	img, err := RenderNetwork(n, cat, Options{})
	if err != nil {
		t.Fatalf("RenderNetwork: %v", err)
	}
	// Content spans 10..732 horizontally plus 24 padding each side.
	if got := img.Bounds().Dx(); got != 770 {
		t.Fatalf("width = %d", got)
	}
}

func TestRenderEmptyNetwork(t *testing.T) {
	img, err := RenderNetwork(&domain.Network{Name: "empty"}, nil, Options{})
	if err != nil {
		t.Fatalf("RenderNetwork: %v", err)
	}
	if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 200 {
		t.Fatalf("placeholder size = %v", img.Bounds())
	}
}

func TestRenderNetworkRejectsCycle(t *testing.T) {
	n := testNetwork()
	n.Connections = append(n.Connections, domain.Connection{From: "d2", To: "in"})
	if _, err := RenderNetwork(n, testCatalog(t), Options{}); err == nil {
		t.Fatalf("expected an error for a cyclic network without positions")
	}
}

func TestCacheReusesRenders(t *testing.T) {
	cat := testCatalog(t)
	c, err := NewCache(8)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	n := testNetwork()
	if _, err := c.Render(n, cat, Options{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, err := c.Render(n, cat, Options{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	hits, misses, entries := c.Stats()
	if hits != 1 || misses != 1 || entries != 1 {
		t.Fatalf("stats = %d hits %d misses %d entries", hits, misses, entries)
	}

	n.Blocks[1].Params["units"] = 64
	if _, err := c.Render(n, cat, Options{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, misses, entries = c.Stats(); misses != 2 || entries != 2 {
		t.Fatalf("edit should miss: %d misses %d entries", misses, entries)
	}

	c.Purge()
	if _, _, entries = c.Stats(); entries != 0 {
		t.Fatalf("purge left %d entries", entries)
	}
}

func TestPaletteFallback(t *testing.T) {
	pal := DefaultPalette()
	if pal.BlockFill("core") == pal.Fallback {
		t.Fatalf("core category should have its own fill")
	}
	if got := pal.BlockFill("no-such-category"); got != pal.Fallback {
		t.Fatalf("unknown category fill = %v", got)
	}
	if pal.Background != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("background = %v", pal.Background)
	}
}
