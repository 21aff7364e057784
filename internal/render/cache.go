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
	"fmt"
	"image"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
	"github.com/JulianOrteil/TensorBuilder/internal/graph"
)

// Cache memoizes rendered diagrams keyed by network fingerprint and
// render options. The UI preview redraws on every edit; the fingerprint
// key means only actual changes pay for a render. Custom palettes
// bypass the cache.
type Cache struct {
	mu     sync.Mutex
	lru    *lru.Cache[string, *image.RGBA]
	hits   int64
	misses int64
}

// NewCache returns a cache holding up to size rendered diagrams.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = 64
	}
	l, err := lru.New[string, *image.RGBA](size)
	if err != nil {
		return nil, fmt.Errorf("render cache: %w", err)
	}
	return &Cache{lru: l}, nil
}

// Render returns the cached diagram for n, rendering on a miss. The
// returned image is shared; callers must not draw over it.
func (c *Cache) Render(n *domain.Network, cat *catalog.Catalog, opts Options) (*image.RGBA, error) {
	if opts.Palette != nil {
		return RenderNetwork(n, cat, opts)
	}
	key := fmt.Sprintf("%s|s=%g;p=%g;sh=%t;fl=%t",
		graph.Fingerprint(n), opts.Scale, opts.Padding, opts.ShowShapes, opts.ForceLayout)

	c.mu.Lock()
	defer c.mu.Unlock()
	if img, ok := c.lru.Get(key); ok {
		c.hits++
		return img, nil
	}
	img, err := RenderNetwork(n, cat, opts)
	if err != nil {
		return nil, err
	}
	c.misses++
	c.lru.Add(key, img)
	return img, nil
}

// Stats reports hit/miss counters and the current entry count.
func (c *Cache) Stats() (hits, misses int64, entries int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.lru.Len()
}

// Purge drops every cached diagram.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
