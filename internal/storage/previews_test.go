/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	"fmt"
	"testing"
)

func TestPreviewStoreLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	if _, err := Init(root, testProject("Previews")); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	ctx := context.Background()

	thumbKey := PreviewKey{Network: "mnist", Kind: PreviewKindThumb, W: 128, H: 96}
	geomKey := PreviewKey{Network: "mnist", Kind: PreviewKindGeom}
	thumb := []byte("fake-png-bytes")
	geom := []byte(`{"blocks":[]}`)
	if err := StorePreview(ctx, root, thumbKey, thumb); err != nil {
		t.Fatalf("StorePreview thumb error: %v", err)
	}
	if err := StorePreview(ctx, root, geomKey, geom); err != nil {
		t.Fatalf("StorePreview geom error: %v", err)
	}

	got, err := LoadPreview(ctx, root, thumbKey)
	if err != nil {
		t.Fatalf("LoadPreview error: %v", err)
	}
	if !bytes.Equal(got, thumb) {
		t.Fatalf("thumb blob = %q", got)
	}
	got, err = LoadPreview(ctx, root, geomKey)
	if err != nil {
		t.Fatalf("LoadPreview geom error: %v", err)
	}
	if !bytes.Equal(got, geom) {
		t.Fatalf("geom blob = %q", got)
	}

	// Another size is a distinct variant
	got, err = LoadPreview(ctx, root, PreviewKey{Network: "mnist", Kind: PreviewKindThumb, W: 256, H: 192})
	if err != nil {
		t.Fatalf("LoadPreview error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected cache miss, got %d bytes", len(got))
	}

	// Storing the same key again replaces the blob in place
	thumb2 := []byte("fake-png-v2")
	if err := StorePreview(ctx, root, thumbKey, thumb2); err != nil {
		t.Fatalf("StorePreview error: %v", err)
	}
	got, err = LoadPreview(ctx, root, thumbKey)
	if err != nil {
		t.Fatalf("LoadPreview error: %v", err)
	}
	if !bytes.Equal(got, thumb2) {
		t.Fatalf("upsert did not replace blob, got %q", got)
	}

	n, total, err := PreviewUsage(ctx, root)
	if err != nil {
		t.Fatalf("PreviewUsage error: %v", err)
	}
	if n != 2 {
		t.Fatalf("variant count = %d, want 2", n)
	}
	if want := int64(len(thumb2) + len(geom)); total != want {
		t.Fatalf("total = %d, want %d", total, want)
	}

	bad := PreviewKey{Network: "mnist", Kind: "poster", W: 10, H: 10}
	if err := StorePreview(ctx, root, bad, thumb); err == nil {
		t.Fatalf("expected error for invalid kind")
	}
	if _, err := LoadPreview(ctx, root, PreviewKey{Kind: PreviewKindThumb}); err == nil {
		t.Fatalf("expected error for empty network")
	}
}

func TestCachedPreviewGeneratesOnce(t *testing.T) {
	root := t.TempDir()
	if _, err := Init(root, testProject("GenOnce")); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	ctx := context.Background()
	key := PreviewKey{Network: "mnist", Kind: PreviewKindThumb, W: 64, H: 48}
	calls := 0
	gen := func(context.Context) ([]byte, error) {
		calls++
		return []byte("rendered"), nil
	}
	for i := 0; i < 2; i++ {
		got, err := CachedPreview(ctx, root, key, gen)
		if err != nil {
			t.Fatalf("CachedPreview error: %v", err)
		}
		if string(got) != "rendered" {
			t.Fatalf("blob = %q", got)
		}
	}
	if calls != 1 {
		t.Fatalf("generator ran %d times, want 1", calls)
	}

	// A nil generator reports a miss without inventing an entry.
	got, err := CachedPreview(ctx, root, PreviewKey{Network: "mnist", Kind: PreviewKindThumb, W: 16, H: 16}, nil)
	if err != nil {
		t.Fatalf("CachedPreview error: %v", err)
	}
	if got != nil {
		t.Fatalf("nil generator produced %d bytes", len(got))
	}
}

func TestDropNetworkPreviews(t *testing.T) {
	root := t.TempDir()
	if _, err := Init(root, testProject("Drop")); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	ctx := context.Background()
	for _, k := range []PreviewKey{
		{Network: "mnist", Kind: PreviewKindThumb, W: 32, H: 32},
		{Network: "mnist", Kind: PreviewKindGeom, W: 32, H: 32},
		{Network: "cifar", Kind: PreviewKindThumb, W: 32, H: 32},
	} {
		if err := StorePreview(ctx, root, k, []byte("x")); err != nil {
			t.Fatalf("StorePreview error: %v", err)
		}
	}
	if err := DropNetworkPreviews(ctx, root, "mnist"); err != nil {
		t.Fatalf("DropNetworkPreviews error: %v", err)
	}
	if got, _ := LoadPreview(ctx, root, PreviewKey{Network: "mnist", Kind: PreviewKindThumb, W: 32, H: 32}); got != nil {
		t.Fatalf("mnist thumb survived drop")
	}
	if got, _ := LoadPreview(ctx, root, PreviewKey{Network: "mnist", Kind: PreviewKindGeom, W: 32, H: 32}); got != nil {
		t.Fatalf("mnist geom survived drop")
	}
	if got, _ := LoadPreview(ctx, root, PreviewKey{Network: "cifar", Kind: PreviewKindThumb, W: 32, H: 32}); got == nil {
		t.Fatalf("cifar thumb was dropped")
	}
	n, _, err := PreviewUsage(ctx, root)
	if err != nil {
		t.Fatalf("PreviewUsage error: %v", err)
	}
	if n != 1 {
		t.Fatalf("variant count after drop = %d, want 1", n)
	}
}

func TestPreviewEvictionDropsLeastRecentlyUsed(t *testing.T) {
	root := t.TempDir()
	if _, err := Init(root, testProject("Evict")); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	ctx := context.Background()
	blob := bytes.Repeat([]byte{0xAB}, 100)
	t.Setenv("TB_PREVIEWS_MAX_BYTES", fmt.Sprint(2*len(blob)))

	key := func(i int) PreviewKey {
		return PreviewKey{Network: "mnist", Kind: PreviewKindThumb, W: 32 * (i + 1), H: 32}
	}
	if err := StorePreview(ctx, root, key(0), blob); err != nil {
		t.Fatalf("StorePreview error: %v", err)
	}
	if err := StorePreview(ctx, root, key(1), blob); err != nil {
		t.Fatalf("StorePreview error: %v", err)
	}
	// Reading the first variant refreshes it, leaving the second as the
	// oldest when the third store pushes past the cap.
	if _, err := LoadPreview(ctx, root, key(0)); err != nil {
		t.Fatalf("LoadPreview error: %v", err)
	}
	if err := StorePreview(ctx, root, key(2), blob); err != nil {
		t.Fatalf("StorePreview error: %v", err)
	}

	_, total, err := PreviewUsage(ctx, root)
	if err != nil {
		t.Fatalf("PreviewUsage error: %v", err)
	}
	if total > int64(2*len(blob)) {
		t.Fatalf("total %d exceeds cap %d", total, 2*len(blob))
	}
	for i, want := range []bool{true, false, true} {
		got, err := LoadPreview(ctx, root, key(i))
		if err != nil {
			t.Fatalf("LoadPreview error: %v", err)
		}
		if (got != nil) != want {
			t.Fatalf("variant %d present = %v, want %v", i, got != nil, want)
		}
	}
}
