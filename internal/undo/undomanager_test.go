/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func push(m *Manager, scope, blob string, ts time.Time) {
	m.PushSnapshot(Snapshot{Scope: scope, Blob: []byte(blob), TS: ts})
}

func TestPushUndoRedoRoundTrip(t *testing.T) {
	m := NewManager(Config{MinInterval: time.Millisecond})
	t0 := time.Now()
	push(m, "mnist", "v1", t0)
	push(m, "mnist", "v2", t0.Add(10*time.Millisecond))
	push(m, "mnist", "v3", t0.Add(20*time.Millisecond))

	for _, want := range []string{"v3", "v2"} {
		s, ok := m.Undo("mnist")
		if !ok || string(s.Blob) != want {
			t.Fatalf("Undo = %q ok=%v, want %q", s.Blob, ok, want)
		}
	}
	for _, want := range []string{"v2", "v3"} {
		s, ok := m.Redo("mnist")
		if !ok || string(s.Blob) != want {
			t.Fatalf("Redo = %q ok=%v, want %q", s.Blob, ok, want)
		}
	}
	if _, ok := m.Redo("mnist"); ok {
		t.Fatal("Redo past the end must fail")
	}
	if !m.CanUndo("mnist") || m.CanRedo("mnist") {
		t.Fatal("expected undo history and an empty redo stack")
	}
	if _, ok := m.Undo("cifar"); ok {
		t.Fatal("a scope without history must not undo")
	}
}

func TestCoalesceMergesBursts(t *testing.T) {
	m := NewManager(Config{MinInterval: 50 * time.Millisecond})
	t0 := time.Now()
	// Four rapid-fire edits fold into one entry holding the last blob.
	push(m, "vgg", "aa", t0)
	for i := 1; i < 4; i++ {
		push(m, "vgg", "bbbb", t0.Add(time.Duration(i)*5*time.Millisecond))
	}
	bytes, _, total := m.Stats()
	if total != 1 {
		t.Fatalf("burst kept %d entries, want 1", total)
	}
	if bytes != len("bbbb") {
		t.Fatalf("accounting holds %d bytes, want %d", bytes, len("bbbb"))
	}
	// A later edit lands as its own entry.
	push(m, "vgg", "cc", t0.Add(time.Second))
	if _, _, total := m.Stats(); total != 2 {
		t.Fatalf("slow edit coalesced, have %d entries", total)
	}
	if s, ok := m.Undo("vgg"); !ok || string(s.Blob) != "cc" {
		t.Fatalf("Undo = %q ok=%v, want %q", s.Blob, ok, "cc")
	}
	if s, ok := m.Undo("vgg"); !ok || string(s.Blob) != "bbbb" {
		t.Fatalf("Undo = %q ok=%v, want the coalesced blob", s.Blob, ok)
	}
}

func TestNewEditDropsRedo(t *testing.T) {
	m := NewManager(Config{MinInterval: time.Millisecond})
	t0 := time.Now()
	push(m, "mnist", "a", t0)
	push(m, "mnist", "b", t0.Add(10*time.Millisecond))
	if _, ok := m.Undo("mnist"); !ok {
		t.Fatal("Undo failed")
	}
	if !m.CanRedo("mnist") {
		t.Fatal("expected a redo entry after undo")
	}
	push(m, "mnist", "c", t0.Add(100*time.Millisecond))
	if m.CanRedo("mnist") {
		t.Fatal("a fresh edit must clear the redo stack")
	}
	if s, _ := m.Undo("mnist"); string(s.Blob) != "c" {
		t.Fatalf("top of stack = %q, want %q", s.Blob, "c")
	}
}

func TestDepthCapKeepsNewest(t *testing.T) {
	m := NewManager(Config{MaxPerScope: 3, MinInterval: time.Millisecond})
	t0 := time.Now()
	for i, blob := range []string{"s0", "s1", "s2", "s3", "s4"} {
		push(m, "resnet", blob, t0.Add(time.Duration(i)*10*time.Millisecond))
	}
	bytes, _, total := m.Stats()
	if total != 3 || bytes != 3*len("s0") {
		t.Fatalf("after cap: total=%d bytes=%d", total, bytes)
	}
	for _, want := range []string{"s4", "s3", "s2"} {
		s, ok := m.Undo("resnet")
		if !ok || string(s.Blob) != want {
			t.Fatalf("Undo = %q ok=%v, want %q", s.Blob, ok, want)
		}
	}
	if _, ok := m.Undo("resnet"); ok {
		t.Fatal("capped-away entries must not come back")
	}
}
