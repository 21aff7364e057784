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

func TestByteCapEvictsOldestScope(t *testing.T) {
	m := NewManager(Config{MaxBytes: 10, MinInterval: time.Millisecond})
	t0 := time.Now()
	push(m, "encoder", "123456", t0)
	// The second scope's entry pushes the total past the cap; the encoder
	// snapshot is older and goes first.
	push(m, "decoder", "abcdef", t0.Add(time.Second))

	if m.CanUndo("encoder") {
		t.Fatal("oldest scope should have been evicted")
	}
	if !m.CanUndo("decoder") {
		t.Fatal("newest scope must survive the byte cap")
	}
	bytes, scopes, total := m.Stats()
	if bytes != len("abcdef") || scopes != 1 || total != 1 {
		t.Fatalf("after eviction: bytes=%d scopes=%d total=%d", bytes, scopes, total)
	}
}

func TestClearScopeReleasesItsBytes(t *testing.T) {
	m := NewManager(Config{MinInterval: time.Millisecond})
	t0 := time.Now()
	push(m, "lenet", "aaaa", t0)
	push(m, "alexnet", "bb", t0)

	m.ClearScope("lenet")
	bytes, scopes, total := m.Stats()
	if bytes != len("bb") || scopes != 1 || total != 1 {
		t.Fatalf("after clear: bytes=%d scopes=%d total=%d", bytes, scopes, total)
	}
	if m.CanUndo("lenet") {
		t.Fatal("cleared scope still has history")
	}
	if !m.CanUndo("alexnet") {
		t.Fatal("clearing one scope must not touch another")
	}
	// Unknown scopes clear as a no-op.
	m.ClearScope("vgg")
	if b, _, _ := m.Stats(); b != len("bb") {
		t.Fatalf("no-op clear changed accounting to %d bytes", b)
	}
}

func TestUndoneBytesAreNotCharged(t *testing.T) {
	m := NewManager(Config{MinInterval: time.Millisecond})
	push(m, "mnist", "wxyz", time.Now())
	if b, _, _ := m.Stats(); b != 4 {
		t.Fatalf("bytes = %d, want 4", b)
	}
	if _, ok := m.Undo("mnist"); !ok {
		t.Fatal("Undo failed")
	}
	// The snapshot now sits on the redo stack, outside the cap.
	if b, _, _ := m.Stats(); b != 0 {
		t.Fatalf("bytes = %d after undo, want 0", b)
	}
	if _, ok := m.Redo("mnist"); !ok {
		t.Fatal("Redo failed")
	}
	if b, _, _ := m.Stats(); b != 4 {
		t.Fatalf("bytes = %d after redo, want 4", b)
	}
}
