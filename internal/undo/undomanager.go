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
	"sync"
	"time"
)

// Snapshot is a reversible state blob for one scope. A scope is the
// editing unit with its own history; the builder uses the network name.
// The manager never looks inside Blob and charges len(Blob) against the
// byte cap. TS orders snapshots for coalescing and pruning.
type Snapshot struct {
	Scope string
	Blob  []byte
	TS    time.Time
}

// Config bounds the history.
type Config struct {
	// MaxBytes caps the bytes held across all undo stacks. Zero means 16 MiB.
	MaxBytes int
	// MaxPerScope caps the snapshots kept per scope. Zero means unlimited.
	MaxPerScope int
	// MinInterval merges snapshots arriving closer together than this on
	// the same scope into one entry, so a drag does not leave a per-pixel
	// trail. Zero means 250ms.
	MinInterval time.Duration
}

// Manager keeps an in-memory undo/redo history per scope. All methods
// are safe for concurrent use.
type Manager struct {
	cfg Config

	mu     sync.Mutex
	byName map[string]*history
	bytes  int // undo stacks only; redo entries are not charged
}

// history is the pair of stacks for one scope.
type history struct {
	undo []Snapshot
	redo []Snapshot
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 << 20
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg, byName: make(map[string]*history)}
}

func (m *Manager) scope(name string) *history {
	h := m.byName[name]
	if h == nil {
		h = &history{}
		m.byName[name] = h
	}
	return h
}

// PushSnapshot records s on its scope and clears that scope's redo
// stack. A snapshot arriving within MinInterval of the previous one
// replaces it instead of growing the stack.
func (m *Manager) PushSnapshot(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.scope(s.Scope)
	if n := len(h.undo); n > 0 && s.TS.Sub(h.undo[n-1].TS) < m.cfg.MinInterval {
		m.bytes += len(s.Blob) - len(h.undo[n-1].Blob)
		h.undo[n-1] = s
	} else {
		h.undo = append(h.undo, s)
		m.bytes += len(s.Blob)
	}
	h.redo = nil
	m.trim(s.Scope)
}

// Undo moves the scope's newest snapshot onto its redo stack and returns
// it. The second result is false when there is no history.
func (m *Manager) Undo(scope string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.byName[scope]
	if h == nil || len(h.undo) == 0 {
		return Snapshot{}, false
	}
	s := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, s)
	m.bytes -= len(s.Blob)
	return s, true
}

// Redo reapplies the most recently undone snapshot of the scope.
func (m *Manager) Redo(scope string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.byName[scope]
	if h == nil || len(h.redo) == 0 {
		return Snapshot{}, false
	}
	s := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, s)
	m.bytes += len(s.Blob)
	m.trim(scope)
	return s, true
}

// CanUndo reports whether the scope has history to step back through.
func (m *Manager) CanUndo(scope string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.byName[scope]
	return h != nil && len(h.undo) > 0
}

// CanRedo reports whether the scope has undone steps to reapply.
func (m *Manager) CanRedo(scope string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.byName[scope]
	return h != nil && len(h.redo) > 0
}

// ClearScope drops a scope's whole history, e.g. when its network is
// deleted.
func (m *Manager) ClearScope(scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.byName[scope]
	if h == nil {
		return
	}
	for _, s := range h.undo {
		m.bytes -= len(s.Blob)
	}
	if m.bytes < 0 {
		m.bytes = 0
	}
	delete(m.byName, scope)
}

// Stats reports held bytes, live scopes and total undo snapshots.
func (m *Manager) Stats() (totalBytes int, scopes int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.byName {
		totalSnapshots += len(h.undo)
	}
	return m.bytes, len(m.byName), totalSnapshots
}

// trim applies the depth cap to the named scope, then the global byte
// cap across all scopes, dropping oldest snapshots first.
func (m *Manager) trim(scope string) {
	if depth := m.cfg.MaxPerScope; depth > 0 {
		if h := m.byName[scope]; h != nil && len(h.undo) > depth {
			drop := len(h.undo) - depth
			for _, s := range h.undo[:drop] {
				m.bytes -= len(s.Blob)
			}
			h.undo = append(h.undo[:0:0], h.undo[drop:]...)
		}
	}
	for m.bytes > m.cfg.MaxBytes {
		name, h := m.oldest()
		if h == nil {
			return
		}
		m.bytes -= len(h.undo[0].Blob)
		h.undo = h.undo[1:]
		if len(h.undo) == 0 && len(h.redo) == 0 {
			delete(m.byName, name)
		}
	}
}

// oldest finds the scope whose bottom-of-stack snapshot is the oldest.
func (m *Manager) oldest() (string, *history) {
	var (
		name string
		best *history
	)
	for n, h := range m.byName {
		if len(h.undo) == 0 {
			continue
		}
		if best == nil || h.undo[0].TS.Before(best.undo[0].TS) {
			name, best = n, h
		}
	}
	return name, best
}
