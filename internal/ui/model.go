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
	"time"

	"github.com/JulianOrteil/TensorBuilder/internal/catalog"
	"github.com/JulianOrteil/TensorBuilder/internal/domain"
	"github.com/JulianOrteil/TensorBuilder/internal/storage"
	"github.com/JulianOrteil/TensorBuilder/internal/undo"
)

// Panel names as used by the controller and model.
const (
	panelHome          = "home"
	panelBuilder       = "builder"
	panelConfiguration = "configuration"
	panelHelp          = "help"
)

// Model holds the main window's session state: the open workspace, the
// block catalog, the network being edited and the undo stacks. It carries
// no widgets; the panels read from and write to it.
type Model struct {
	Workspace *storage.WorkspaceHandle
	Catalog   *catalog.Catalog

	// ActiveNetwork names the network under edit; empty when none is open.
	ActiveNetwork string
	// ActivePanel is one of the panel* constants.
	ActivePanel string

	Undo *undo.Manager
}

func NewModel() *Model {
	return &Model{
		ActivePanel: panelHome,
		Undo: undo.NewManager(undo.Config{
			MaxBytes:    32 * 1024 * 1024,
			MaxPerScope: 20,
			MinInterval: 300 * time.Millisecond,
		}),
	}
}

// CurrentNetwork resolves the active network in the open workspace, or nil.
func (m *Model) CurrentNetwork() *domain.Network {
	if m.Workspace == nil || m.ActiveNetwork == "" {
		return nil
	}
	return m.Workspace.Project.NetworkByName(m.ActiveNetwork)
}

// OpenFirstNetwork points the model at the workspace's first network, if
// any, and returns its name.
func (m *Model) OpenFirstNetwork() string {
	if m.Workspace == nil || len(m.Workspace.Project.Networks) == 0 {
		m.ActiveNetwork = ""
		return ""
	}
	m.ActiveNetwork = m.Workspace.Project.Networks[0].Name
	return m.ActiveNetwork
}
