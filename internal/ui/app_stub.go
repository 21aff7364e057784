//go:build !fyne

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

import "errors"

// Run reports that this binary was built without the desktop UI.
// Headless builds (CI, servers) link this stub instead of the Fyne
// application; everything else in the CLI keeps working.
func Run(_ string) error {
	return errors.New("UI not built into this binary; rebuild with the fyne tag: go build -tags fyne ./cmd/tensorbuilder")
}
