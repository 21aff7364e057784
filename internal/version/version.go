/*
 * Copyright 2025 Julian_Orteil
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package version holds the application version. Commit and Date may be
// injected at build time via -ldflags.
package version

import "strings"

var (
	// Version is the semantic application version.
	Version = "0.0.1alpha"
	// Commit is the VCS revision the binary was built from, if known.
	Commit = ""
	// Date is the build timestamp, if known.
	Date = ""
)

// String returns a human-readable version line, e.g.
// "TensorBuilder 0.0.1alpha (abc1234, 2025-08-01)".
func String() string {
	b := strings.Builder{}
	b.WriteString("TensorBuilder ")
	b.WriteString(Version)
	if Commit != "" || Date != "" {
		b.WriteString(" (")
		switch {
		case Commit != "" && Date != "":
			b.WriteString(Commit)
			b.WriteString(", ")
			b.WriteString(Date)
		case Commit != "":
			b.WriteString(Commit)
		default:
			b.WriteString(Date)
		}
		b.WriteString(")")
	}
	return b.String()
}
