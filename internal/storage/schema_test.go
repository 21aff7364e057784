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
	"os"
	"strings"
	"testing"
)

func TestManifestWrittenByInitConformsToSchema(t *testing.T) {
	root := t.TempDir()
	ws, err := Init(root, testProject("Schema Test"))
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	data, err := os.ReadFile(ws.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if err := ValidateManifest(data); err != nil {
		t.Fatalf("manifest does not conform to schema: %v", err)
	}
}

func TestValidateManifestRejections(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "missing name",
			doc:  `{"networks": []}`,
			want: "name",
		},
		{
			name: "unknown top-level field",
			doc:  `{"name": "x", "networks": [], "issues": []}`,
			want: "issues",
		},
		{
			name: "empty connection endpoint",
			doc: `{"name": "x", "networks": [{"name": "n", "target": "tensorflow",
				"blocks": [{"id": "a", "type": "input", "position": {"x": 0, "y": 0}}],
				"connections": [{"from": "a", "to": ""}]}]}`,
			want: "to",
		},
		{
			name: "block without type",
			doc: `{"name": "x", "networks": [{"name": "n", "target": "tensorflow",
				"blocks": [{"id": "a", "position": {"x": 0, "y": 0}}], "connections": []}]}`,
			want: "type",
		},
	}
	for _, tc := range cases {
		err := ValidateManifest([]byte(tc.doc))
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: error %q does not mention %q", tc.name, err, tc.want)
		}
	}
}

func TestValidateManifestAllowsNullCollections(t *testing.T) {
	// Zero-value Go slices marshal to null; those manifests are still valid.
	doc := `{"name": "x", "networks": [{"name": "n", "target": "", "blocks": null, "connections": null}]}`
	if err := ValidateManifest([]byte(doc)); err != nil {
		t.Fatalf("null collections should validate: %v", err)
	}
}
