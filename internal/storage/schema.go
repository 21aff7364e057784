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
	_ "embed"
	"fmt"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

// The manifest schema ships inside the binary so validation never depends
// on an install location. Structural rules only; referential checks such as
// connection endpoints resolving to block ids live in the graph package.
//
//go:embed project.schema.json
var projectSchemaJSON []byte

var (
	schemaOnce     sync.Once
	schemaCompiled *gojsonschema.Schema
	schemaErr      error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schemaCompiled, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(projectSchemaJSON))
	})
	if schemaErr != nil {
		return nil, fmt.Errorf("compile manifest schema: %w", schemaErr)
	}
	return schemaCompiled, nil
}

// ValidateManifest checks manifest bytes against the embedded project schema.
// A nil return means the document is structurally valid. All violations are
// reported in one error, not just the first.
func ValidateManifest(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate manifest: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var sb strings.Builder
	for i, e := range result.Errors() {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(e.String())
	}
	return fmt.Errorf("manifest schema: %s", sb.String())
}
