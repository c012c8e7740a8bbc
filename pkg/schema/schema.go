// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package schema reflects Go types into JSON schemas for models.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ForArgs builds a tool-parameter schema from T.
//
// Required fields come from the jsonschema tag:
//
//	type Args struct {
//	    Query string `json:"query" jsonschema:"required,description=Search query"`
//	    Limit int    `json:"limit,omitempty" jsonschema:"description=Max results,minimum=1"`
//	}
func ForArgs[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
		AllowAdditionalProperties:  true,
	}
	return reflect[T](reflector)
}

// ForOutput builds a strict structured-output schema from T: every field
// without omitempty is required and additional properties are rejected.
func ForOutput[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	return reflect[T](reflector)
}

func reflect[T any](reflector *jsonschema.Reflector) (map[string]any, error) {
	data, err := json.Marshal(reflector.Reflect(new(T)))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to convert schema to map: %w", err)
	}

	delete(result, "$schema")
	delete(result, "$id")

	if result["type"] == "object" {
		if _, ok := result["properties"]; !ok {
			result["properties"] = map[string]any{}
		}
	}

	return result, nil
}
