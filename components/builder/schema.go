package builder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// StateValidator checks stored builder blobs before they are decoded.
type StateValidator interface {
	ValidateState(data []byte) error
}

const stateSchemaName = "builder-state.json"

const stateSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["panels"],
  "properties": {
    "nextPanelId": {"type": "integer", "minimum": 1},
    "panels": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "integer", "minimum": 1},
          "colSpan": {"type": "integer", "minimum": 1, "maximum": 12},
          "rowSpan": {"type": "integer", "minimum": 1},
          "indicators": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["code"],
              "properties": {
                "code": {"type": "string", "minLength": 1},
                "name": {"type": "string"}
              }
            }
          },
          "chartType": {"type": ["string", "null"], "enum": [null, "", CHART_TYPES]},
          "title": {"type": ["string", "null"]},
          "colors": {"type": "array", "items": {"type": "string"}},
          "fontFamily": {"type": ["string", "null"]},
          "fontSize": {"type": "integer", "minimum": 1},
          "showLegend": {"type": "boolean"},
          "showGrid": {"type": "boolean"},
          "smooth": {"type": "boolean"},
          "axisXLabel": {"type": ["string", "null"]},
          "axisYLabel": {"type": ["string", "null"]},
          "yearStart": {"type": ["integer", "null"]},
          "yearEnd": {"type": ["integer", "null"]}
        }
      }
    }
  }
}`

// JSONSchemaStateValidator validates stored state with jsonschema v5.
type JSONSchemaStateValidator struct {
	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// NewJSONSchemaStateValidator builds the default validator.
func NewJSONSchemaStateValidator() *JSONSchemaStateValidator {
	return &JSONSchemaStateValidator{}
}

// ValidateState ensures data is JSON matching the stored state schema.
func (v *JSONSchemaStateValidator) ValidateState(data []byte) error {
	schema, err := v.schema()
	if err != nil {
		return err
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("builder: stored state is not JSON: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("builder: stored state failed validation: %w", err)
	}
	return nil
}

func (v *JSONSchemaStateValidator) schema() (*jsonschema.Schema, error) {
	v.once.Do(func() {
		names := make([]string, 0, chartTypeCount)
		for _, t := range ChartTypes() {
			names = append(names, fmt.Sprintf("%q", t.String()))
		}
		doc := strings.Replace(stateSchema, "CHART_TYPES", strings.Join(names, ", "), 1)
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(stateSchemaName, bytes.NewReader([]byte(doc))); err != nil {
			v.err = fmt.Errorf("builder: load state schema: %w", err)
			return
		}
		v.compiled, v.err = compiler.Compile(stateSchemaName)
		if v.err != nil {
			v.err = fmt.Errorf("builder: compile state schema: %w", v.err)
		}
	})
	return v.compiled, v.err
}

type noopStateValidator struct{}

func (noopStateValidator) ValidateState([]byte) error { return nil }
