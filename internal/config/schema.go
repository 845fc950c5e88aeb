package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "schema://stairwise-config.json"

const durationPattern = `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`

// fileSchema describes the YAML configuration file.
var fileSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"participant": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"id":  map[string]any{"type": "string"},
				"age": map[string]any{"type": "integer", "minimum": 0, "maximum": 150},
				"sex": map[string]any{"type": "string", "enum": []any{"MALE", "FEMALE", "OTHER"}},
			},
		},
		"training": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"levels": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "number"},
				},
				"reps": map[string]any{"type": "integer", "minimum": 0},
			},
		},
		"staircase": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"n_up":          map[string]any{"type": "integer", "minimum": 1},
				"n_down":        map[string]any{"type": "integer", "minimum": 1},
				"max_reversals": map[string]any{"type": "integer", "minimum": 1},
				"start_value":   map[string]any{"type": "number"},
				"step":          map[string]any{"type": "number", "exclusiveMinimum": 0},
			},
		},
		"max_trials": map[string]any{"type": "integer", "minimum": 0},
		"observer": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"threshold":   map[string]any{"type": "number"},
				"spread":      map[string]any{"type": "number", "exclusiveMinimum": 0},
				"guess":       map[string]any{"type": "number", "minimum": 0, "exclusiveMaximum": 1},
				"lapse":       map[string]any{"type": "number", "minimum": 0, "exclusiveMaximum": 1},
				"polarity":    map[string]any{"type": "string", "enum": []any{"easier", "harder"}},
				"seed":        map[string]any{"type": "integer", "minimum": 0},
				"min_latency": map[string]any{"type": "string", "pattern": durationPattern},
				"max_latency": map[string]any{"type": "string", "pattern": durationPattern},
			},
		},
	},
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// compiledSchema compiles fileSchema on first use and caches the result.
func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		// The compiler wants a decoded JSON value, so round-trip the Go map.
		raw, err := json.Marshal(fileSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			compileErr = fmt.Errorf("parse schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// validateDocument checks a decoded YAML document against the schema.
func validateDocument(doc any) error {
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
