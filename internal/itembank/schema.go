package itembank

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// documentSchema checks the shape of a bank file. Per-question content
// rules (four choices, index range) are enforced item by item so one bad
// question does not reject a whole file.
var documentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"lessons": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":          map[string]any{"type": "string", "minLength": 1},
					"name":        map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
				},
				"required": []any{"id", "name"},
			},
		},
		"questions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":          map[string]any{"type": "string", "minLength": 1},
					"lesson":      map[string]any{"type": "string", "minLength": 1},
					"tier":        map[string]any{"type": []any{"string", "integer"}},
					"prompt":      map[string]any{"type": "string"},
					"choices":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"answer":      map[string]any{"type": "integer"},
					"explanation": map[string]any{"type": "string"},
					"theory":      map[string]any{"type": "string"},
				},
				"required": []any{"id", "lesson", "tier", "prompt", "choices", "answer"},
			},
		},
	},
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func bankSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		raw, err := json.Marshal(documentSchema)
		if err != nil {
			compileErr = err
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			compileErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema://item-bank.json", doc); err != nil {
			compileErr = err
			return
		}
		compiled, compileErr = c.Compile("schema://item-bank.json")
	})
	return compiled, compileErr
}

// checkDocument validates a YAML-decoded document against the bank schema.
func checkDocument(doc any) error {
	sch, err := bankSchema()
	if err != nil {
		return fmt.Errorf("compile bank schema: %w", err)
	}
	// Round-trip through JSON so numbers and maps have the types the
	// validator expects.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return sch.Validate(v)
}
