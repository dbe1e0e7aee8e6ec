// Package plan normalizes and validates planner output. Plans leaving this
// package are structurally sound, bound to real catalog columns, and safe to
// compile to SQL.
package plan

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

//go:embed plan_schema.json
var planSchemaJSON []byte

var (
	schemaOnce     sync.Once
	resolvedSchema *jsonschema.Resolved
	schemaErr      error
)

func planSchema() (*jsonschema.Resolved, error) {
	schemaOnce.Do(func() {
		var schema jsonschema.Schema
		if err := json.Unmarshal(planSchemaJSON, &schema); err != nil {
			schemaErr = fmt.Errorf("parse plan schema: %w", err)
			return
		}
		resolvedSchema, schemaErr = schema.Resolve(nil)
	})
	return resolvedSchema, schemaErr
}

// ValidateShape checks raw planner JSON against the plan schema: known keys
// only, closed enums, correct nesting. The input must be the plan document
// itself, not a wrapper.
func ValidateShape(raw []byte) error {
	resolved, err := planSchema()
	if err != nil {
		return err
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("plan is not valid JSON: %w", err)
	}
	if err := resolved.Validate(instance); err != nil {
		return fmt.Errorf("plan failed schema validation: %w", err)
	}
	return nil
}
