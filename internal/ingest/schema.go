package ingest

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/foodgram/constants"
)

var ingredientsSchema = map[string]any{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type":    "array",
	"items": map[string]any{
		"type":     "object",
		"required": []string{"name", "measurement_unit"},
		"properties": map[string]any{
			"name":             map[string]any{"type": "string", "minLength": 1, "maxLength": constants.NameMaxLength},
			"measurement_unit": map[string]any{"type": "string", "minLength": 1, "maxLength": constants.MeasurementUnitMaxLength},
		},
	},
}

var tagsSchema = map[string]any{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type":    "array",
	"items": map[string]any{
		"type":     "object",
		"required": []string{"name", "slug"},
		"properties": map[string]any{
			"name": map[string]any{"type": "string", "minLength": 1, "maxLength": constants.TagNameMaxLength},
			"slug": map[string]any{"type": "string", "pattern": "^[-a-zA-Z0-9_]+$", "maxLength": constants.TagSlugMaxLength},
		},
	},
}

func schemaFor(kind Kind) map[string]any {
	if kind == KindTags {
		return tagsSchema
	}
	return ingredientsSchema
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
