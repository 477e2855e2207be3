package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ResultFields lists the JSON fields every analysis reply must carry.
var ResultFields = []string{
	"announcementTitle",
	"longDescriptionPt",
	"longDescriptionEn",
	"instagramPost",
	"keyFeatures",
	"targetAudience",
	"callToAction",
}

// BuildResultSchema returns the JSON Schema for an analysis reply. Length
// targets stay in the prompt and are not enforced here.
func BuildResultSchema() map[string]any {
	props := make(map[string]any, len(ResultFields))
	for _, field := range ResultFields {
		props[field] = map[string]any{"type": "string"}
	}
	props["keyFeatures"] = map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   ResultFields,
	}
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func resultSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		b, err := json.Marshal(BuildResultSchema())
		if err != nil {
			schemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("analysis.json", bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("analysis.json")
	})
	return compiledSchema, schemaErr
}

// ValidateResult checks a provider reply against the analysis schema.
func ValidateResult(data []byte) error {
	schema, err := resultSchema()
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
