package experiment

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// experimentSchema validates the structural shape of an experiment
// document before any of its referenced files are touched.
var experimentSchema = jsonschema.MustCompileString("experiment.json", `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["version", "images", "codebook"],
	"properties": {
		"version": {
			"type": "string",
			"pattern": "^[0-9]+\\.[0-9]+\\.[0-9]+$"
		},
		"images": {
			"type": "object",
			"required": ["primary"],
			"additionalProperties": {"type": "string"},
			"minProperties": 1
		},
		"codebook": {"type": "string", "minLength": 1},
		"extras": {"type": "object"}
	}
}`)

// ValidateDocument checks raw experiment JSON against the manifest schema.
func ValidateDocument(doc []byte) error {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("experiment: document is not valid JSON: %w", err)
	}
	if err := experimentSchema.Validate(v); err != nil {
		return fmt.Errorf("experiment: document failed schema validation: %w", err)
	}
	return nil
}
