// Package validation checks inbound channel frames against a JSON schema
// before they are dispatched.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Every frame, inbound or outbound, is a JSON object with a "type"
// discriminator. Tag-specific fields are validated by the decoder, not here.
const frameSchemaJSON = `{
	"type": "object",
	"required": ["type"],
	"properties": {
		"type": {"type": "string", "minLength": 1}
	}
}`

var frameSchema = mustSchema(frameSchemaJSON)

func mustSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid frame schema: %v", err))
	}
	return schema
}

// ValidateFrame returns an error when data is not valid JSON or does not
// carry a non-empty "type" discriminator.
func ValidateFrame(data []byte) error {
	result, err := frameSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("frame validation: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("frame validation: %s", strings.Join(msgs, "; "))
	}
	return nil
}
