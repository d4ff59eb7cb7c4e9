package roommodel

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema reflects the JSON schema editors use to validate model documents.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(&Model{})
	schema.Title = "Room Model"
	schema.Description = "Heightmap, door and static objects of a single room."
	return schema
}

// SchemaJSON renders Schema as indented JSON with a trailing newline.
func SchemaJSON() ([]byte, error) {
	data, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
