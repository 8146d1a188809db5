package tools

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/rhuss/antwort-agents/pkg/api"
	"github.com/tidwall/sjson"
)

// FunctionFor builds a strict function tool definition whose parameters
// schema is reflected from T. T should be a struct with json and jsonschema
// struct tags.
func FunctionFor[T any](name, description string) (api.ToolDefinition, error) {
	schema, err := SchemaFor[T]()
	if err != nil {
		return api.ToolDefinition{}, fmt.Errorf("tool %q: %w", name, err)
	}
	return Strict(api.ToolDefinition{
		Type:        "function",
		Name:        name,
		Description: description,
		Parameters:  schema,
	})
}

// SchemaFor reflects T into an inline JSON schema without $ref indirections.
func SchemaFor[T any]() (json.RawMessage, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}

	var zero T
	data, err := json.Marshal(reflector.Reflect(zero))
	if err != nil {
		return nil, fmt.Errorf("reflecting schema for %T: %w", zero, err)
	}

	raw := string(data)
	for _, key := range []string{"$schema", "$id"} {
		if raw, err = sjson.Delete(raw, key); err != nil {
			return nil, err
		}
	}
	return json.RawMessage(raw), nil
}
