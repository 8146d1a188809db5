package tools

import (
	"fmt"
	"strings"

	"github.com/rhuss/antwort-agents/pkg/api"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const emptyObjectSchema = `{"type":"object","properties":{},"required":[],"additionalProperties":false}`

// Strict returns a copy of def in strict mode: every object schema is closed
// with additionalProperties false, every declared property is listed in
// required, and Strict is set. Applying Strict to its own result returns an
// equal definition.
func Strict(def api.ToolDefinition) (api.ToolDefinition, error) {
	out := def
	out.Strict = true
	if out.Type == "" {
		out.Type = "function"
	}

	raw := strings.TrimSpace(string(def.Parameters))
	if raw == "" || raw == "null" {
		out.Parameters = []byte(emptyObjectSchema)
		return out, nil
	}
	if !gjson.Valid(raw) {
		return api.ToolDefinition{}, fmt.Errorf("tool %q: parameters are not valid JSON", def.Name)
	}

	schema, err := closeSchema(raw)
	if err != nil {
		return api.ToolDefinition{}, fmt.Errorf("tool %q: %w", def.Name, err)
	}
	out.Parameters = []byte(schema)
	return out, nil
}

// StrictAll applies Strict to each definition.
func StrictAll(defs []api.ToolDefinition) ([]api.ToolDefinition, error) {
	if defs == nil {
		return nil, nil
	}
	out := make([]api.ToolDefinition, len(defs))
	for i, d := range defs {
		s, err := Strict(d)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// closeSchema rewrites one schema node and recurses into its properties,
// array items and anyOf alternatives.
func closeSchema(raw string) (string, error) {
	node := gjson.Parse(raw)
	if !node.IsObject() {
		return raw, nil
	}

	var err error
	props := node.Get("properties")
	if node.Get("type").String() == "object" || props.IsObject() {
		keys := []string{}
		props.ForEach(func(key, value gjson.Result) bool {
			keys = append(keys, key.String())
			return true
		})

		for _, key := range keys {
			path := "properties." + escapePath(key)
			child, cerr := closeSchema(gjson.Get(raw, path).Raw)
			if cerr != nil {
				return "", cerr
			}
			if raw, err = sjson.SetRaw(raw, path, child); err != nil {
				return "", err
			}
		}
		if !props.Exists() {
			if raw, err = sjson.SetRaw(raw, "properties", "{}"); err != nil {
				return "", err
			}
		}
		if raw, err = sjson.Set(raw, "required", keys); err != nil {
			return "", err
		}
		if raw, err = sjson.Set(raw, "additionalProperties", false); err != nil {
			return "", err
		}
	}

	if items := gjson.Get(raw, "items"); items.IsObject() {
		child, cerr := closeSchema(items.Raw)
		if cerr != nil {
			return "", cerr
		}
		if raw, err = sjson.SetRaw(raw, "items", child); err != nil {
			return "", err
		}
	}

	if anyOf := gjson.Get(raw, "anyOf"); anyOf.IsArray() {
		for i, alt := range anyOf.Array() {
			child, cerr := closeSchema(alt.Raw)
			if cerr != nil {
				return "", cerr
			}
			if raw, err = sjson.SetRaw(raw, fmt.Sprintf("anyOf.%d", i), child); err != nil {
				return "", err
			}
		}
	}

	return raw, nil
}

// escapePath escapes the characters gjson and sjson treat as path syntax.
func escapePath(key string) string {
	var b strings.Builder
	for _, c := range key {
		switch c {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
