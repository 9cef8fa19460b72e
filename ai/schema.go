// Copyright (c) Microsoft. All rights reserved.

package ai

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
)

// NewTypedAction creates an [ActionHandler] that decodes the command's
// parameter map into P before calling fn. Decoding failures are reported as
// an [ActionError] wrapping [ErrInvalidParameters].
//
// P should be a struct with json tags. The same type can describe the
// matching assistant function through [GenerateSchema]:
//
//	type LightArgs struct {
//	    Room  string `json:"room"  jsonschema:"description=Room name,required"`
//	    State string `json:"state" jsonschema:"enum=on|off"`
//	}
func NewTypedAction[P any](fn func(ctx context.Context, tc TurnContext, st *TurnState, params P) (string, error)) ActionHandler {
	return func(ctx context.Context, tc TurnContext, st *TurnState, raw any, action string) (string, error) {
		var params P
		if p, ok := raw.(P); ok {
			params = p
		} else if raw != nil {
			b, err := json.Marshal(raw)
			if err == nil {
				err = json.Unmarshal(b, &params)
			}
			if err != nil {
				return "", &ActionError{
					Action:  action,
					Message: "invalid parameters: " + err.Error(),
					Err:     ErrInvalidParameters,
				}
			}
		}
		return fn(ctx, tc, st, params)
	}
}

// GenerateSchema builds a JSON Schema from a Go struct type using reflection.
// Supports struct tags: json (field name), jsonschema (description, required, enum).
func GenerateSchema[T any]() json.RawMessage {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	b, _ := json.Marshal(schemaForType(t))
	return b
}

func schemaForType(t reflect.Type) map[string]any {
	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": schemaForType(t.Elem())}
	case reflect.Pointer:
		return schemaForType(t.Elem())
	case reflect.Struct:
		return schemaForStruct(t)
	case reflect.Map:
		if t.Key().Kind() == reflect.String {
			return map[string]any{"type": "object", "additionalProperties": schemaForType(t.Elem())}
		}
		return map[string]any{"type": "object"}
	default:
		return map[string]any{"type": "string"}
	}
}

func schemaForStruct(t reflect.Type) map[string]any {
	properties := make(map[string]any)
	var required []string

	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, skip := jsonFieldName(field)
		if skip {
			continue
		}

		prop := schemaForType(field.Type)
		for _, part := range strings.Split(field.Tag.Get("jsonschema"), ",") {
			key, val, _ := strings.Cut(part, "=")
			switch strings.TrimSpace(key) {
			case "description":
				prop["description"] = strings.TrimSpace(val)
			case "required":
				required = append(required, name)
			case "enum":
				var vals []any
				for _, v := range strings.Split(val, "|") {
					vals = append(vals, strings.TrimSpace(v))
				}
				prop["enum"] = vals
			}
		}
		properties[name] = prop
	}

	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func jsonFieldName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, false
	}
	return f.Name, false
}
