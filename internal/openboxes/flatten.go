package openboxes

import (
	"encoding/json"
	"fmt"
)

// Flatten converts a payload into the dotted-key form the backend binds
// (`{"recipient": {"id": "1"}}` becomes `{"recipient.id": "1"}`). Arrays stay
// arrays; objects inside them are flattened in turn.
func Flatten(payload any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openboxes: flatten: %w", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("openboxes: flatten: payload must be an object: %w", err)
	}
	out := make(map[string]any, len(generic))
	flattenInto(out, "", generic)
	return out, nil
}

func flattenInto(out map[string]any, prefix string, obj map[string]any) {
	for key, value := range obj {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flattenInto(out, name, v)
		case []any:
			out[name] = flattenSlice(v)
		default:
			out[name] = v
		}
	}
}

func flattenSlice(values []any) []any {
	result := make([]any, len(values))
	for i, value := range values {
		switch v := value.(type) {
		case map[string]any:
			nested := make(map[string]any, len(v))
			flattenInto(nested, "", v)
			result[i] = nested
		case []any:
			result[i] = flattenSlice(v)
		default:
			result[i] = v
		}
	}
	return result
}
