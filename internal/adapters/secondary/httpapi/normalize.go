package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Enveloppes de pagination acceptées, dans l'ordre.
var listEnvelopeKeys = []string{"results", "data", "items", "posts"}

// NormalizeList accepte un tableau nu ou un objet dont results/data/items/posts
// est un tableau. Tout le reste donne une séquence vide.
func NormalizeList(raw json.RawMessage) []json.RawMessage {
	if isArray(raw) {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			return items
		}
		return []json.RawMessage{}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return []json.RawMessage{}
	}
	for _, key := range listEnvelopeKeys {
		v, ok := envelope[key]
		if !ok || !isArray(v) {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(v, &items); err == nil {
			return items
		}
	}
	return []json.RawMessage{}
}

func decodeList[T any](resp *Response) ([]T, error) {
	items := NormalizeList(resp.JSON)
	out := make([]T, 0, len(items))
	for i, raw := range items {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode item %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
