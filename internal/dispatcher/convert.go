package dispatcher

import "encoding/json"

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asInt64Slice(v interface{}) []int64 {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(raw))
	for _, item := range raw {
		out = append(out, asInt64(item))
	}
	return out
}

// viewToPayload converts a PlayerView into a plain map for the outbound
// envelope, reusing its json tags rather than duplicating field names.
func viewToPayload(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]interface{}{}
	}
	return m
}
