package avalon

import "strconv"

// The as* helpers tolerate both the native types ToMap produces and
// the float64/string types a JSON round trip produces, so StateFromMap
// works whether the map came straight from ToMap or via json.Unmarshal
// into map[string]interface{}.

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
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func asSlice(v interface{}) []interface{} {
	s, _ := v.([]interface{})
	return s
}

func asInt64Slice(v interface{}) []int64 {
	raw := asSlice(v)
	if len(raw) == 0 {
		return nil
	}
	out := make([]int64, len(raw))
	for i, r := range raw {
		out[i] = asInt64(r)
	}
	return out
}

func asBoolSlice(v interface{}) []bool {
	raw := asSlice(v)
	if len(raw) == 0 {
		return nil
	}
	out := make([]bool, len(raw))
	for i, r := range raw {
		out[i] = asBool(r)
	}
	return out
}

func asVotes(v interface{}) map[int64]bool {
	m, ok := v.(map[string]interface{})
	if !ok {
		return map[int64]bool{}
	}
	out := make(map[int64]bool, len(m))
	for k, val := range m {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		out[id] = asBool(val)
	}
	return out
}

func formatInt64(v int64) string {
	return strconv.FormatInt(v, 10)
}
