package reconcile

import (
	"encoding/json"
	"strconv"
)

// CoerceRecord converts a decoded JSON object into a Record. Non-numeric
// values are dropped rather than rejected; the engine's fallback rules
// cover whatever a producer could not express as a number.
func CoerceRecord(raw map[string]any) Record {
	rec := make(Record, len(raw))
	for k, v := range raw {
		if f, ok := coerceValue(v); ok {
			rec[k] = f
		}
	}
	return rec
}

func coerceValue(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
