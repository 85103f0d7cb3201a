package search

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultCount is used when the caller gives no usable count.
	DefaultCount = 20
	// MaxCount is the upstream ceiling shared by the search sources.
	MaxCount = 50
)

// ClampCount coerces raw into an integer within [1, ceiling].
// Values that cannot be read as a number resolve to def.
func ClampCount(raw any, def, ceiling int) int {
	if ceiling < 1 {
		ceiling = MaxCount
	}
	if def < 1 {
		def = 1
	}
	if def > ceiling {
		def = ceiling
	}

	n, ok := coerceInt(raw)
	if !ok {
		return def
	}

	switch {
	case n < 1:
		return 1
	case n > ceiling:
		return ceiling
	default:
		return n
	}
}

func coerceInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return clampInt64(v), true
	case float32:
		return coerceFloat(float64(v))
	case float64:
		return coerceFloat(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return clampInt64(i), true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return coerceFloat(f)
	case string:
		s := strings.TrimSpace(v)
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return coerceFloat(f)
	default:
		return 0, false
	}
}

func coerceFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32, true
	case f < math.MinInt32:
		return math.MinInt32, true
	}
	return int(f), true
}

func clampInt64(v int64) int {
	switch {
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	}
	return int(v)
}
