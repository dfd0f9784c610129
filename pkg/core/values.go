package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

type rangeValue struct {
	From any `mapstructure:"from"`
	To   any `mapstructure:"to"`
	Min  any `mapstructure:"min"`
	Max  any `mapstructure:"max"`
}

func decodeRange(v any) (rangeValue, bool) {
	var r rangeValue
	if v == nil {
		return r, false
	}
	if err := mapstructure.Decode(v, &r); err != nil {
		return r, false
	}
	return r, true
}

// DateRange extracts {from, to} from a filter value. Both bounds must be
// present and non-blank.
func DateRange(v any) (from, to string, ok bool) {
	r, ok := decodeRange(v)
	if !ok || IsBlank(r.From) || IsBlank(r.To) {
		return "", "", false
	}
	return ToString(r.From), ToString(r.To), true
}

// NumericRange extracts optional {min, max} bounds from a filter value.
// Bounds that are blank or not numeric are reported as absent.
func NumericRange(v any) (lo, hi *float64) {
	r, ok := decodeRange(v)
	if !ok {
		return nil, nil
	}
	if f, ok := ToFloat(r.Min); ok {
		lo = &f
	}
	if f, ok := ToFloat(r.Max); ok {
		hi = &f
	}
	return lo, hi
}

// IsBlank reports whether a filter value counts as "not applied": nil,
// an empty or whitespace string, or a map whose values are all blank.
func IsBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		for _, s := range t {
			if !IsBlank(s) {
				return false
			}
		}
		return true
	case map[string]any:
		for _, e := range t {
			if !IsBlank(e) {
				return false
			}
		}
		return true
	case map[string]string:
		for _, e := range t {
			if !IsBlank(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ToString renders a scalar value the way it is compared and searched.
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// ToFloat converts numbers and numeric strings.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int8:
		f = float64(t)
	case int16:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint8:
		f = float64(t)
	case uint16:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case bool:
		return 0, false
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case []byte:
		return ToFloat(string(t))
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
