package parser

import (
	"math"
	"strconv"
	"strings"
)

// The appliance is inconsistent about value types across product variants:
// numbers may arrive as JSON numbers or numeric strings, flags as booleans or
// "on"/"off". These helpers normalize decoded interface{} values.

// ToInt64 converts a decoded JSON value to an int64
func ToInt64(v interface{}) (int64, bool) {
	return toInt64(v)
}

// ToFloat64 converts a decoded JSON value to a float64
func ToFloat64(v interface{}) (float64, bool) {
	return toFloat64(v)
}

// ToString converts a decoded JSON scalar to a string
func ToString(v interface{}) string {
	return toString(v)
}

func toInt64(v interface{}) (int64, bool) {
	f, ok := toFloat64(v)
	if !ok {
		return 0, false
	}
	if s, isString := v.(string); isString {
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return i, true
		}
	}
	return int64(f), true
}

func toFloat64(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func toBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "on", "true", "yes", "1":
			return true
		}
		return false
	case float64:
		return b != 0
	default:
		return false
	}
}

func int64Ptr(v interface{}) *int64 {
	i, ok := toInt64(v)
	if !ok {
		return nil
	}
	return &i
}

func float64Ptr(v interface{}) *float64 {
	f, ok := toFloat64(v)
	if !ok {
		return nil
	}
	return &f
}
