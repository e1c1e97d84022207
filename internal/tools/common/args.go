package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// StringArg returns args[key] trimmed, or "" when missing or not a string.
func StringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

// RequiredStringArg returns args[key] or an error naming the missing argument.
func RequiredStringArg(args map[string]any, key string) (string, error) {
	v := StringArg(args, key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// IntArg returns args[key] as an int, or def when missing.
// JSON numbers arrive as float64; numeric strings are accepted too.
func IntArg(args map[string]any, key string, def int) (int, error) {
	switch v := args[key].(type) {
	case nil:
		return def, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return def, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be an integer", key)
	}
}

// BoolArg returns args[key] as a bool, or def when missing or not a bool.
// "true" and "false" strings are accepted.
func BoolArg(args map[string]any, key string, def bool) bool {
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
