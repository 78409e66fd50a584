package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func GetStringParam(params map[string]any, key string) (string, error) {
	value, ok := params[key]
	if !ok {
		return "", fmt.Errorf("params is missing required key: '%s'", key)
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("params key '%s' has an invalid type (expected string)", key)
	}
	return strValue, nil
}

// OptionalString returns def when key is absent.
func OptionalString(params map[string]any, key, def string) (string, error) {
	if _, ok := params[key]; !ok {
		return def, nil
	}
	return GetStringParam(params, key)
}

func GetIntParam(params map[string]any, key string) (int, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("params is missing required key: '%s'", key)
	}
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("params key '%s' invalid int: %v", key, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("params key '%s' has unsupported type %T", key, v)
	}
}

func OptionalInt(params map[string]any, key string, def int) (int, error) {
	if _, ok := params[key]; !ok {
		return def, nil
	}
	return GetIntParam(params, key)
}

// GetDurationParam accepts "1.5s" style strings or plain numbers of milliseconds.
func GetDurationParam(params map[string]any, key string) (time.Duration, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("params is missing required key: '%s'", key)
	}
	if s, ok := v.(string); ok {
		d, err := time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("params key '%s' invalid duration: %v", key, err)
		}
		return d, nil
	}
	ms, err := GetIntParam(params, key)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func OptionalDuration(params map[string]any, key string, def time.Duration) (time.Duration, error) {
	if _, ok := params[key]; !ok {
		return def, nil
	}
	return GetDurationParam(params, key)
}

func OptionalBool(params map[string]any, key string, def bool) (bool, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, fmt.Errorf("params key '%s' invalid bool: %v", key, err)
		}
		return b, nil
	default:
		return false, fmt.Errorf("params key '%s' has unsupported type %T", key, v)
	}
}

// GetStringsParam accepts a list of strings or a single string.
func GetStringsParam(params map[string]any, key string) ([]string, error) {
	v, ok := params[key]
	if !ok {
		return nil, nil
	}
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("params key '%s' item %d has an invalid type (expected string)", key, i)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("params key '%s' has unsupported type %T", key, v)
	}
}
