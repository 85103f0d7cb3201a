package mcp

import (
	"strings"
	"unicode/utf8"
)

const (
	redactedValue = "[redacted]"
	// maxLoggedStringRunes clips long argument values in log lines.
	maxLoggedStringRunes = 256
)

var sensitiveArgumentKeys = []string{"cookie", "token", "authorization", "password", "secret"}

// redactArguments returns a copy of args that is safe to log.
func redactArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	return redactMap(args)
}

func redactValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return redactMap(v)
	case []any:
		result := make([]any, 0, len(v))
		for _, item := range v {
			result = append(result, redactValue(item))
		}
		return result
	case string:
		return clipString(v)
	default:
		return value
	}
}

func redactMap(input map[string]any) map[string]any {
	output := make(map[string]any, len(input))
	for key, value := range input {
		if isSensitiveKey(key) {
			output[key] = redactedValue
			continue
		}
		output[key] = redactValue(value)
	}
	return output
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range sensitiveArgumentKeys {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func clipString(s string) string {
	if utf8.RuneCountInString(s) <= maxLoggedStringRunes {
		return s
	}

	count := 0
	for i := range s {
		if count == maxLoggedStringRunes {
			return s[:i] + "..."
		}
		count++
	}
	return s
}
