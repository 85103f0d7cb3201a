package cmd

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"

	"github.com/Laisky/search-mcp/internal/mcp"
	"github.com/Laisky/search-mcp/library/browser"
)

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// validateStartupConfig validates startup configuration from the shared config source.
// It returns an error when any configured value is malformed or violates constraints.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.S.Get(key)
	})
}

// validateStartupConfigWithGetter validates startup configuration via a key-value getter.
// It accepts a value getter and returns nil when all configured values are valid.
func validateStartupConfigWithGetter(get configGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	validationErrs := make([]string, 0)

	validateMCPToolsConfig(get, &validationErrs)
	validateSearchConfig(get, &validationErrs)
	validateBrowserConfig(get, &validationErrs)
	validateVisitConfig(get, &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

// validateMCPToolsConfig validates tool toggles.
func validateMCPToolsConfig(get configGetter, errs *[]string) {
	for _, name := range []string{
		mcp.ToolBingSearch,
		mcp.ToolBaiduSearch,
		mcp.ToolDuckDuckGoSearch,
		mcp.ToolVisitPage,
	} {
		validateOptionalBool(get, "settings.mcp.tools."+name+".enabled", errs)
	}
}

// validateSearchConfig validates search source settings, including the
// relation between the default and the maximum result count.
func validateSearchConfig(get configGetter, errs *[]string) {
	validateOptionalIntMin(get, "settings.search.default_count", 1, errs)
	validateOptionalIntMin(get, "settings.search.max_count", 1, errs)
	validateOptionalIntMin(get, "settings.search.http_timeout_sec", 1, errs)

	validateOptionalURL(get, "settings.search.bing.endpoint", errs)
	validateOptionalBool(get, "settings.search.bing.document_parser", errs)
	validateOptionalURL(get, "settings.search.duckduckgo.endpoint", errs)
	validateOptionalBool(get, "settings.search.duckduckgo.document_parser", errs)
	validateOptionalURL(get, "settings.search.baidu.endpoint", errs)

	defaultRaw := get("settings.search.default_count")
	maxRaw := get("settings.search.max_count")
	if defaultRaw != nil && maxRaw != nil {
		def, defaultErr := parseStrictInt(defaultRaw)
		ceiling, maxErr := parseStrictInt(maxRaw)
		if defaultErr == nil && maxErr == nil && def > ceiling {
			appendValidationError(errs, "settings.search.default_count must be <= settings.search.max_count")
		}
	}
}

// validateBrowserConfig validates renderer settings and cookie rules.
func validateBrowserConfig(get configGetter, errs *[]string) {
	validateOptionalOneOf(get, "settings.browser.backend", []string{browser.BackendRod, browser.BackendChromeDP}, errs)
	validateOptionalBool(get, "settings.browser.headless", errs)
	validateOptionalIntMin(get, "settings.browser.page_load_timeout_sec", 1, errs)
	validateOptionalIntMin(get, "settings.browser.settle_ms", 0, errs)
	validateOptionalStringNonEmpty(get, "settings.browser.user_agent", errs)
	validateOptionalStringNonEmpty(get, "settings.browser.locale", errs)
	if tz, ok := get("settings.browser.timezone").(string); ok && strings.TrimSpace(tz) != "" {
		if _, err := time.LoadLocation(strings.TrimSpace(tz)); err != nil {
			appendValidationError(errs, "settings.browser.timezone %q is not a known time zone", tz)
		}
	}

	if raw := get("settings.browser.bin"); raw != nil {
		if _, err := parseStrictString(raw); err != nil {
			appendValidationError(errs, "settings.browser.bin must be a string path")
		}
	}

	rawCookies := get("settings.browser.cookies")
	if rawCookies == nil {
		return
	}
	rules, ok := rawCookies.([]any)
	if !ok {
		appendValidationError(errs, "settings.browser.cookies must be a list")
		return
	}
	for i, rawRule := range rules {
		rule := toStringMap(rawRule)
		if rule == nil {
			appendValidationError(errs, "settings.browser.cookies[%d] must be an object", i)
			continue
		}
		validateRequiredStringInMap(errs, rule, fmt.Sprintf("settings.browser.cookies[%d].env", i))
		if _, hasMatch := rule["match"]; !hasMatch {
			if _, hasDomain := rule["domain"]; !hasDomain {
				appendValidationError(errs, "settings.browser.cookies[%d] needs match or domain", i)
			}
		}
	}
}

// validateVisitConfig validates page visit limits.
func validateVisitConfig(get configGetter, errs *[]string) {
	validateOptionalIntMin(get, "settings.visit.min_useful_chars", 0, errs)
	validateOptionalIntMin(get, "settings.visit.max_chars", 1, errs)
}

// validateOptionalBool validates an optionally configured boolean key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalBool(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if _, ok := parseStrictBool(raw); !ok {
		appendValidationError(errs, "%s must be a boolean", key)
	}
}

// validateOptionalIntMin validates an optionally configured integer key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalIntMin(get configGetter, key string, min int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalOneOf validates an optionally configured string key against allowed values.
// Comparison is case-insensitive.
func validateOptionalOneOf(get configGetter, key string, allowed []string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range allowed {
		if normalized == candidate {
			return
		}
	}
	appendValidationError(errs, "%s must be one of [%s]", key, strings.Join(allowed, ", "))
}

// validateOptionalURL validates an optionally configured absolute URL key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalURL(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string URL", key)
		return
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		appendValidationError(errs, "%s must not be empty", key)
		return
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		appendValidationError(errs, "%s must be a valid absolute URL", key)
	}
}

// validateOptionalStringNonEmpty validates an optionally configured non-empty string key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalStringNonEmpty(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	if strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must not be empty", key)
	}
}

// validateRequiredStringInMap validates that a required map field is a non-empty string.
// It accepts an error collector pointer, a source map, and the field path label, and appends validation errors.
func validateRequiredStringInMap(errs *[]string, source map[string]any, fieldPath string) {
	parts := strings.Split(fieldPath, ".")
	key := parts[len(parts)-1]
	value, ok := source[key]
	if !ok {
		appendValidationError(errs, "%s is required", fieldPath)
		return
	}

	text, parseErr := parseStrictString(value)
	if parseErr != nil || strings.TrimSpace(text) == "" {
		appendValidationError(errs, "%s must be a non-empty string", fieldPath)
	}
}

// parseStrictBool parses a value as boolean using strict conversion rules.
// It accepts a raw value and returns the parsed boolean and whether parsing succeeded.
func parseStrictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		if math.Trunc(v) != v {
			return false, false
		}
		return int64(v) != 0, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false, false
		}
		switch strings.ToLower(trimmed) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// parseStrictInt parses a value as a strict integer.
// It accepts a raw value and returns the parsed int and an error when parsing fails.
func parseStrictInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.Trunc(v) != v {
			return 0, errors.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, errors.New("empty integer string")
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, errors.Wrap(err, "atoi")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("unsupported int type %T", value)
	}
}

// parseStrictString parses a value as a strict string.
// It accepts a raw value and returns the parsed string and an error when parsing fails.
func parseStrictString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.Errorf("unsupported string type %T", value)
	}
}

// toStringMap converts decoded config objects into a string-keyed map.
// It returns nil when value is not an object.
func toStringMap(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			ks, ok := key.(string)
			if !ok {
				return nil
			}
			out[ks] = val
		}
		return out
	default:
		return nil
	}
}

// appendValidationError appends a formatted validation error to the collector.
// It accepts an error slice pointer, a format string, and format arguments, and has no return value.
func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
