package utils

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts camelCase or PascalCase to snake_case. Acronym runs stay
// together ("userID" -> "user_id", "HTTPServer" -> "http_server"). Already snake-cased
// input is returned unchanged.
func ToSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' {
				prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if r == '-' || r == ' ' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SnakeCaseKeys walks a decoded JSON value and rewrites every object key to
// snake_case. Values are left untouched. When two keys collapse to the same snake form
// the one that was already snake_case wins.
func SnakeCaseKeys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			sk := ToSnakeCase(k)
			if _, exists := out[sk]; exists && sk != k {
				continue
			}
			out[sk] = SnakeCaseKeys(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = SnakeCaseKeys(inner)
		}
		return out
	default:
		return v
	}
}
