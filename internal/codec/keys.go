package codec

import (
	"strings"
	"unicode"
)

// SnakeCase converts secondLabel, SecondLabel or userID to second_label and user_id.
func SnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if prev != '_' && (unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower)) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FromSnakeCase converts second_label to secondLabel. Leading and trailing
// underscores are kept.
func FromSnakeCase(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	start := 0
	for start < len(s) && s[start] == '_' {
		start++
	}
	end := len(s)
	for end > start && s[end-1] == '_' {
		end--
	}
	if start == end {
		return s
	}

	parts := strings.Split(s[start:end], "_")
	var b strings.Builder
	b.WriteString(s[:start])
	first := true
	for _, p := range parts {
		if p == "" {
			continue
		}
		if first {
			b.WriteString(strings.ToLower(p))
			first = false
			continue
		}
		runes := []rune(strings.ToLower(p))
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	b.WriteString(s[end:])
	return b.String()
}

// CamelCase converts SecondLabel, second_label or URLPath to secondLabel and urlPath.
func CamelCase(s string) string {
	if strings.Contains(s, "_") {
		return FromSnakeCase(s)
	}
	runes := []rune(s)
	for i := 0; i < len(runes) && unicode.IsUpper(runes[i]); i++ {
		if i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			break
		}
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

func encodeKey(name string, s KeyStrategy) string {
	switch s {
	case KeysSnakeCase:
		return SnakeCase(name)
	case KeysCamelCase:
		return CamelCase(name)
	default:
		return name
	}
}

func decodeKey(key string, s KeyStrategy) string {
	switch s {
	case KeysSnakeCase:
		return FromSnakeCase(key)
	case KeysCamelCase:
		return CamelCase(key)
	default:
		return key
	}
}
