package graph

import "strings"

const nullMarker = "null"

// SanitizeLabel turns a raw label into a display string. Raw labels are either
// plain strings or brace delimited pseudo-arrays as produced by casting a
// postgres text[] to text, e.g. {joaozinho,"null",apelido2}. Array components are
// unquoted, null markers are dropped and the rest are joined with ", ".
//
// The function never fails: malformed input degrades to a best-effort cleanup
// and an empty or all-null input yields "". SanitizeLabel(SanitizeLabel(x)) ==
// SanitizeLabel(x) holds for every input.
func SanitizeLabel(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if !isPseudoArray(s) {
		if strings.EqualFold(s, nullMarker) {
			return ""
		}
		return s
	}

	parts := strings.Split(s[1:len(s)-1], ",")
	cleaned := parts[:0]
	for _, part := range parts {
		part = strings.TrimSpace(strings.Map(dropArraySyntax, part))
		if part == "" || strings.EqualFold(part, nullMarker) {
			continue
		}
		cleaned = append(cleaned, part)
	}

	return strings.Join(cleaned, ", ")
}

// DisplayLabel sanitizes raw and substitutes fallback when nothing is left.
func DisplayLabel(raw, fallback string) string {
	if label := SanitizeLabel(raw); label != "" {
		return label
	}
	return fallback
}

func isPseudoArray(s string) bool {
	return len(s) >= 2 && s[0] == '{' && s[len(s)-1] == '}'
}

// dropArraySyntax removes quotes and nested braces from an array component.
func dropArraySyntax(r rune) rune {
	switch r {
	case '"', '{', '}':
		return -1
	default:
		return r
	}
}
