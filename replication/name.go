package replication

import (
	"strings"
	"unicode/utf8"
)

// invalidNameChars may not appear in object names: they are path syntax.
const invalidNameChars = `.:/\"%`

// SanitizeName replaces characters that are invalid in object names with '_'.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == utf8.RuneError || strings.ContainsRune(invalidNameChars, r) {
			return '_'
		}
		return r
	}, name)
}

// ValidName returns true if name is non empty valid utf-8 and survives SanitizeName unchanged.
func ValidName(name string) bool {
	return name != "" && utf8.ValidString(name) && SanitizeName(name) == name
}
