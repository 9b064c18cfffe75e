package util

import "strings"

// NormalizeCode is the comparison form of a derived code: trimmed, upper case.
func NormalizeCode(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}

// FoldKey is the lookup form of an order number: trimmed, lower case.
func FoldKey(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

func IsBlank(input string) bool {
	return strings.TrimSpace(input) == ""
}
