package util

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseQuantity reads the leading integer of a Teilemenge cell ("3", "3 Stk", "2.5").
// Blank, non-numeric and non-positive values count as 1.
func ParseQuantity(input string) int {
	s := strings.TrimLeftFunc(strings.ReplaceAll(input, "\u00a0", " "), unicode.IsSpace)
	if s == "" {
		return 1
	}

	end := 0
	if s[0] == '+' || s[0] == '-' {
		end = 1
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 1
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 {
		return 1
	}
	return n
}
