package utils

import (
	"strconv"
	"strings"
)

// CapitalInfo holds information about capitalization in a string
type CapitalInfo struct {
	positions []int
	chars     []rune
}

// ExtractCapitals returns the lowercase form of s along with the positions
// of its capital letters, so suggestions computed over the folded form can
// be restored to the user's typed shape. Returns nil info when s has no
// capitals.
func ExtractCapitals(s string) (string, *CapitalInfo) {
	var info *CapitalInfo
	for i, r := range []rune(s) {
		if r >= 'A' && r <= 'Z' {
			if info == nil {
				info = &CapitalInfo{}
			}
			info.positions = append(info.positions, i)
			info.chars = append(info.chars, r)
		}
	}
	if info == nil {
		return s, nil
	}
	return strings.ToLower(s), info
}

// ApplyCapitals re-applies captured capitalization to a suggested word.
// Positions past the end of the word are ignored.
func ApplyCapitals(word string, info *CapitalInfo) string {
	if info == nil {
		return word
	}
	runes := []rune(word)
	for i, pos := range info.positions {
		if pos < len(runes) {
			runes[pos] = info.chars[i]
		}
	}
	return string(runes)
}

// FormatWithCommas formats an integer with comma separators for display.
func FormatWithCommas(n int) string {
	str := strconv.Itoa(n)
	if n < 0 {
		str = str[1:]
	}
	if len(str) <= 3 {
		if n < 0 {
			return "-" + str
		}
		return str
	}
	var b strings.Builder
	if n < 0 {
		b.WriteByte('-')
	}
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(char)
	}
	return b.String()
}
