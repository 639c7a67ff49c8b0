package utils

import (
	"unicode"
)

// IsSeparator checks if a rune is a separator character
func IsSeparator(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// IsWordRune reports whether a rune may appear inside a vocabulary word.
// Letters plus intra-word apostrophe and hyphen; everything else splits words.
func IsWordRune(r rune) bool {
	return unicode.IsLetter(r) || r == '\'' || r == '-'
}

// ContainsNumbers checks if a string contains any numeric digits
func ContainsNumbers(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// IsOnlyNumbers checks if a string consists entirely of numeric digits
func IsOnlyNumbers(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ContainsSpecialChars checks if a string contains characters outside the
// word alphabet (letters, apostrophe, hyphen).
func ContainsSpecialChars(s string) bool {
	for _, r := range s {
		if !IsWordRune(r) {
			return true
		}
	}
	return false
}

// IsRepetitive checks if a string consists of one character repeated 3+ times
// (e.g. "aaa", "www") which never makes a useful query.
func IsRepetitive(s string) bool {
	if len(s) <= 2 {
		return false
	}
	firstChar := s[0]
	for i := 1; i < len(s); i++ {
		if s[i] != firstChar {
			return false
		}
	}
	return true
}

// IsValidWord checks if input should be processed as a vocabulary word.
// Returns false for empty strings, digit runs, strings with characters
// outside the word alphabet, and repetitive strings.
func IsValidWord(s string) bool {
	if len(s) == 0 {
		return false
	}
	if IsOnlyNumbers(s) {
		return false
	}
	if ContainsSpecialChars(s) {
		return false
	}
	if IsRepetitive(s) {
		return false
	}
	return true
}

// IsValidPrefix is IsValidWord with the empty string allowed: an empty
// prefix means "no prefix filter" on a prediction query.
func IsValidPrefix(s string) bool {
	if s == "" {
		return true
	}
	return IsValidWord(s)
}
