package lexer

import (
	"strconv"
	"unicode"
)

// ASCII character lookup tables for fast classification.
//
// Use inline bounds-checked lookups:
//
//	if ch < 128 && isWordPart[ch] { ... }
//
// Characters >= 128 fall back to the unicode package.
var (
	isWhitespace [128]bool // Space, tab, carriage return, form feed, newline
	isLetter     [128]bool // a-z, A-Z, _
	isDigit      [128]bool // 0-9
	isWordPart   [128]bool // Letter, digit, '.', '[' or ']' (field paths keep their structure)
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)

		// Newlines are insignificant inside a formula
		isWhitespace[i] = ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f' || ch == '\n'

		isLetter[i] = ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
		isDigit[i] = '0' <= ch && ch <= '9'

		isWordPart[i] = isLetter[i] || isDigit[i] || ch == '.' || ch == '[' || ch == ']'
	}
}

func wordStart(r rune) bool {
	if r < 128 {
		return isLetter[r] || isDigit[r]
	}
	return unicode.IsLetter(r)
}

func wordPart(r rune) bool {
	if r < 128 {
		return isWordPart[r]
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// isDecimal reports whether word is a plain decimal number: an optional
// leading '-', digits, and an optional fraction.
func isDecimal(word string) bool {
	i := 0
	if i < len(word) && word[i] == '-' {
		i++
	}
	digits := 0
	for i < len(word) && isDigit[word[i]] {
		i++
		digits++
	}
	if digits == 0 {
		return false
	}
	if i < len(word) && word[i] == '.' {
		i++
		frac := 0
		for i < len(word) && isDigit[word[i]] {
			i++
			frac++
		}
		if frac == 0 {
			return false
		}
	}
	if i != len(word) {
		return false
	}
	_, err := strconv.ParseFloat(word, 64)
	return err == nil
}
