// Package tokenizer splits documentation text into terms. Words keeps runs
// of letters, digits and the symbols that carry meaning in programming
// prose (c++, c#, @decorator); Code keeps identifiers whole and emits every
// other non-space rune as its own token so operator sequences stay
// searchable. Both report byte offsets and positions for phrase matching.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token is one term with its byte range [Start, End) in the input and its
// ordinal position among the tokens of that input.
type Token struct {
	Term     string
	Start    int
	End      int
	Position int
}

// IsWordRune reports whether r belongs to a text word.
func IsWordRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '@', '#', '$', '%', '+', '-', '|':
		return true
	}
	return false
}

// IsIdentifierRune reports whether r belongs to a code identifier.
func IsIdentifierRune(r rune) bool {
	if r >= utf8.RuneSelf {
		return true
	}
	return r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}

// Words returns the word runs of text, case preserved.
func Words(text string) []Token {
	return runs(text, IsWordRune, false)
}

// Code returns identifier runs plus single-rune punctuation tokens, case
// preserved.
func Code(text string) []Token {
	return runs(text, IsIdentifierRune, true)
}

func runs(text string, inRun func(rune) bool, keepSingles bool) []Token {
	tokens := make([]Token, 0, len(text)/6)
	start := -1
	for i, r := range text {
		if inRun(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, Token{Term: text[start:i], Start: start, End: i, Position: len(tokens)})
			start = -1
		}
		if keepSingles && !unicode.IsSpace(r) && r != utf8.RuneError {
			end := i + utf8.RuneLen(r)
			tokens = append(tokens, Token{Term: text[i:end], Start: i, End: end, Position: len(tokens)})
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{Term: text[start:], Start: start, End: len(text), Position: len(tokens)})
	}
	return tokens
}

// Normalize lower-cases and stems a word term the way the in-memory index
// does. The bleve index applies its own porter filter instead.
func Normalize(term string) string {
	return Stem(strings.ToLower(term))
}

var suffixes = []struct {
	suffix      string
	replacement string
	minLen      int
}{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"tions", "tion", 3},
	{"ying", "y", 2},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"ed", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

// Stem applies a small suffix-stripping stemmer to a lower-case word.
// Words containing symbols (c++, c#) are returned unchanged.
func Stem(word string) string {
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return word
		}
	}
	for _, rule := range suffixes {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}
