// Package textutil holds the tokenization shared by the analyzers.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)
	wordRe     = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`)
	letterRe   = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// Sentences splits text into trimmed sentences. A trailing fragment without
// terminal punctuation is kept as a final sentence.
func Sentences(text string) []string {
	locs := sentenceRe.FindAllStringIndex(text, -1)
	out := make([]string, 0, len(locs)+1)
	last := 0
	for _, loc := range locs {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// Words returns alphanumeric tokens in their original case.
func Words(text string) []string {
	return wordRe.FindAllString(text, -1)
}

// Terms returns lower-cased letter-only tokens.
func Terms(text string) []string {
	toks := letterRe.FindAllString(text, -1)
	for i, t := range toks {
		toks[i] = strings.ToLower(t)
	}
	return toks
}

// LetterStats returns the number of letters and of upper-case letters.
func LetterStats(text string) (letters, upper int) {
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return letters, upper
}

// DigitRatio returns the share of non-space runes that are digits.
func DigitRatio(text string) float64 {
	var digits, total int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(digits) / float64(total)
}
