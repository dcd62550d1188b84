package ocr

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CleanText normalizes recognized text: whitespace runs collapse to single
// spaces and stray single-glyph punctuation tokens — a common recognition
// artifact at page edges — are dropped. Single letters and digits survive
// since "a", "I" and list numbers are legitimate.
func CleanText(text string) string {
	words := strings.Fields(text)
	cleaned := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) == 1 {
			r, _ := utf8.DecodeRuneInString(w)
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				continue
			}
		}
		cleaned = append(cleaned, w)
	}
	return strings.Join(cleaned, " ")
}

// SegmentParagraphs splits recognized text at blank-line block boundaries and
// cleans each block. Empty blocks are dropped.
func SegmentParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		if para := CleanText(block); para != "" {
			out = append(out, para)
		}
	}
	return out
}
