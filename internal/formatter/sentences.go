package formatter

import (
	"regexp"
	"strings"
)

// sentenceEnd matches terminal punctuation, optional closing quotes or brackets, then whitespace.
var sentenceEnd = regexp.MustCompile(`[.!?]+["'”’)\]]*\s+`)

// SplitSentences splits text after terminal punctuation that is followed by whitespace.
// Text without any terminator comes back as one sentence.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var out []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		s := strings.TrimSpace(text[start:loc[1]])
		if s != "" {
			out = append(out, s)
		}
		start = loc[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// clauseEnd is a semicolon, or terminal punctuation followed by whitespace or the end.
var clauseEnd = regexp.MustCompile(`[.!?]+["'”’)\]]*(?:\s|$)|;`)

// firstFragment returns text up to and excluding the first clause terminator.
func firstFragment(text string) string {
	if loc := clauseEnd.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	return strings.TrimSpace(text)
}
