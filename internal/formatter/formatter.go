package formatter

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"dormguide/internal/retrieval"
)

const (
	// FallbackMessage is returned when there is nothing to format.
	FallbackMessage = "Sorry, I couldn't come up with an answer to that. Could you try rephrasing your question?"
	// Invitation closes every short reply that lists dorms or gets truncated.
	Invitation = "Want more details on any of these dorms? Just ask!"

	header         = "🏠 Top matches"
	maxEntries     = 5
	maxExplanation = 80
	maxShort       = 320
	truncateTo     = 300
)

// DefaultDorms is the closed set of residence hall names recognized at the start of a line.
var DefaultDorms = []string{
	"Alderman", "Alexander", "Avery", "Aycock", "Carmichael", "Cobb", "Connor",
	"Craige", "Craige North", "Ehringhaus", "Everett", "Graham", "Granville",
	"Grimes", "Hardin", "Hinton James", "Horton", "Joyner", "Kenan", "Koury",
	"Lewis", "Mangum", "Manly", "McIver", "Morrison", "Odum", "Old East",
	"Old West", "Parker", "Ruffin", "Spencer", "Stacy", "Teague", "Winston",
}

// DefaultGreetings are dropped from the start of lines in short replies.
var DefaultGreetings = []string{
	"hi", "hello", "hey", "greetings", "good morning", "good afternoon",
	"good evening", "sure", "great question", "thanks for asking",
}

var (
	headerMarker = regexp.MustCompile(`^\s{0,3}#{1,6}(?:\s+|$)`)
	listMarker   = regexp.MustCompile(`^(\s*)([*+])(\s+)`)
	bulletGlyph  = regexp.MustCompile(`^\s*(?:[•◦▪‣●∙·–—]\s*|[*+]\s+)`)
	entryMarker  = regexp.MustCompile(`^(?:-\s+|\d+[.)]\s+)`)
	hallSuffix   = regexp.MustCompile(`(?i)^(?:residence\s+)?hall\b`)
	bracketed    = regexp.MustCompile(`\[[^\[\]\n]*\]`)
	citationSep  = regexp.MustCompile(`[,;]`)
	emphasis     = strings.NewReplacer("**", "", "__", "", "~~", "", "`", "", "*", "")
)

// Formatter turns raw model output into a chat-sized reply.
type Formatter struct {
	dorms      []string
	greetings  []string
	extensions []string
	citation   *regexp.Regexp
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithDorms replaces the recognized dorm names.
func WithDorms(names ...string) Option {
	return func(f *Formatter) { f.dorms = append([]string(nil), names...) }
}

// WithGreetings replaces the greeting phrases dropped from short replies.
func WithGreetings(phrases ...string) Option {
	return func(f *Formatter) { f.greetings = append([]string(nil), phrases...) }
}

// WithExtensions sets which file extensions mark a citation token.
func WithExtensions(exts ...string) Option {
	return func(f *Formatter) { f.extensions = append([]string(nil), exts...) }
}

// New creates a Formatter.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		dorms:      DefaultDorms,
		greetings:  DefaultGreetings,
		extensions: []string{".txt"},
	}
	for _, opt := range opts {
		opt(f)
	}
	dorms := append([]string(nil), f.dorms...)
	// longest first so "Craige North" wins over "Craige"
	sort.SliceStable(dorms, func(i, j int) bool {
		return utf8.RuneCountInString(dorms[i]) > utf8.RuneCountInString(dorms[j])
	})
	f.dorms = dorms

	alts := make([]string, 0, len(f.extensions))
	for _, e := range f.extensions {
		alts = append(alts, regexp.QuoteMeta(strings.TrimPrefix(e, ".")))
	}
	f.citation = regexp.MustCompile(`(?i)([^\s:/\\]+\.(?:` + strings.Join(alts, "|") + `))$`)
	return f
}

// Format cleans raw and, unless expand is set, shortens it.
func (f *Formatter) Format(raw string, expand bool) string {
	return f.FormatFor(raw, expand, "")
}

// FormatFor is Format with the list title addressed to name.
func (f *Formatter) FormatFor(raw string, expand bool, name string) string {
	if strings.TrimSpace(raw) == "" {
		return FallbackMessage
	}
	cleaned := stripControl(raw)
	cleaned = stripMarkup(cleaned)
	cleaned = normalizeBullets(cleaned)
	cleaned = f.RewriteCitations(cleaned)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return FallbackMessage
	}
	if expand {
		return cleaned
	}

	lines := f.filterLines(cleaned)
	if short, ok := f.dormList(lines, name); ok {
		return short
	}
	return f.leadSentences(lines, cleaned)
}

// RewriteCitations replaces [..file.txt] tokens with the friendly source label.
// A bracket listing several files separated by commas or semicolons keeps
// every one of them. Applying it to its own output changes nothing.
func (f *Formatter) RewriteCitations(text string) string {
	return bracketed.ReplaceAllStringFunc(text, func(tok string) string {
		var labels []string
		for _, part := range citationSep.Split(tok[1:len(tok)-1], -1) {
			if m := f.citation.FindStringSubmatch(strings.TrimSpace(part)); m != nil {
				labels = append(labels, retrieval.FriendlyLabel(m[1]))
			}
		}
		if len(labels) == 0 {
			return tok
		}
		return "[" + strings.Join(labels, "; ") + "]"
	})
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == utf8.RuneError:
			return -1
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r) || !unicode.IsPrint(r):
			return -1
		}
		return r
	}, s)
}

func stripMarkup(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		line = headerMarker.ReplaceAllString(line, "")
		prefix := ""
		if m := listMarker.FindStringSubmatch(line); m != nil {
			prefix = m[0]
			line = line[len(m[0]):]
		}
		lines[i] = prefix + emphasis.Replace(line)
	}
	return strings.Join(lines, "\n")
}

func normalizeBullets(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = bulletGlyph.ReplaceAllString(line, "- ")
	}
	return strings.Join(lines, "\n")
}

// filterLines trims, drops blanks and duplicates, and removes the opening
// greeting sentence of a line, keeping first occurrences.
func (f *Formatter) filterLines(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if f.isGreeting(line) {
			line = dropLeadSentence(entryMarker.ReplaceAllString(line, ""))
		}
		if line == "" {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}

func dropLeadSentence(line string) string {
	sentences := SplitSentences(line)
	if len(sentences) < 2 {
		return ""
	}
	return strings.Join(sentences[1:], " ")
}

func (f *Formatter) isGreeting(line string) bool {
	lower := strings.ToLower(entryMarker.ReplaceAllString(line, ""))
	for _, g := range f.greetings {
		if hasWordPrefix(lower, g) {
			return true
		}
	}
	return false
}

type entry struct {
	name        string
	explanation string
}

func (f *Formatter) dormList(lines []string, name string) (string, bool) {
	var entries []entry
	used := make(map[string]struct{})
	for _, line := range lines {
		line = entryMarker.ReplaceAllString(line, "")
		for _, seg := range SplitSentences(line) {
			seg = entryMarker.ReplaceAllString(seg, "")
			dorm, rest, ok := f.matchDorm(seg)
			if !ok {
				continue
			}
			if _, dup := used[dorm]; dup {
				continue
			}
			used[dorm] = struct{}{}
			entries = append(entries, entry{name: dorm, explanation: explain(rest)})
			if len(entries) == maxEntries {
				break
			}
		}
		if len(entries) == maxEntries {
			break
		}
	}
	if len(entries) == 0 {
		return "", false
	}

	var b strings.Builder
	b.WriteString(title(name))
	b.WriteString("\n")
	b.WriteString(header)
	for i, e := range entries {
		b.WriteString("\n")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(e.name)
		if e.explanation != "" {
			b.WriteString(" - ")
			b.WriteString(e.explanation)
		}
	}
	return withInvitation(b.String()), true
}

// matchDorm reports the canonical dorm name a segment starts with and the text after it.
func (f *Formatter) matchDorm(seg string) (string, string, bool) {
	lower := strings.ToLower(seg)
	for _, d := range f.dorms {
		if hasWordPrefix(lower, strings.ToLower(d)) {
			return d, seg[len(strings.ToLower(d)):], true
		}
	}
	return "", "", false
}

func explain(rest string) string {
	rest = strings.TrimLeft(rest, " \t")
	rest = hallSuffix.ReplaceAllString(rest, "")
	rest = strings.TrimLeft(rest, " \t:-–—,|")
	rest = firstFragment(rest)
	if utf8.RuneCountInString(rest) > maxExplanation {
		rs := []rune(rest)
		rest = strings.TrimSpace(string(rs[:maxExplanation-1])) + "…"
	}
	return rest
}

func (f *Formatter) leadSentences(lines []string, cleaned string) string {
	text := strings.Join(lines, " ")
	if text == "" {
		text = strings.Join(strings.Fields(cleaned), " ")
	}
	sentences := SplitSentences(text)
	if len(sentences) > 2 {
		sentences = sentences[:2]
	}
	out := strings.Join(sentences, " ")
	if utf8.RuneCountInString(out) > maxShort {
		return truncate(out)
	}
	return out
}

func withInvitation(body string) string {
	full := body + "\n\n" + Invitation
	if utf8.RuneCountInString(full) > maxShort {
		return truncate(body)
	}
	return full
}

// truncate cuts body to truncateTo runes and appends the invitation.
// The ellipsis marks a cut, so a body already short enough gets none.
func truncate(body string) string {
	rs := []rune(body)
	if len(rs) <= truncateTo {
		return body + "\n\n" + Invitation
	}
	return string(rs[:truncateTo]) + "…\n\n" + Invitation
}

func title(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return "Here are a few dorms that could work for you, " + name + ":"
	}
	return "Here are a few dorms that could work for you:"
}

// hasWordPrefix reports whether s starts with prefix followed by a non-letter or the end.
func hasWordPrefix(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(s[len(prefix):])
	return next == utf8.RuneError || !unicode.IsLetter(next)
}
