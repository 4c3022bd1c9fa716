package session

import (
	"regexp"
	"strings"
)

// Fields are the profile facts found in one message. Empty means not found.
type Fields struct {
	Name  string
	Major string
}

// Extractor pulls profile facts out of free text.
type Extractor interface {
	Extract(text string) Fields
}

type majorRule struct {
	re    *regexp.Regexp
	major string
}

// RegexExtractor is the default Extractor: ordered patterns, first match wins.
type RegexExtractor struct {
	namePatterns []*regexp.Regexp
	majorCue     *regexp.Regexp
	majors       []majorRule
	notNames     map[string]struct{}
}

// NewRegexExtractor creates the default heuristic extractor.
func NewRegexExtractor() *RegexExtractor {
	e := &RegexExtractor{
		namePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i:\bmy name is)\s+(\p{L}[\p{L}'\-]*)`),
			regexp.MustCompile(`(?i:\bcall me)\s+(\p{L}[\p{L}'\-]*)`),
			regexp.MustCompile(`\b(?:I'm|I’m|Im|I am|i'm|i am)\s+(\p{Lu}[\p{L}'\-]*)`),
			regexp.MustCompile(`(?i:\bthis is)\s+(\p{Lu}[\p{L}'\-]*)`),
		},
		majorCue: regexp.MustCompile(`(?i)\b(major|majoring|studying|student|degree)\b`),
		notNames: map[string]struct{}{},
	}
	for _, w := range []string{
		"a", "an", "the", "not", "so", "very", "just", "looking", "interested",
		"new", "in", "from", "going", "trying", "wondering", "thinking", "here",
		"curious", "also", "still", "really", "transferring", "planning",
	} {
		e.notNames[w] = struct{}{}
	}
	table := []struct{ pattern, major string }{
		{`computer science|comp sci|\bcs\b`, "Computer Science"},
		{`data science`, "Data Science"},
		{`political science|poli sci`, "Political Science"},
		{`pre-?med|premed`, "Pre-Med"},
		{`biology|\bbio\b`, "Biology"},
		{`chemistry|\bchem\b`, "Chemistry"},
		{`physics`, "Physics"},
		{`mathematics|\bmath\b|\bmaths\b`, "Mathematics"},
		{`statistics`, "Statistics"},
		{`economics|\becon\b`, "Economics"},
		{`business`, "Business"},
		{`engineering`, "Engineering"},
		{`nursing`, "Nursing"},
		{`psychology|\bpsych\b`, "Psychology"},
		{`journalism|media`, "Journalism"},
		{`history`, "History"},
		{`english`, "English"},
		{`music`, "Music"},
		{`\bart\b|fine arts`, "Art"},
		{`education`, "Education"},
	}
	for _, r := range table {
		e.majors = append(e.majors, majorRule{re: regexp.MustCompile(`(?i)` + r.pattern), major: r.major})
	}
	return e
}

// Extract applies the name rules, then the major rules when the text talks about studies.
func (e *RegexExtractor) Extract(text string) Fields {
	var f Fields
	for _, re := range e.namePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := strings.Trim(m[1], "'’-")
		if _, skip := e.notNames[strings.ToLower(name)]; skip || name == "" {
			continue
		}
		f.Name = capitalize(name)
		break
	}
	if e.majorCue.MatchString(text) {
		for _, r := range e.majors {
			if r.re.MatchString(text) {
				f.Major = r.major
				break
			}
		}
	}
	return f
}

func capitalize(s string) string {
	rs := []rune(strings.ToLower(s))
	if len(rs) == 0 {
		return s
	}
	rs[0] = []rune(strings.ToUpper(string(rs[0])))[0]
	return string(rs)
}
