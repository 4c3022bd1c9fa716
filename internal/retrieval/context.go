package retrieval

import (
	"path/filepath"
	"strings"
	"unicode"

	"dormguide/internal/domain"
)

const labelPrefix = "Source: RAG Knowledge - "

// BuildContext retrieves the top k hits for query and renders them as a citation-annotated block.
func (r *Retriever) BuildContext(query string, k int) (string, error) {
	hits, err := r.Retrieve(query, k)
	if err != nil {
		return "", err
	}
	return AssembleContext(hits), nil
}

// AssembleContext renders hits in rank order as "[label] text", separated by blank lines.
func AssembleContext(hits []domain.Hit) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, "["+FriendlyLabel(h.Meta.Source)+"] "+h.Text)
	}
	return strings.Join(parts, "\n\n")
}

// FriendlyLabel turns a file name such as hinton_james.txt into "Source: RAG Knowledge - Hinton James".
func FriendlyLabel(source string) string {
	return labelPrefix + DisplayName(source)
}

// DisplayName turns a file name into a title-cased name without extension.
func DisplayName(source string) string {
	name := filepath.Base(source)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return titleCase(strings.Join(strings.Fields(name), " "))
}

// SourceID is the file name without its extension; it identifies a dorm entry.
func SourceID(source string) string {
	name := filepath.Base(source)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// titleCase upper-cases the first letter of each word and lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := true
	for _, r := range s {
		if unicode.IsLetter(r) {
			if start {
				b.WriteRune(unicode.ToUpper(r))
			} else {
				b.WriteRune(unicode.ToLower(r))
			}
			start = false
			continue
		}
		start = !unicode.IsDigit(r)
		b.WriteRune(r)
	}
	return b.String()
}
