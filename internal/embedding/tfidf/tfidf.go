package tfidf

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
)

// DefaultMaxFeatures caps the vocabulary when no option overrides it.
const DefaultMaxFeatures = 20000

// Vector is a sparse, L2-normalized TF-IDF vector. Indices are ascending.
type Vector struct {
	Indices []int
	Values  []float64
}

// Dot returns the inner product of two sparse vectors.
func (v Vector) Dot(o Vector) float64 {
	sum := 0.0
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			sum += v.Values[i] * o.Values[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// State is the fitted model in a serializable form.
type State struct {
	Vocabulary  map[string]int
	IDF         []float64
	MaxFeatures int
}

// Vectorizer implements a TF-IDF model with a stopword filter and a vocabulary cap.
// It builds a vocabulary from the corpus and computes smoothed IDF values.
type Vectorizer struct {
	vocabulary   map[string]int
	idf          []float64
	maxFeatures  int
	prepared     bool
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// Option configures a Vectorizer.
type Option func(*Vectorizer)

// WithMaxFeatures caps the vocabulary at n terms. Non-positive values keep the default.
func WithMaxFeatures(n int) Option {
	return func(v *Vectorizer) {
		if n > 0 {
			v.maxFeatures = n
		}
	}
}

// NewVectorizer creates an unfitted vectorizer.
func NewVectorizer(opts ...Option) *Vectorizer {
	v := &Vectorizer{
		vocabulary:   make(map[string]int),
		maxFeatures:  DefaultMaxFeatures,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// FromState restores a fitted vectorizer.
func FromState(s State) *Vectorizer {
	v := NewVectorizer(WithMaxFeatures(s.MaxFeatures))
	v.vocabulary = s.Vocabulary
	if v.vocabulary == nil {
		v.vocabulary = make(map[string]int)
	}
	v.idf = s.IDF
	v.prepared = true
	return v
}

// State exports the fitted model.
func (v *Vectorizer) State() State {
	return State{Vocabulary: v.vocabulary, IDF: v.idf, MaxFeatures: v.maxFeatures}
}

// Dimension returns the vocabulary size.
func (v *Vectorizer) Dimension() int { return len(v.idf) }

// Fit builds the vocabulary and IDF values from the corpus.
// When the vocabulary exceeds the cap, the most frequent terms across the corpus are kept.
func (v *Vectorizer) Fit(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF fit")
	}
	df := make(map[string]int)
	tf := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range v.tokenize(text) {
			tf[tok]++
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	if len(terms) > v.maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if tf[terms[i]] != tf[terms[j]] {
				return tf[terms[i]] > tf[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.maxFeatures]
	}
	// Stable column ordering
	sort.Strings(terms)

	v.vocabulary = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		v.vocabulary[term] = i
		// Smoothed IDF
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	v.prepared = true
	return nil
}

// Transform projects text into the fitted space. Out-of-vocabulary terms are dropped.
func (v *Vectorizer) Transform(text string) (Vector, error) {
	if !v.prepared {
		return Vector{}, errors.New("tfidf vectorizer not fitted")
	}
	counts := make(map[int]int)
	for _, tok := range v.tokenize(text) {
		if idx, ok := v.vocabulary[tok]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return Vector{}, nil
	}
	vec := Vector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Ints(vec.Indices)
	norm := 0.0
	for _, idx := range vec.Indices {
		w := float64(counts[idx]) * v.idf[idx]
		vec.Values = append(vec.Values, w)
		norm += w * w
	}
	// L2 normalize
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec.Values {
			vec.Values[i] /= norm
		}
	}
	return vec, nil
}

// FitTransform fits the corpus and returns one vector per document.
func (v *Vectorizer) FitTransform(corpus []string) ([]Vector, error) {
	if err := v.Fit(corpus); err != nil {
		return nil, err
	}
	out := make([]Vector, len(corpus))
	for i, text := range corpus {
		vec, err := v.Transform(text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (v *Vectorizer) tokenize(text string) []string {
	raw := v.tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if len([]rune(t)) < 2 {
			continue
		}
		if _, isStop := v.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"i", "me", "my", "we", "our", "you", "your", "he", "him", "his", "she", "her", "they", "them", "their", "its", "what", "which", "who", "whom", "do", "does", "did", "has", "have", "had", "not", "no", "nor", "only", "all", "any", "both", "each", "few", "more", "most", "other", "some", "there", "here", "when", "where", "why", "how", "would", "could", "am", "also", "us",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
