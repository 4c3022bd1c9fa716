package domain

import (
	"context"
	"errors"
)

// Document represents a single text file loaded from the corpus directory.
type Document struct {
	ID     int
	Source string
	Path   string
	Text   string
}

// SourceMeta is the per-document metadata kept alongside the index.
type SourceMeta struct {
	Source string `json:"source"`
	Path   string `json:"path,omitempty"`
}

// Hit is a document matched by a retrieval query.
type Hit struct {
	Score float64    `json:"score"`
	Text  string     `json:"text"`
	Meta  SourceMeta `json:"meta"`
}

// Generator turns a prompt into model-generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

var (
	// ErrIndexNotFound is returned when retrieval runs before any successful build.
	ErrIndexNotFound = errors.New("index not found")
	// ErrCorruptIndex is returned when the persisted blob cannot be decoded or is inconsistent.
	ErrCorruptIndex = errors.New("index blob is corrupt")
	// ErrEmptyCompletion is returned when the model answers with no usable text.
	ErrEmptyCompletion = errors.New("model returned no text")
)
