package index

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dormguide/internal/domain"
	"dormguide/internal/embedding/tfidf"
	"dormguide/internal/loader"
	"dormguide/internal/log"
)

// Outcome tells the caller what a build did.
type Outcome int

const (
	// Built means a new blob was written.
	Built Outcome = iota
	// NoDocuments means the corpus was empty and nothing was written.
	NoDocuments
)

func (o Outcome) String() string {
	if o == NoDocuments {
		return "no_documents"
	}
	return "built"
}

// MarshalText renders the outcome by name in JSON.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "built":
		*o = Built
	case "no_documents":
		*o = NoDocuments
	default:
		return fmt.Errorf("unknown build outcome %q", b)
	}
	return nil
}

// BuildResult reports the result of a build.
type BuildResult struct {
	Outcome   Outcome `json:"outcome"`
	Documents int     `json:"documents"`
	Terms     int     `json:"terms"`
	Summary   string  `json:"summary,omitempty"`
	Path      string  `json:"path"`
}

// BuilderConfig configures a Builder.
type BuilderConfig struct {
	DocsDir     string
	IndexPath   string
	Extensions  []string
	MaxFeatures int
}

// Builder turns the documents directory into a persisted Blob.
type Builder struct {
	cfg        BuilderConfig
	summarizer domain.Summarizer
	logger     *slog.Logger
}

// NewBuilder creates a Builder. summarizer may be nil.
func NewBuilder(cfg BuilderConfig, summarizer domain.Summarizer) *Builder {
	return &Builder{
		cfg:        cfg,
		summarizer: summarizer,
		logger:     log.NewModuleLogger("index", "builder"),
	}
}

// Path returns where the blob is written.
func (b *Builder) Path() string { return b.cfg.IndexPath }

// Build recomputes the whole index from the current documents directory.
// An empty corpus leaves any existing blob untouched and reports NoDocuments.
func (b *Builder) Build() (BuildResult, error) {
	_, res, err := b.build()
	return res, err
}

func (b *Builder) build() (*Blob, BuildResult, error) {
	res := BuildResult{Path: b.cfg.IndexPath}
	docs, err := loader.Load(b.cfg.DocsDir, b.cfg.Extensions)
	if err != nil {
		return nil, res, fmt.Errorf("load documents: %w", err)
	}
	if len(docs) == 0 {
		b.logger.Warn("No documents found, index left unchanged", "docs_dir", b.cfg.DocsDir)
		res.Outcome = NoDocuments
		return nil, res, nil
	}

	texts := make([]string, len(docs))
	meta := make([]domain.SourceMeta, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
		meta[i] = domain.SourceMeta{Source: d.Source, Path: d.Path}
	}

	vectorizer := tfidf.NewVectorizer(tfidf.WithMaxFeatures(b.cfg.MaxFeatures))
	matrix, err := vectorizer.FitTransform(texts)
	if err != nil {
		return nil, res, fmt.Errorf("fit tfidf: %w", err)
	}

	blob := &Blob{
		Model:     vectorizer.State(),
		Matrix:    matrix,
		Documents: texts,
		Metadata:  meta,
		BuiltAt:   time.Now().UTC(),
	}
	if err := Save(b.cfg.IndexPath, blob); err != nil {
		return nil, res, err
	}

	res.Outcome = Built
	res.Documents = len(docs)
	res.Terms = vectorizer.Dimension()
	if b.summarizer != nil {
		if summary, err := b.summarizer.Summarize(strings.Join(texts, "\n"), 3); err == nil {
			res.Summary = summary
		}
	}
	b.logger.Info("Index built",
		"documents", res.Documents,
		"terms", res.Terms,
		"path", b.cfg.IndexPath,
	)
	return blob, res, nil
}
