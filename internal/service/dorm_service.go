package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"dormguide/internal/domain"
	"dormguide/internal/formatter"
	"dormguide/internal/index"
	"dormguide/internal/llm"
	"dormguide/internal/log"
	"dormguide/internal/retrieval"
	"dormguide/internal/session"
	"dormguide/internal/summarizer"
)

// ApologyMessage is shown when the language model cannot produce an answer.
const ApologyMessage = "Sorry, I'm having trouble answering right now. Please try again in a moment."

var (
	// ErrEmptyQuestion is returned by Ask for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrDormNotFound is returned by Dorm for an unknown id.
	ErrDormNotFound = errors.New("dorm not found")
)

const dormSummarySentences = 2

// Index is the index lifecycle the service drives.
type Index interface {
	EnsureReady() error
	Snapshot() (*index.Blob, error)
	Rebuild() (index.BuildResult, error)
	Status() index.Status
}

// AskRequest is one question from a user.
type AskRequest struct {
	Question  string
	SessionID string
	Expand    bool
}

// AskResponse is the formatted answer and the session it belongs to.
type AskResponse struct {
	Answer    string   `json:"answer"`
	SessionID string   `json:"session_id"`
	Sources   []string `json:"sources"`
}

// DormEntry is a dorm derived from one corpus document.
type DormEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Source  string `json:"source"`
	Summary string `json:"summary"`
	Text    string `json:"text,omitempty"`
}

// Dependencies wires a DormGuide. Index is required; missing optional parts get defaults.
type Dependencies struct {
	Index      Index
	Generator  domain.Generator
	Sessions   *session.Store
	Formatter  *formatter.Formatter
	Prompts    *llm.PromptBuilder
	Summarizer domain.Summarizer
	TopK       int
}

// DormGuide answers housing questions grounded in the indexed corpus.
type DormGuide struct {
	index      Index
	retriever  *retrieval.Retriever
	generator  domain.Generator
	sessions   *session.Store
	formatter  *formatter.Formatter
	prompts    *llm.PromptBuilder
	summarizer domain.Summarizer
	topK       int
	logger     *slog.Logger
}

// NewDormGuide creates the service.
func NewDormGuide(d Dependencies) *DormGuide {
	if d.Sessions == nil {
		d.Sessions = session.NewStore()
	}
	if d.Formatter == nil {
		d.Formatter = formatter.New()
	}
	if d.Prompts == nil {
		d.Prompts = llm.NewPromptBuilder()
	}
	if d.Summarizer == nil {
		d.Summarizer = summarizer.NewFrequencySummarizer()
	}
	if d.TopK <= 0 {
		d.TopK = retrieval.DefaultTopK
	}
	return &DormGuide{
		index:      d.Index,
		retriever:  retrieval.NewRetriever(d.Index),
		generator:  d.Generator,
		sessions:   d.Sessions,
		formatter:  d.Formatter,
		prompts:    d.Prompts,
		summarizer: d.Summarizer,
		topK:       d.TopK,
		logger:     log.NewModuleLogger("service", "dormguide"),
	}
}

// Ask answers a question within a session, creating the session when needed.
// Retrieval and model failures degrade the answer; they are never returned.
func (s *DormGuide) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	id, _ := s.sessions.GetOrCreate(req.SessionID)
	profile := s.sessions.ExtractUserInfo(question, id)

	hits := s.retrieve(question)
	prompt := s.prompts.Build(llm.PromptInput{
		Question: question,
		Context:  retrieval.AssembleContext(hits),
		Profile:  profile,
		History:  s.sessions.History(id),
	})

	answer := ApologyMessage
	raw, err := s.generate(ctx, prompt)
	if err == nil && strings.TrimSpace(raw) == "" {
		err = domain.ErrEmptyCompletion
	}
	if err != nil {
		s.logger.Error("Model call failed", "session_id", id, "error", err)
	} else {
		answer = s.formatter.FormatFor(raw, req.Expand, profile.Name)
	}
	s.sessions.RecordTurn(id, question, answer)

	sources := make([]string, 0, len(hits))
	for _, h := range hits {
		sources = append(sources, retrieval.FriendlyLabel(h.Meta.Source))
	}
	return &AskResponse{Answer: answer, SessionID: id, Sources: sources}, nil
}

// retrieve brings the index to Ready with at most one build, then queries it.
// Without an index it returns no hits and the answer goes ungrounded.
func (s *DormGuide) retrieve(question string) []domain.Hit {
	if err := s.index.EnsureReady(); err != nil {
		s.logger.Warn("Index not ready", "error", err)
	}
	hits, err := s.retriever.Retrieve(question, s.topK)
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			s.logger.Info("No index available, answering without context")
		} else {
			s.logger.Warn("Retrieval failed, answering without context", "error", err)
		}
		return nil
	}
	return hits
}

func (s *DormGuide) generate(ctx context.Context, prompt string) (string, error) {
	if s.generator == nil {
		return "", errors.New("no language model configured")
	}
	return s.generator.Generate(ctx, prompt)
}

// Dorms lists one entry per indexed document, in index order.
func (s *DormGuide) Dorms() ([]DormEntry, error) {
	blob, err := s.snapshot()
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return []DormEntry{}, nil
		}
		return nil, err
	}
	entries := make([]DormEntry, 0, blob.Len())
	for i, meta := range blob.Metadata {
		entries = append(entries, s.entry(meta, blob.Documents[i], false))
	}
	return entries, nil
}

// Dorm looks up one entry by id, the source file name without extension.
func (s *DormGuide) Dorm(id string) (*DormEntry, error) {
	id = strings.TrimSpace(id)
	blob, err := s.snapshot()
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return nil, ErrDormNotFound
		}
		return nil, err
	}
	for i, meta := range blob.Metadata {
		if strings.EqualFold(retrieval.SourceID(meta.Source), id) {
			e := s.entry(meta, blob.Documents[i], true)
			return &e, nil
		}
	}
	return nil, ErrDormNotFound
}

// Rebuild rebuilds the index from the documents directory.
func (s *DormGuide) Rebuild() (index.BuildResult, error) {
	return s.index.Rebuild()
}

// Status reports the index state.
func (s *DormGuide) Status() index.Status {
	return s.index.Status()
}

// History returns the recorded turns of a session.
func (s *DormGuide) History(sessionID string) []session.Turn {
	return s.sessions.History(sessionID)
}

func (s *DormGuide) snapshot() (*index.Blob, error) {
	if err := s.index.EnsureReady(); err != nil {
		s.logger.Warn("Index not ready", "error", err)
	}
	return s.index.Snapshot()
}

func (s *DormGuide) entry(meta domain.SourceMeta, text string, withText bool) DormEntry {
	e := DormEntry{
		ID:     retrieval.SourceID(meta.Source),
		Name:   retrieval.DisplayName(meta.Source),
		Source: meta.Source,
	}
	if summary, err := s.summarizer.Summarize(text, dormSummarySentences); err == nil {
		e.Summary = summary
	}
	if withText {
		e.Text = text
	}
	return e
}
