package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dormguide/internal/formatter"
	"dormguide/internal/index"
	"dormguide/internal/llm"
	"dormguide/internal/summarizer"
)

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

func (g *fakeGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

type charCounter struct{}

func (charCounter) Count(text string) int                { return len(text) }
func (charCounter) Truncate(text string, max int) string { return text[:max] }
func (charCounter) Method() string                       { return "chars" }

func newManager(t *testing.T, files map[string]string) (*index.Manager, string) {
	t.Helper()
	root := t.TempDir()
	docs := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(docs, name), []byte(content), 0o644))
	}
	b := index.NewBuilder(index.BuilderConfig{
		DocsDir:    docs,
		IndexPath:  filepath.Join(root, "rag_index.gob"),
		Extensions: []string{".txt"},
	}, summarizer.NewFrequencySummarizer())
	return index.NewManager(b), docs
}

var dorms = map[string]string{
	"hinton_james_hall_reviews.txt": "Hinton James - social, loud, great location. Far from main campus.",
	"horton.txt":                    "Horton is quiet and close to classes.",
}

func newGuide(t *testing.T, gen *fakeGenerator, files map[string]string) (*DormGuide, *index.Manager) {
	m, _ := newManager(t, files)
	g := NewDormGuide(Dependencies{
		Index:     m,
		Generator: gen,
		Formatter: formatter.New(),
		Prompts:   llm.NewPromptBuilder(llm.WithTokenCounter(charCounter{}), llm.WithContextBudget(10000)),
		TopK:      1,
	})
	return g, m
}

func TestAsk_BuildsIndexAndFormats(t *testing.T) {
	gen := &fakeGenerator{reply: "Sure!\nHinton James: social and loud [hinton_james_hall_reviews.txt]."}
	g, m := newGuide(t, gen, dorms)
	assert.Equal(t, index.Absent, m.State())

	resp, err := g.Ask(context.Background(), AskRequest{Question: "I want a social dorm. My name is Sam."})
	require.NoError(t, err)
	assert.Equal(t, index.Ready, m.State())
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, []string{"Source: RAG Knowledge - Hinton James Hall Reviews"}, resp.Sources)
	assert.Contains(t, resp.Answer, "Sam:")
	assert.Contains(t, resp.Answer, "1. Hinton James - social and loud [Source: RAG Knowledge - Hinton James Hall Reviews]")
	assert.True(t, strings.HasSuffix(resp.Answer, formatter.Invitation))

	prompt := gen.lastPrompt()
	assert.Contains(t, prompt, "[Source: RAG Knowledge - Hinton James Hall Reviews] Hinton James - social")
	assert.Contains(t, prompt, "name is Sam")

	h := g.History(resp.SessionID)
	require.Len(t, h, 1)
	assert.Equal(t, resp.Answer, h[0].BotReply)
}

func TestAsk_ReusesSession(t *testing.T) {
	gen := &fakeGenerator{reply: "Horton is quiet."}
	g, _ := newGuide(t, gen, dorms)

	first, err := g.Ask(context.Background(), AskRequest{Question: "quiet dorm?"})
	require.NoError(t, err)
	second, err := g.Ask(context.Background(), AskRequest{Question: "and close to class?", SessionID: first.SessionID})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Len(t, g.History(first.SessionID), 2)
	assert.Contains(t, gen.lastPrompt(), "Student: quiet dorm?")
}

func TestAsk_ExpandKeepsFullText(t *testing.T) {
	long := strings.Repeat("Horton is quiet and close to classes. ", 20)
	gen := &fakeGenerator{reply: long}
	g, _ := newGuide(t, gen, dorms)

	resp, err := g.Ask(context.Background(), AskRequest{Question: "tell me everything", Expand: true})
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(long), resp.Answer)
}

func TestAsk_ModelFailureApologizesAndRecordsTurn(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("upstream down")}
	g, _ := newGuide(t, gen, dorms)

	resp, err := g.Ask(context.Background(), AskRequest{Question: "quiet dorm?", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, ApologyMessage, resp.Answer)
	assert.Equal(t, "s1", resp.SessionID)
	h := g.History("s1")
	require.Len(t, h, 1)
	assert.Equal(t, ApologyMessage, h[0].BotReply)
}

func TestAsk_BlankCompletionApologizes(t *testing.T) {
	g, _ := newGuide(t, &fakeGenerator{reply: " \n\t "}, dorms)

	resp, err := g.Ask(context.Background(), AskRequest{Question: "quiet dorm?"})
	require.NoError(t, err)
	assert.Equal(t, ApologyMessage, resp.Answer)
	assert.NotEqual(t, formatter.FallbackMessage, resp.Answer)
}

func TestAsk_NoGenerator(t *testing.T) {
	m, _ := newManager(t, dorms)
	g := NewDormGuide(Dependencies{Index: m})
	resp, err := g.Ask(context.Background(), AskRequest{Question: "hi"})
	require.NoError(t, err)
	assert.Equal(t, ApologyMessage, resp.Answer)
}

func TestAsk_EmptyCorpusAnswersWithoutContext(t *testing.T) {
	gen := &fakeGenerator{reply: "I am not sure."}
	g, m := newGuide(t, gen, nil)

	resp, err := g.Ask(context.Background(), AskRequest{Question: "which dorm?"})
	require.NoError(t, err)
	assert.Equal(t, "I am not sure.", resp.Answer)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, index.Absent, m.State())
	assert.Contains(t, gen.lastPrompt(), "(none available)")
}

func TestAsk_EmptyQuestion(t *testing.T) {
	g, _ := newGuide(t, &fakeGenerator{}, dorms)
	_, err := g.Ask(context.Background(), AskRequest{Question: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAsk_StaleIndexRebuiltOnce(t *testing.T) {
	gen := &fakeGenerator{reply: "ok."}
	m, docs := newManager(t, dorms)
	g := NewDormGuide(Dependencies{Index: m, Generator: gen, TopK: 5})
	_, err := g.Ask(context.Background(), AskRequest{Question: "quiet"})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(docs, "spencer.txt"), []byte("Spencer is historic."), 0o644))
	m.MarkStale()
	resp, err := g.Ask(context.Background(), AskRequest{Question: "historic"})
	require.NoError(t, err)
	assert.Equal(t, index.Ready, m.State())
	require.NotEmpty(t, resp.Sources)
	assert.Equal(t, "Source: RAG Knowledge - Spencer", resp.Sources[0])
}

func TestDorms(t *testing.T) {
	g, _ := newGuide(t, &fakeGenerator{}, dorms)
	list, err := g.Dorms()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "hinton_james_hall_reviews", list[0].ID)
	assert.Equal(t, "Hinton James Hall Reviews", list[0].Name)
	assert.NotEmpty(t, list[0].Summary)
	assert.Empty(t, list[0].Text)
	assert.Equal(t, "horton", list[1].ID)
}

func TestDorms_EmptyCorpus(t *testing.T) {
	g, _ := newGuide(t, &fakeGenerator{}, nil)
	list, err := g.Dorms()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDorm(t *testing.T) {
	g, _ := newGuide(t, &fakeGenerator{}, dorms)
	d, err := g.Dorm("HORTON")
	require.NoError(t, err)
	assert.Equal(t, "horton.txt", d.Source)
	assert.Equal(t, "Horton is quiet and close to classes.", d.Text)

	_, err = g.Dorm("nowhere")
	assert.ErrorIs(t, err, ErrDormNotFound)
}

func TestRebuildAndStatus(t *testing.T) {
	g, _ := newGuide(t, &fakeGenerator{}, dorms)
	res, err := g.Rebuild()
	require.NoError(t, err)
	assert.Equal(t, index.Built, res.Outcome)
	assert.Equal(t, 2, res.Documents)

	st := g.Status()
	assert.Equal(t, "ready", st.State)
	assert.Equal(t, 2, st.Documents)
}
