package llm

import (
	"strings"

	"dormguide/internal/session"
)

const (
	// DefaultContextBudget is the token allowance for retrieved context.
	DefaultContextBudget = 3000
	defaultHistoryTurns  = 3
)

const instructions = `You are DormGuide, a friendly assistant helping students choose campus housing.
Answer using only the reference material below. If it does not cover the question, say you are not sure.
When recommending dorms, put each one on its own line as "Dorm Name: short reason".
Cite the bracketed source labels you relied on.`

// PromptInput is everything that goes into one prompt.
type PromptInput struct {
	Question string
	Context  string
	Profile  session.Profile
	History  []session.Turn
}

// PromptBuilder renders the grounding prompt, keeping the context within a token budget.
type PromptBuilder struct {
	budget       int
	historyTurns int
	counter      TokenCounter
}

// PromptOption configures a PromptBuilder.
type PromptOption func(*PromptBuilder)

// WithContextBudget caps the retrieved context at n tokens.
func WithContextBudget(n int) PromptOption {
	return func(b *PromptBuilder) {
		if n > 0 {
			b.budget = n
		}
	}
}

// WithTokenCounter replaces the token counter.
func WithTokenCounter(c TokenCounter) PromptOption {
	return func(b *PromptBuilder) {
		if c != nil {
			b.counter = c
		}
	}
}

// WithHistoryTurns sets how many recent turns are quoted.
func WithHistoryTurns(n int) PromptOption {
	return func(b *PromptBuilder) {
		if n >= 0 {
			b.historyTurns = n
		}
	}
}

// NewPromptBuilder creates a PromptBuilder.
func NewPromptBuilder(opts ...PromptOption) *PromptBuilder {
	b := &PromptBuilder{
		budget:       DefaultContextBudget,
		historyTurns: defaultHistoryTurns,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.counter == nil {
		b.counter = DefaultTokenCounter()
	}
	return b
}

// Build renders the prompt.
func (b *PromptBuilder) Build(in PromptInput) string {
	var sb strings.Builder
	sb.WriteString(instructions)

	if facts := profileFacts(in.Profile); facts != "" {
		sb.WriteString("\n\nAbout the student: ")
		sb.WriteString(facts)
	}

	history := in.History
	if len(history) > b.historyTurns {
		history = history[len(history)-b.historyTurns:]
	}
	if len(history) > 0 {
		sb.WriteString("\n\nRecent conversation:")
		for _, t := range history {
			sb.WriteString("\nStudent: ")
			sb.WriteString(oneLine(t.UserMessage))
			sb.WriteString("\nDormGuide: ")
			sb.WriteString(oneLine(t.BotReply))
		}
	}

	sb.WriteString("\n\nReference material:\n")
	if ctx := strings.TrimSpace(in.Context); ctx != "" {
		sb.WriteString(b.fitContext(ctx))
	} else {
		sb.WriteString("(none available)")
	}

	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(strings.TrimSpace(in.Question))
	sb.WriteString("\nAnswer:")
	return sb.String()
}

func (b *PromptBuilder) fitContext(ctx string) string {
	if b.counter.Count(ctx) <= b.budget {
		return ctx
	}
	return strings.TrimSpace(b.counter.Truncate(ctx, b.budget))
}

func profileFacts(p session.Profile) string {
	var parts []string
	if p.Name != "" {
		parts = append(parts, "name is "+p.Name)
	}
	if p.Major != "" {
		parts = append(parts, "major is "+p.Major)
	}
	return strings.Join(parts, "; ")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
