package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dormguide/internal/service"
)

type fakePort struct {
	reqs []service.AskRequest
	err  error
}

func (p *fakePort) Ask(_ context.Context, req service.AskRequest) (*service.AskResponse, error) {
	p.reqs = append(p.reqs, req)
	if p.err != nil {
		return nil, p.err
	}
	return &service.AskResponse{
		Answer:    "Horton - quiet",
		SessionID: "0123456789abcdef",
		Sources:   []string{"Source: RAG Knowledge - Horton"},
	}, nil
}

func sized(t *testing.T, port ChatPort) Model {
	t.Helper()
	next, _ := New(port, "2 documents indexed").Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(Model)
}

func submit(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestEnterAsksAndRecordsAnswer(t *testing.T) {
	port := &fakePort{}
	m := sized(t, port)

	m, cmd := submit(t, m, "  quiet dorm?  ")
	require.NotNil(t, cmd)
	assert.True(t, m.pending)
	assert.Equal(t, "", m.input.Value())

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.pending)
	assert.Equal(t, "0123456789abcdef", m.SessionID())
	require.Len(t, m.entries, 1)
	assert.Equal(t, "quiet dorm?", m.entries[0].question)
	assert.Equal(t, "Horton - quiet", m.entries[0].answer)
	assert.Contains(t, m.View(), "Horton - quiet")

	// the session id is carried into the next question
	_, cmd = submit(t, m, "and social?")
	cmd()
	require.Len(t, port.reqs, 2)
	assert.Equal(t, "", port.reqs[0].SessionID)
	assert.Equal(t, "0123456789abcdef", port.reqs[1].SessionID)
}

func TestEnterIgnoredWhileBlankOrPending(t *testing.T) {
	port := &fakePort{}
	m := sized(t, port)

	_, cmd := submit(t, m, "   ")
	assert.Nil(t, cmd)

	m, cmd = submit(t, m, "first")
	require.NotNil(t, cmd)
	_, cmd = submit(t, m, "second")
	assert.Nil(t, cmd)
}

func TestCtrlETogglesExpand(t *testing.T) {
	port := &fakePort{}
	m := sized(t, port)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	m = next.(Model)
	assert.True(t, m.expand)

	_, cmd := submit(t, m, "details please")
	cmd()
	require.Len(t, port.reqs, 1)
	assert.True(t, port.reqs[0].Expand)
}

func TestAskErrorShown(t *testing.T) {
	m := sized(t, &fakePort{err: errors.New("boom")})
	m, cmd := submit(t, m, "q")
	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.True(t, m.entries[0].failed)
	assert.Contains(t, m.entries[0].answer, "boom")
}

func TestQuitKeys(t *testing.T) {
	m := sized(t, &fakePort{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestViewBeforeSize(t *testing.T) {
	assert.Equal(t, "Loading...", New(&fakePort{}, "").View())
}
