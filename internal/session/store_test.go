package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreate_GeneratesID(t *testing.T) {
	s := NewStore()
	id, p := s.GetOrCreate("")
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, Profile{}, p)

	other, _ := s.GetOrCreate("  ")
	assert.NotEqual(t, id, other)
	assert.Equal(t, 2, s.Len())
}

func TestGetOrCreate_KeepsCallerID(t *testing.T) {
	s := NewStore()
	id, _ := s.GetOrCreate("abc")
	assert.Equal(t, "abc", id)
	s.GetOrCreate("abc")
	assert.Equal(t, 1, s.Len())
}

func TestProfile_Unknown(t *testing.T) {
	s := NewStore()
	_, ok := s.Profile("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestRecordTurn_KeepsLastTen(t *testing.T) {
	s := NewStore()
	for i := 0; i < 15; i++ {
		s.RecordTurn("s", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}
	h := s.History("s")
	require.Len(t, h, 10)
	for i, turn := range h {
		assert.Equal(t, fmt.Sprintf("q%d", i+5), turn.UserMessage)
		assert.Equal(t, fmt.Sprintf("a%d", i+5), turn.BotReply)
		assert.False(t, turn.Timestamp.IsZero())
	}
}

func TestRecordTurn_CustomLimit(t *testing.T) {
	s := NewStore(WithHistoryLimit(2))
	for i := 0; i < 5; i++ {
		s.RecordTurn("s", fmt.Sprint(i), "")
	}
	h := s.History("s")
	require.Len(t, h, 2)
	assert.Equal(t, "3", h[0].UserMessage)
	assert.Equal(t, "4", h[1].UserMessage)
}

func TestHistory_ReturnsCopy(t *testing.T) {
	s := NewStore()
	s.RecordTurn("s", "q", "a")
	h := s.History("s")
	h[0].UserMessage = "changed"
	assert.Equal(t, "q", s.History("s")[0].UserMessage)
	assert.Empty(t, s.History("unknown"))
}

func TestRecordTurn_ConcurrentSameSession(t *testing.T) {
	s := NewStore(WithHistoryLimit(1000))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.RecordTurn("shared", fmt.Sprint(i), "")
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.History("shared"), 50)
}

func TestExtractUserInfo(t *testing.T) {
	s := NewStore()
	p := s.ExtractUserInfo("Hi, my name is sam and I'm a computer science major", "s")
	assert.Equal(t, "Sam", p.Name)
	assert.Equal(t, "Computer Science", p.Major)

	// no new match leaves the profile alone
	p = s.ExtractUserInfo("Which dorm is quiet?", "s")
	assert.Equal(t, Profile{Name: "Sam", Major: "Computer Science"}, p)

	p = s.ExtractUserInfo("Actually, call me Alex", "s")
	assert.Equal(t, "Alex", p.Name)
	assert.Equal(t, "Computer Science", p.Major)

	got, ok := s.Profile("s")
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestExtractUserInfo_Idempotent(t *testing.T) {
	s := NewStore()
	first := s.ExtractUserInfo("I am Jordan, studying biology", "s")
	second := s.ExtractUserInfo("I am Jordan, studying biology", "s")
	assert.Equal(t, first, second)
	assert.Equal(t, Profile{Name: "Jordan", Major: "Biology"}, second)
}

type stubExtractor struct{ f Fields }

func (s stubExtractor) Extract(string) Fields { return s.f }

func TestWithExtractor(t *testing.T) {
	s := NewStore(WithExtractor(stubExtractor{Fields{Name: "Robo"}}))
	p := s.ExtractUserInfo("anything", "s")
	assert.Equal(t, "Robo", p.Name)
}

func TestRegexExtractor(t *testing.T) {
	e := NewRegexExtractor()
	cases := []struct {
		in   string
		want Fields
	}{
		{"my name is Priya", Fields{Name: "Priya"}},
		{"MY NAME IS priya", Fields{Name: "Priya"}},
		{"I'm Looking for a quiet dorm", Fields{}},
		{"i'm interested in Horton", Fields{}},
		{"This is Dana, a nursing student", Fields{Name: "Dana", Major: "Nursing"}},
		{"My name is Lee. Call me Bo.", Fields{Name: "Lee"}},
		{"I'm majoring in CS", Fields{Major: "Computer Science"}},
		{"tell me about the history of Old East", Fields{}},
		{"I'm a history major", Fields{Major: "History"}},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			assert.Equal(t, c.want, e.Extract(c.in))
		})
	}
}
