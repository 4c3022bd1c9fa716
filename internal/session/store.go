package session

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dormguide/internal/log"
)

// DefaultHistoryLimit is the number of turns kept per session.
const DefaultHistoryLimit = 10

// Profile is what we know about the person in a session.
type Profile struct {
	Name  string `json:"name,omitempty"`
	Major string `json:"major,omitempty"`
}

// Turn is one question and its reply.
type Turn struct {
	UserMessage string    `json:"user_message"`
	BotReply    string    `json:"bot_reply"`
	Timestamp   time.Time `json:"timestamp"`
}

type session struct {
	mu      sync.Mutex
	profile Profile
	history []Turn
}

// Store keeps sessions for the lifetime of the process.
// The map is guarded by one RWMutex and each session by its own mutex,
// so turns recorded concurrently for the same id are serialized.
type Store struct {
	mu           sync.RWMutex
	sessions     map[string]*session
	historyLimit int
	extractor    Extractor
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithHistoryLimit sets how many turns each session keeps.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithExtractor replaces the profile extraction strategy.
func WithExtractor(e Extractor) Option {
	return func(s *Store) {
		if e != nil {
			s.extractor = e
		}
	}
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions:     make(map[string]*session),
		historyLimit: DefaultHistoryLimit,
		extractor:    NewRegexExtractor(),
		now:          time.Now,
		logger:       log.NewModuleLogger("session", "store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate returns the session for id, creating it on first use.
// A blank id gets a freshly generated one.
func (s *Store) GetOrCreate(id string) (string, Profile) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	sess := s.get(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return id, sess.profile
}

// Profile returns the profile for id without creating the session.
func (s *Store) Profile(id string) (Profile, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return Profile{}, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.profile, true
}

// RecordTurn appends a turn, evicting the oldest once the limit is reached.
func (s *Store) RecordTurn(id, userMessage, botReply string) {
	sess := s.get(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.history = append(sess.history, Turn{
		UserMessage: userMessage,
		BotReply:    botReply,
		Timestamp:   s.now(),
	})
	if over := len(sess.history) - s.historyLimit; over > 0 {
		sess.history = append([]Turn(nil), sess.history[over:]...)
	}
}

// History returns a copy of the turns for id, oldest first.
func (s *Store) History(id string) []Turn {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return []Turn{}
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]Turn, len(sess.history))
	copy(out, sess.history)
	return out
}

// ExtractUserInfo updates the profile for id from message and returns it.
// Fields are only replaced when a rule matches.
func (s *Store) ExtractUserInfo(message, id string) Profile {
	f := s.extractor.Extract(message)
	sess := s.get(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if f.Name != "" && f.Name != sess.profile.Name {
		sess.profile.Name = f.Name
		s.logger.Debug("Captured name", "session_id", id)
	}
	if f.Major != "" && f.Major != sess.profile.Major {
		sess.profile.Major = f.Major
		s.logger.Debug("Captured major", "session_id", id, "major", f.Major)
	}
	return sess.profile
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) get(id string) *session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[id]; ok {
		return sess
	}
	sess = &session{}
	s.sessions[id] = sess
	return sess
}
