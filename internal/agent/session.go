package agent

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/socialsync/internal/observe"
	"github.com/MrWong99/socialsync/pkg/provider/llm"
)

// Session holds the conversational state for one session identifier: the
// transcript, the set of event fingerprints already shown, and the log of
// profile questions already asked.
//
// All fields are guarded by mu. A turn locks the session for its entire
// duration, so concurrent requests with the same session identifier are
// serialized while distinct sessions proceed in parallel.
type Session struct {
	mu sync.Mutex

	transcript *Transcript

	// seenEvents maps raw retrieved block text to presence. The raw text is
	// the fingerprint: two blocks are the same event iff they are
	// character-identical. The set only grows within a session.
	seenEvents map[string]struct{}

	// askedQuestions preserves insertion order for the profile questions
	// already posed; askedSet provides O(1) membership.
	askedQuestions []string
	askedSet       map[string]struct{}

	// retryCount counts consecutive searches that surfaced nothing new.
	// A successful batch resets it.
	retryCount int

	createdAt time.Time
}

func newSession(persona, profileContext string) *Session {
	s := &Session{
		transcript: NewTranscript(persona),
		seenEvents: make(map[string]struct{}),
		askedSet:   make(map[string]struct{}),
		createdAt:  time.Now(),
	}
	// Stored taste context rides as one extra system message right after
	// the persona, installed exactly once at creation.
	if profileContext != "" {
		s.transcript.Append(llm.RoleSystem, profileContext)
	}
	return s
}

// markSeen records a fingerprint. Reports whether it was newly added.
func (s *Session) markSeen(fingerprint string) bool {
	if _, ok := s.seenEvents[fingerprint]; ok {
		return false
	}
	s.seenEvents[fingerprint] = struct{}{}
	return true
}

// seen reports whether a fingerprint was already shown this session.
func (s *Session) seen(fingerprint string) bool {
	_, ok := s.seenEvents[fingerprint]
	return ok
}

// markAsked records a profile question. Reports whether it was newly added.
func (s *Session) markAsked(question string) bool {
	if _, ok := s.askedSet[question]; ok {
		return false
	}
	s.askedSet[question] = struct{}{}
	s.askedQuestions = append(s.askedQuestions, question)
	return true
}

// Registry is the process-wide session map. Sessions live in memory only; a
// restart loses in-flight conversations.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	persona  string
	metrics  *observe.Metrics
}

// NewRegistry creates an empty registry. persona seeds every new session's
// transcript; when empty, the built-in persona with the current date is
// used. metrics may be nil.
func NewRegistry(persona string, metrics *observe.Metrics) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		persona:  persona,
		metrics:  metrics,
	}
}

// Get returns the session for id, or false when none exists.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// GetOrCreate returns the session for id, creating it when absent. On
// creation only, profileContext (when non-empty) is injected as a second
// system message; for an existing session the argument is ignored.
func (r *Registry) GetOrCreate(ctx context.Context, id, profileContext string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s
	}

	persona := r.persona
	if persona == "" {
		persona = basePersona(time.Now())
	}
	s := newSession(persona, profileContext)
	r.sessions[id] = s
	if r.metrics != nil {
		r.metrics.ActiveSessions.Add(ctx, 1)
	}
	return s
}

// Reset discards the session for id, losing its transcript and dedup
// history. Resetting an unknown id is a no-op success and creates nothing.
func (r *Registry) Reset(ctx context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return
	}
	delete(r.sessions, id)
	if r.metrics != nil {
		r.metrics.ActiveSessions.Add(ctx, -1)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
