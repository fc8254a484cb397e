package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a conversation id is unknown.
var ErrNotFound = errors.New("conversation not found")

// Message is one history entry. ToolCalls records dispatched invocations
// attached to the assistant turn that triggered them.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// BoundedSet is an ordered, case-insensitively deduplicated set of tags with
// a capacity bound. Re-adding an existing tag reinforces it (moves it to the
// front); when full, the least recently reinforced tag is evicted.
type BoundedSet struct {
	items []string
	cap   int
}

func NewBoundedSet(capacity int) *BoundedSet {
	if capacity <= 0 {
		capacity = 8
	}
	return &BoundedSet{cap: capacity}
}

// Add inserts or reinforces a tag. Empty strings are ignored.
func (s *BoundedSet) Add(tag string) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return
	}
	for i, existing := range s.items {
		if existing == tag {
			copy(s.items[1:i+1], s.items[:i])
			s.items[0] = tag
			return
		}
	}
	if len(s.items) >= s.cap {
		s.items = s.items[:s.cap-1]
	}
	s.items = append([]string{tag}, s.items...)
}

// Values returns tags most recently reinforced first.
func (s *BoundedSet) Values() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Recent returns up to n of the most recently reinforced tags.
func (s *BoundedSet) Recent(n int) []string {
	if n > len(s.items) {
		n = len(s.items)
	}
	out := make([]string, n)
	copy(out, s.items[:n])
	return out
}

func (s *BoundedSet) Len() int { return len(s.items) }

func (s *BoundedSet) Contains(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, existing := range s.items {
		if existing == tag {
			return true
		}
	}
	return false
}

func (s *BoundedSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.items)
}

func (s *BoundedSet) UnmarshalJSON(data []byte) error {
	if s.cap == 0 {
		s.cap = 8
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	if len(items) > s.cap {
		items = items[:s.cap]
	}
	s.items = items
	return nil
}

func (s *BoundedSet) clone() *BoundedSet {
	out := &BoundedSet{cap: s.cap, items: make([]string, len(s.items))}
	copy(out.items, s.items)
	return out
}

// UserPreferences accumulates what the user has revealed across turns.
// Genres and moods grow monotonically within their capacity bound; scalar
// fields are overwritten whenever extraction yields a new value.
type UserPreferences struct {
	Genres             *BoundedSet `json:"genres"`
	Moods              *BoundedSet `json:"moods"`
	TimePeriod         string      `json:"timePeriod,omitempty"`
	LanguagePreference string      `json:"languagePreference,omitempty"`
	DesiredRuntime     int         `json:"desiredRuntime,omitempty"`
	LikedMovies        []string    `json:"likedMovies,omitempty"`
	AvoidedMovies      []string    `json:"avoidedMovies,omitempty"`
}

func NewUserPreferences(capacity int) *UserPreferences {
	return &UserPreferences{
		Genres: NewBoundedSet(capacity),
		Moods:  NewBoundedSet(capacity),
	}
}

func (p *UserPreferences) clone() *UserPreferences {
	out := &UserPreferences{
		Genres:             p.Genres.clone(),
		Moods:              p.Moods.clone(),
		TimePeriod:         p.TimePeriod,
		LanguagePreference: p.LanguagePreference,
		DesiredRuntime:     p.DesiredRuntime,
		LikedMovies:        append([]string(nil), p.LikedMovies...),
		AvoidedMovies:      append([]string(nil), p.AvoidedMovies...),
	}
	return out
}

// ConversationState is the unit of persistence for one conversation.
type ConversationState struct {
	ID          string           `json:"id"`
	Messages    []Message        `json:"messages"`
	Preferences *UserPreferences `json:"preferences"`
	Language    string           `json:"language"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Clone produces a deep copy for copy-on-write turn processing: a turn
// mutates the clone and commits it back only after the response succeeds.
func (c *ConversationState) Clone() *ConversationState {
	out := &ConversationState{
		ID:          c.ID,
		Messages:    make([]Message, len(c.Messages)),
		Preferences: c.Preferences.clone(),
		Language:    c.Language,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	copy(out.Messages, c.Messages)
	return out
}

// AppendMessage appends and trims history to limit, dropping oldest first.
func (c *ConversationState) AppendMessage(msg Message, limit int) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	c.Messages = append(c.Messages, msg)
	if limit > 0 && len(c.Messages) > limit {
		c.Messages = c.Messages[len(c.Messages)-limit:]
	}
	c.UpdatedAt = msg.Timestamp
}

type session struct {
	mu    sync.Mutex
	state *ConversationState
}

// Manager owns conversation sessions. Access to one session is serialized;
// distinct sessions proceed concurrently. When a ConversationStore is
// configured the manager writes through on every commit and falls back to it
// on in-memory misses.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session

	store        ConversationStore
	historyLimit int
	prefCap      int
}

func NewManager(store ConversationStore, historyLimit, prefCap int) *Manager {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	if prefCap <= 0 {
		prefCap = 8
	}
	return &Manager{
		sessions:     make(map[string]*session),
		store:        store,
		historyLimit: historyLimit,
		prefCap:      prefCap,
	}
}

func (m *Manager) HistoryLimit() int { return m.historyLimit }

func (m *Manager) newState(id string) *ConversationState {
	now := time.Now().UTC()
	return &ConversationState{
		ID:          id,
		Preferences: NewUserPreferences(m.prefCap),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Create starts a fresh conversation and returns a snapshot of its state.
func (m *Manager) Create(ctx context.Context) (*ConversationState, error) {
	id := uuid.NewString()
	state := m.newState(id)

	m.mu.Lock()
	m.sessions[id] = &session{state: state}
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.SaveState(ctx, state); err != nil {
			return nil, err
		}
	}
	return state.Clone(), nil
}

func (m *Manager) lookup(ctx context.Context, id string) (*session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return sess, nil
	}
	if m.store == nil {
		return nil, ErrNotFound
	}
	loaded, err := m.store.LoadState(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok = m.sessions[id]; ok {
		return sess, nil
	}
	sess = &session{state: loaded}
	m.sessions[id] = sess
	return sess, nil
}

// Get returns a snapshot of the conversation state.
func (m *Manager) Get(ctx context.Context, id string) (*ConversationState, error) {
	sess, err := m.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state.Clone(), nil
}

// GetOrCreate resolves id, creating a new conversation when id is empty or
// unknown.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*ConversationState, error) {
	if id == "" {
		return m.Create(ctx)
	}
	state, err := m.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return m.Create(ctx)
	}
	return state, err
}

// Reset clears history and preferences but keeps the conversation id.
func (m *Manager) Reset(ctx context.Context, id string) (*ConversationState, error) {
	sess, err := m.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	fresh := m.newState(id)
	fresh.CreatedAt = sess.state.CreatedAt
	sess.state = fresh
	if m.store != nil {
		if err := m.store.SaveState(ctx, fresh); err != nil {
			return nil, err
		}
	}
	return fresh.Clone(), nil
}

// Delete removes a conversation. Deleting an unknown id reports false.
func (m *Manager) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	_, existed := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.store != nil {
		stored, err := m.store.DeleteState(ctx, id)
		if err != nil {
			return false, err
		}
		existed = existed || stored
	}
	return existed, nil
}

// Commit replaces the stored state for state.ID with the given snapshot.
// This is the write half of copy-on-write turn processing: nothing observed
// the intermediate mutations, so a failed turn leaves state untouched.
func (m *Manager) Commit(ctx context.Context, state *ConversationState) error {
	sess, err := m.lookup(ctx, state.ID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if limit := m.historyLimit; len(state.Messages) > limit {
		state.Messages = state.Messages[len(state.Messages)-limit:]
	}
	sess.state = state.Clone()
	if m.store != nil {
		return m.store.SaveState(ctx, sess.state)
	}
	return nil
}
