package adapters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/cinefind/cinefind/reco/engine"
)

// ConversationStore persists conversation state as JSON rows in the libsql
// database, so conversations survive restarts.
type ConversationStore struct {
	db *sql.DB
}

func NewConversationStore(db *sql.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

func (s *ConversationStore) SaveState(ctx context.Context, state *engine.ConversationState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal conversation %s: %w", state.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, state_json, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET state_json = excluded.state_json, updated_at = excluded.updated_at`,
		state.ID, string(payload), state.CreatedAt.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save conversation %s: %w", state.ID, err)
	}
	return nil
}

func (s *ConversationStore) LoadState(ctx context.Context, id string) (*engine.ConversationState, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT state_json FROM conversations WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", id, err)
	}
	var state engine.ConversationState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", id, err)
	}
	return &state, nil
}

func (s *ConversationStore) DeleteState(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete conversation %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ engine.ConversationStore = (*ConversationStore)(nil)
