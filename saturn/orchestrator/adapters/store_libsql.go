package adapters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	ports "github.com/saturnpm/saturn/saturn/orchestrator/ports"
)

// LibSQLThreadStore persists thread snapshots in the orchestrator_threads
// table of the embedded libsql database.
type LibSQLThreadStore struct {
	db *sql.DB
}

// NewLibSQLThreadStore creates a thread store over db. The table is created
// by the store package's migrations.
func NewLibSQLThreadStore(db *sql.DB) *LibSQLThreadStore {
	return &LibSQLThreadStore{db: db}
}

func (s *LibSQLThreadStore) Load(ctx context.Context, threadID string) ([]byte, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT state_data FROM orchestrator_threads WHERE thread_id = ?", threadID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}
	return []byte(data), true, nil
}

func (s *LibSQLThreadStore) Save(ctx context.Context, threadID string, snapshot []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO orchestrator_threads (thread_id, state_data, updated_at) VALUES (?, ?, ?)",
		threadID, string(snapshot), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save thread %s: %w", threadID, err)
	}
	return nil
}

var _ ports.ThreadStore = (*LibSQLThreadStore)(nil)
