package repository

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/urbanquest/quest-progression/pkg/domain"
	"github.com/urbanquest/quest-progression/pkg/errors"

	"github.com/lib/pq" // PostgreSQL driver and array support
)

// Schema creates the tables used by PostgresProgressRepository.
// Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS quest_progress (
	id VARCHAR(64) PRIMARY KEY,
	player_id VARCHAR(100) NOT NULL,
	quest_id VARCHAR(100) NOT NULL,
	attempt INT NOT NULL DEFAULT 1,
	status VARCHAR(20) NOT NULL,
	current_stop_order INT NOT NULL,
	has_arrived BOOLEAN NOT NULL DEFAULT false,
	current_stop_solved BOOLEAN NOT NULL DEFAULT false,
	accumulated_points INT NOT NULL DEFAULT 0,
	started_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	version INT NOT NULL DEFAULT 1,
	CONSTRAINT check_status CHECK (status IN ('not_started', 'in_progress', 'completed')),
	CONSTRAINT check_attempt_positive CHECK (attempt >= 1),
	CONSTRAINT check_points_non_negative CHECK (accumulated_points >= 0),
	CONSTRAINT check_completed_at CHECK ((status = 'completed') = (completed_at IS NOT NULL)),
	CONSTRAINT check_completed_not_arrived CHECK (status <> 'completed' OR has_arrived = false)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_quest_progress_one_in_progress
	ON quest_progress(player_id, quest_id) WHERE status = 'in_progress';

CREATE INDEX IF NOT EXISTS idx_quest_progress_player
	ON quest_progress(player_id, started_at);

CREATE TABLE IF NOT EXISTS stop_completions (
	player_id VARCHAR(100) NOT NULL,
	quest_id VARCHAR(100) NOT NULL,
	stop_order INT NOT NULL,
	points_awarded INT NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (player_id, quest_id, stop_order),
	CONSTRAINT check_stop_order_positive CHECK (stop_order >= 1),
	CONSTRAINT check_points_awarded_non_negative CHECK (points_awarded >= 0)
);
`

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const progressColumns = `
	id, player_id, quest_id, attempt, status, current_stop_order,
	has_arrived, current_stop_solved, accumulated_points,
	started_at, completed_at, updated_at, version`

// PostgresProgressRepository implements ProgressRepository using PostgreSQL.
type PostgresProgressRepository struct {
	db *sql.DB
}

// NewPostgresProgressRepository creates a new PostgreSQL-backed progress repository.
func NewPostgresProgressRepository(db *sql.DB) *PostgresProgressRepository {
	return &PostgresProgressRepository{
		db: db,
	}
}

// Load retrieves the player's current playthrough of a quest.
func (r *PostgresProgressRepository) Load(ctx context.Context, playerID, questID string) (*domain.QuestProgress, error) {
	query := `SELECT` + progressColumns + `
		FROM quest_progress
		WHERE player_id = $1 AND quest_id = $2
		ORDER BY (status = 'in_progress') DESC, attempt DESC, started_at DESC, updated_at DESC, id DESC
		LIMIT 1
	`

	progress, err := scanProgress(r.db.QueryRowContext(ctx, query, playerID, questID))
	if err == sql.ErrNoRows {
		return nil, nil // Quest never started
	}
	if err != nil {
		return nil, errors.ErrDatabaseError("load progress", err)
	}

	return progress, nil
}

// Save inserts or updates a progress snapshot with an optimistic version check.
func (r *PostgresProgressRepository) Save(ctx context.Context, progress *domain.QuestProgress) error {
	if progress.Version == 0 {
		return r.insert(ctx, progress)
	}
	return r.update(ctx, progress)
}

func (r *PostgresProgressRepository) insert(ctx context.Context, progress *domain.QuestProgress) error {
	if progress.Attempt < 1 {
		progress.Attempt = 1
	}

	query := `
		INSERT INTO quest_progress (` + progressColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		progress.ID,
		progress.PlayerID,
		progress.QuestID,
		progress.Attempt,
		progress.Status,
		progress.CurrentStopOrder,
		progress.HasArrived,
		progress.CurrentStopSolved,
		progress.AccumulatedPoints,
		progress.StartedAt,
		progress.CompletedAt,
		progress.UpdatedAt,
	)

	if isUniqueViolation(err) {
		// Another request already started this quest for the player
		return errors.ErrConcurrentModification(progress.ID, 0)
	}
	if err != nil {
		return errors.ErrDatabaseError("insert progress", err)
	}

	progress.Version = 1
	return nil
}

func (r *PostgresProgressRepository) update(ctx context.Context, progress *domain.QuestProgress) error {
	query := `
		UPDATE quest_progress SET
			status = $3,
			current_stop_order = $4,
			has_arrived = $5,
			current_stop_solved = $6,
			accumulated_points = $7,
			completed_at = $8,
			updated_at = $9,
			version = version + 1
		WHERE id = $1 AND version = $2 AND status <> 'completed'
	`

	result, err := r.db.ExecContext(ctx, query,
		progress.ID,
		progress.Version,
		progress.Status,
		progress.CurrentStopOrder,
		progress.HasArrived,
		progress.CurrentStopSolved,
		progress.AccumulatedPoints,
		progress.CompletedAt,
		progress.UpdatedAt,
	)
	if err != nil {
		return errors.ErrDatabaseError("update progress", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.ErrDatabaseError("check rows affected", err)
	}
	if rowsAffected == 0 {
		return errors.ErrConcurrentModification(progress.ID, progress.Version)
	}

	progress.Version++
	return nil
}

// GetPlayerProgress retrieves every playthrough of a player.
func (r *PostgresProgressRepository) GetPlayerProgress(ctx context.Context, playerID string) ([]*domain.QuestProgress, error) {
	query := `SELECT` + progressColumns + `
		FROM quest_progress
		WHERE player_id = $1
		ORDER BY started_at ASC, attempt ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, errors.ErrDatabaseError("get player progress", err)
	}
	defer func() { _ = rows.Close() }()

	return scanProgressRows(rows)
}

// GetProgressByQuestIDs retrieves a player's playthroughs for a set of quests.
func (r *PostgresProgressRepository) GetProgressByQuestIDs(ctx context.Context, playerID string, questIDs []string) ([]*domain.QuestProgress, error) {
	if len(questIDs) == 0 {
		return []*domain.QuestProgress{}, nil
	}

	query := `SELECT` + progressColumns + `
		FROM quest_progress
		WHERE player_id = $1 AND quest_id = ANY($2)
		ORDER BY started_at ASC, attempt ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, playerID, pq.Array(questIDs))
	if err != nil {
		return nil, errors.ErrDatabaseError("get progress by quest IDs", err)
	}
	defer func() { _ = rows.Close() }()

	return scanProgressRows(rows)
}

// RecordStopCompletion inserts a completion fact, ignoring duplicates.
func (r *PostgresProgressRepository) RecordStopCompletion(ctx context.Context, completion *domain.StopCompletion) (bool, error) {
	query := `
		INSERT INTO stop_completions (
			player_id, quest_id, stop_order, points_awarded, completed_at
		) VALUES (
			$1, $2, $3, $4, $5
		)
		ON CONFLICT (player_id, quest_id, stop_order) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		completion.PlayerID,
		completion.QuestID,
		completion.StopOrder,
		completion.PointsAwarded,
		completion.CompletedAt,
	)
	if err != nil {
		return false, errors.ErrDatabaseError("record stop completion", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, errors.ErrDatabaseError("check rows affected", err)
	}

	return rowsAffected == 1, nil
}

// GetStopCompletions retrieves recorded completions for a player's quest.
func (r *PostgresProgressRepository) GetStopCompletions(ctx context.Context, playerID, questID string) ([]*domain.StopCompletion, error) {
	query := `
		SELECT player_id, quest_id, stop_order, points_awarded, completed_at
		FROM stop_completions
		WHERE player_id = $1 AND quest_id = $2
		ORDER BY stop_order ASC
	`

	rows, err := r.db.QueryContext(ctx, query, playerID, questID)
	if err != nil {
		return nil, errors.ErrDatabaseError("get stop completions", err)
	}
	defer func() { _ = rows.Close() }()

	results := []*domain.StopCompletion{}
	for rows.Next() {
		var c domain.StopCompletion
		if err := rows.Scan(&c.PlayerID, &c.QuestID, &c.StopOrder, &c.PointsAwarded, &c.CompletedAt); err != nil {
			return nil, errors.ErrDatabaseError("scan stop completion row", err)
		}
		c.CompletedAt = c.CompletedAt.UTC()
		results = append(results, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.ErrDatabaseError("iterate stop completion rows", err)
	}

	return results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanProgress scans one row selected with progressColumns.
func scanProgress(row rowScanner) (*domain.QuestProgress, error) {
	var (
		progress    domain.QuestProgress
		completedAt sql.NullTime
	)

	err := row.Scan(
		&progress.ID,
		&progress.PlayerID,
		&progress.QuestID,
		&progress.Attempt,
		&progress.Status,
		&progress.CurrentStopOrder,
		&progress.HasArrived,
		&progress.CurrentStopSolved,
		&progress.AccumulatedPoints,
		&progress.StartedAt,
		&completedAt,
		&progress.UpdatedAt,
		&progress.Version,
	)
	if err != nil {
		return nil, err
	}

	progress.StartedAt = progress.StartedAt.UTC()
	progress.UpdatedAt = progress.UpdatedAt.UTC()
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		progress.CompletedAt = &t
	}

	return &progress, nil
}

// scanProgressRows is a helper to scan multiple progress rows.
func scanProgressRows(rows *sql.Rows) ([]*domain.QuestProgress, error) {
	results := []*domain.QuestProgress{}

	for rows.Next() {
		progress, err := scanProgress(rows)
		if err != nil {
			return nil, errors.ErrDatabaseError("scan progress row", err)
		}
		results = append(results, progress)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.ErrDatabaseError("iterate progress rows", err)
	}

	return results, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
