package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/azizbekdev/funnel-gate-bot/types"
)

func (s *PostgresStore) GetActiveFunnelByKey(key string) (*types.Funnel, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var f types.Funnel
	err := s.pool.QueryRow(ctx, `
SELECT id, name, key, description, is_active, created_at, updated_at
FROM funnels
WHERE key = $1 AND is_active
`, strings.TrimSpace(key)).Scan(&f.ID, &f.Name, &f.Key, &f.Description, &f.IsActive, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &f, nil
}

func (s *PostgresStore) GetFunnelSteps(funnelID int64) ([]types.FunnelStep, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := s.pool.Query(ctx, `
SELECT id, funnel_id, step_number, content_kind, content, caption, button_text
FROM funnel_steps
WHERE funnel_id = $1
ORDER BY step_number
`, funnelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []types.FunnelStep
	for rows.Next() {
		var st types.FunnelStep
		if err := rows.Scan(&st.ID, &st.FunnelID, &st.StepNumber, &st.Kind, &st.Content, &st.Caption, &st.ButtonText); err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

func scanRun(row interface {
	Scan(dest ...any) error
}) (*types.FunnelRun, error) {
	var run types.FunnelRun
	var rawStats []byte
	err := row.Scan(&run.ID, &run.UserID, &run.FunnelID, &run.CurrentStep, &run.Completed, &run.StartedAt, &run.CompletedAt, &rawStats)
	if err != nil {
		return nil, err
	}
	run.StepStats = types.StepStats{}
	if len(rawStats) > 0 {
		if err := json.Unmarshal(rawStats, &run.StepStats); err != nil {
			return nil, err
		}
	}
	return &run, nil
}

const runColumns = `id, user_id, funnel_id, current_step, completed, started_at, completed_at, step_stats`

// GetOrCreateRun relies on the partial unique index on
// (user_id, funnel_id) WHERE NOT completed, so a concurrent start never
// produces a second incomplete run.
func (s *PostgresStore) GetOrCreateRun(userID, funnelID int64) (*types.FunnelRun, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
INSERT INTO funnel_runs (user_id, funnel_id, step_stats)
VALUES ($1, $2, '{}'::jsonb)
ON CONFLICT (user_id, funnel_id) WHERE NOT completed DO NOTHING
`, userID, funnelID)
	if err != nil {
		return nil, err
	}

	run, err := scanRun(tx.QueryRow(ctx, `
SELECT `+runColumns+`
FROM funnel_runs
WHERE user_id = $1 AND funnel_id = $2 AND NOT completed
`, userID, funnelID))
	if err != nil {
		return nil, notFoundOr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *PostgresStore) GetIncompleteRun(userID int64) (*types.FunnelRun, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	run, err := scanRun(s.pool.QueryRow(ctx, `
SELECT `+runColumns+`
FROM funnel_runs
WHERE user_id = $1 AND NOT completed
ORDER BY started_at DESC
LIMIT 1
`, userID))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return run, nil
}

// UpdateRunProgress writes the whole step map back so the stored value is
// always the new copy, never a field patch of the old one.
func (s *PostgresStore) UpdateRunProgress(runID int64, currentStep int, stats types.StepStats) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE funnel_runs
SET current_step = $2, step_stats = $3
WHERE id = $1
`, runID, currentStep, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CompleteRun(runID int64, completedAt time.Time, stats types.StepStats) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE funnel_runs
SET completed = TRUE, completed_at = $2, step_stats = $3
WHERE id = $1 AND NOT completed
`, runID, completedAt, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateFunnel(funnel *types.Funnel, steps []types.DraftStep) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var funnelID int64
	err = tx.QueryRow(ctx, `
INSERT INTO funnels (name, key, description, is_active)
VALUES ($1, $2, $3, TRUE)
RETURNING id
`, strings.TrimSpace(funnel.Name), strings.TrimSpace(funnel.Key), strings.TrimSpace(funnel.Description)).Scan(&funnelID)
	if err != nil {
		return 0, err
	}

	for i, st := range steps {
		_, err = tx.Exec(ctx, `
INSERT INTO funnel_steps (funnel_id, step_number, content_kind, content, caption, button_text)
VALUES ($1, $2, $3, $4, $5, $6)
`, funnelID, i+1, string(st.Kind), st.Content, st.Caption, st.ButtonText)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return funnelID, nil
}

func (s *PostgresStore) ListFunnels() ([]types.Funnel, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := s.pool.Query(ctx, `
SELECT id, name, key, description, is_active, created_at, updated_at
FROM funnels
ORDER BY id
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var funnels []types.Funnel
	for rows.Next() {
		var f types.Funnel
		if err := rows.Scan(&f.ID, &f.Name, &f.Key, &f.Description, &f.IsActive, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		funnels = append(funnels, f)
	}
	return funnels, rows.Err()
}

func (s *PostgresStore) SetFunnelActive(funnelID int64, active bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE funnels
SET is_active = $2, updated_at = NOW()
WHERE id = $1
`, funnelID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// DeleteFunnel cascades to steps and runs.
func (s *PostgresStore) DeleteFunnel(funnelID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `DELETE FROM funnels WHERE id = $1`, funnelID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}
