package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pantry-planner/internal/shared"
)

const timestampLayout = "2006-01-02 15:04:05"

// AssistantCall is one billed language-model completion.
type AssistantCall struct {
	Caller           string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
	At               time.Time
}

// Store keeps assistant usage in the execution_metrics table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Record(c AssistantCall) error {
	at := c.At
	if at.IsZero() {
		at = s.now()
	}

	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO execution_metrics (agent_name, model, prompt_tokens, completion_tokens, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.Caller, c.Model, c.PromptTokens, c.CompletionTokens, c.Latency.Milliseconds(), at.UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("failed to record assistant call: %w", err)
	}
	return nil
}

// RecordMeta stores a finished proxy call. Calls that consumed no tokens
// (mock answers) are skipped.
func (s *Store) RecordMeta(meta shared.CallMeta) error {
	if !meta.Usage.Billable() {
		return nil
	}
	return s.Record(AssistantCall{
		Caller:           meta.Caller,
		Model:            meta.Usage.Model,
		PromptTokens:     meta.Usage.PromptTokens,
		CompletionTokens: meta.Usage.CompletionTokens,
		Latency:          meta.Latency,
	})
}

// DailyUsage represents token totals for a single day.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalExecution  int
}

func (u DailyUsage) Tokens() int { return u.TotalPrompt + u.TotalCompletion }

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(days int) ([]DailyUsage, error) {
	since := s.now().UTC().AddDate(0, 0, -days).Format(timestampLayout)
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT date(timestamp) AS day, COUNT(*), SUM(prompt_tokens), SUM(completion_tokens)
		FROM execution_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var (
			u                  DailyUsage
			day                sql.NullString
			prompt, completion sql.NullInt64
		)
		if err := rows.Scan(&day, &u.TotalExecution, &prompt, &completion); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		u.Date = "Unknown"
		if day.Valid {
			u.Date = day.String
		}
		u.TotalPrompt = int(prompt.Int64)
		u.TotalCompletion = int(completion.Int64)
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days and
// reports how many were deleted.
func (s *Store) Cleanup(olderThanDays int) (int64, error) {
	threshold := s.now().UTC().AddDate(0, 0, -olderThanDays).Format(timestampLayout)
	res, err := s.db.ExecContext(context.Background(), `DELETE FROM execution_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up execution metrics: %w", err)
	}
	return res.RowsAffected()
}
