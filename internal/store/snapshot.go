package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/daybook/internal/model"
)

// LoadSnapshot reads the current snapshot tables.
func (s *SQLiteLog) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, title, notes, status, priority, category,
		       due_date, created_at, updated_at
		FROM snapshot_todos`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying snapshot todos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		todo, err := scanSnapshotTodo(rows)
		if err != nil {
			return nil, err
		}
		snap.Todos = append(snap.Todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading snapshot todos: %w", err)
	}

	logRows, err := s.db.QueryxContext(ctx, `
		SELECT date, remote_id, mood, energy, sleep_hours,
		       highlights, gratitude, notes
		FROM snapshot_logs`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying snapshot logs: %w", err)
	}
	defer logRows.Close()

	for logRows.Next() {
		var (
			log        model.DailyLog
			highlights string
			gratitude  string
		)
		err := logRows.Scan(
			&log.Date, &log.RemoteID, &log.Mood, &log.Energy,
			&log.SleepHours, &highlights, &gratitude, &log.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot log row: %w", err)
		}
		log.Highlights = model.SplitLines(highlights)
		log.Gratitude = model.SplitLines(gratitude)
		snap.Logs = append(snap.Logs, log)
	}
	if err := logRows.Err(); err != nil {
		return nil, fmt.Errorf("reading snapshot logs: %w", err)
	}

	return snap, nil
}

// SaveSnapshot replaces both snapshot tables with the given state in a
// single transaction: upsert everything, then prune rows whose key is
// absent from the input. Partial application is never observable; on
// any error the transaction rolls back whole.
func (s *SQLiteLog) SaveSnapshot(
	ctx context.Context,
	todos []model.Todo,
	logs []model.DailyLog,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	const todoQuery = `
		INSERT OR REPLACE INTO snapshot_todos (
			id, title, notes, status, priority, category,
			due_date, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, todoQuery)
	if err != nil {
		return fmt.Errorf("preparing snapshot todo upsert: %w", err)
	}
	defer stmt.Close()

	todoIDs := make([]string, 0, len(todos))
	for _, t := range todos {
		_, err = stmt.ExecContext(ctx,
			t.ID, t.Title, t.Notes, t.Status, t.Priority, t.Category,
			t.DueDate, t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting snapshot todo %s: %w", t.ID, err)
		}
		todoIDs = append(todoIDs, t.ID)
	}

	if err := pruneAbsent(ctx, tx, "snapshot_todos", "id", todoIDs); err != nil {
		return err
	}

	const logQuery = `
		INSERT OR REPLACE INTO snapshot_logs (
			date, remote_id, mood, energy, sleep_hours,
			highlights, gratitude, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	logStmt, err := tx.PreparexContext(ctx, logQuery)
	if err != nil {
		return fmt.Errorf("preparing snapshot log upsert: %w", err)
	}
	defer logStmt.Close()

	logDates := make([]string, 0, len(logs))
	for _, l := range logs {
		_, err = logStmt.ExecContext(ctx,
			l.Date, l.RemoteID, l.Mood, l.Energy, l.SleepHours,
			model.JoinLines(l.Highlights), model.JoinLines(l.Gratitude), l.Notes,
		)
		if err != nil {
			return fmt.Errorf("upserting snapshot log %s: %w", l.Date, err)
		}
		logDates = append(logDates, l.Date)
	}

	if err := pruneAbsent(ctx, tx, "snapshot_logs", "date", logDates); err != nil {
		return err
	}

	return tx.Commit()
}

// pruneAbsent deletes every row of table whose key column is not in
// keys. An empty key set clears the table: a snapshot of nothing means
// the remote holds nothing.
func pruneAbsent(
	ctx context.Context,
	tx *sqlx.Tx,
	table, column string,
	keys []string,
) error {
	if len(keys) == 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
		return nil
	}

	query, args, err := sqlx.In(
		fmt.Sprintf("DELETE FROM %s WHERE %s NOT IN (?)", table, column), keys,
	)
	if err != nil {
		return fmt.Errorf("building %s prune query: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("pruning %s: %w", table, err)
	}
	return nil
}

// scanSnapshotTodo scans a todo row from the snapshot table.
func scanSnapshotTodo(rows *sqlx.Rows) (model.Todo, error) {
	var (
		todo      model.Todo
		dueDate   *time.Time
		createdAt time.Time
		updatedAt time.Time
	)

	err := rows.Scan(
		&todo.ID, &todo.Title, &todo.Notes, &todo.Status,
		&todo.Priority, &todo.Category,
		&dueDate, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.Todo{}, fmt.Errorf("scanning snapshot todo row: %w", err)
	}

	todo.DueDate = dueDate
	todo.CreatedAt = createdAt
	todo.UpdatedAt = updatedAt

	return todo, nil
}
