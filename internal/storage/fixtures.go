package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	feedctx "ctxfeed/internal/context"
)

func encodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList(s string) ([]string, error) {
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, nil
	}
	return v, nil
}

func notFound(err error, kind string, key any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", kind, key, ErrNotFound)
	}
	return err
}

// SaveTask 插入或更新任务
func (db *DB) SaveTask(t *feedctx.Task) error { return saveTask(db, t) }

func saveTask(ex execer, t *feedctx.Task) error {
	if t.ID == "" {
		return errors.New("task id is required")
	}
	criteria, err := encodeList(t.AcceptanceCriteria)
	if err != nil {
		return err
	}
	files, err := encodeList(t.ModifiedFiles)
	if err != nil {
		return err
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}

	_, err = ex.Exec(`
		INSERT INTO tasks (id, title, description, priority, acceptance_criteria, modified_files, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			priority = excluded.priority,
			acceptance_criteria = excluded.acceptance_criteria,
			modified_files = excluded.modified_files,
			updated_at = excluded.updated_at
	`, t.ID, t.Title, t.Description, t.Priority, criteria, files, t.CreatedAt, now)
	return err
}

// GetTask 获取任务
func (db *DB) GetTask(id string) (*feedctx.Task, error) {
	var t feedctx.Task
	var criteria, files string
	err := db.QueryRow(`
		SELECT id, title, description, priority, acceptance_criteria, modified_files, created_at
		FROM tasks WHERE id = ?
	`, id).Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &criteria, &files, &t.CreatedAt)
	if err != nil {
		return nil, notFound(err, "task", id)
	}

	if t.AcceptanceCriteria, err = decodeList(criteria); err != nil {
		return nil, fmt.Errorf("task %s acceptance criteria: %w", id, err)
	}
	if t.ModifiedFiles, err = decodeList(files); err != nil {
		return nil, fmt.Errorf("task %s modified files: %w", id, err)
	}
	return &t, nil
}

// SaveTicket 插入或更新工单
func (db *DB) SaveTicket(t *feedctx.Ticket) error { return saveTicket(db, t) }

func saveTicket(ex execer, t *feedctx.Ticket) error {
	if t.Number <= 0 {
		return fmt.Errorf("ticket number must be positive, got %d", t.Number)
	}
	ids, err := encodeList(t.TaskIDs)
	if err != nil {
		return err
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}

	_, err = ex.Exec(`
		INSERT INTO tickets (number, title, body, task_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			task_ids = excluded.task_ids,
			updated_at = excluded.updated_at
	`, t.Number, t.Title, t.Body, ids, t.CreatedAt, now)
	return err
}

// GetTicket 获取工单
func (db *DB) GetTicket(number int) (*feedctx.Ticket, error) {
	var t feedctx.Ticket
	var ids string
	err := db.QueryRow(`
		SELECT number, title, body, task_ids, created_at FROM tickets WHERE number = ?
	`, number).Scan(&t.Number, &t.Title, &t.Body, &ids, &t.CreatedAt)
	if err != nil {
		return nil, notFound(err, "ticket", number)
	}
	if t.TaskIDs, err = decodeList(ids); err != nil {
		return nil, fmt.Errorf("ticket %d task ids: %w", number, err)
	}
	return &t, nil
}

// SavePlan 插入或更新计划
func (db *DB) SavePlan(p *feedctx.Plan) error { return savePlan(db, p) }

func savePlan(ex execer, p *feedctx.Plan) error {
	if p.Name == "" {
		return errors.New("plan name is required")
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}

	_, err := ex.Exec(`
		INSERT INTO plans (name, status, configuration, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			status = excluded.status,
			configuration = excluded.configuration,
			updated_at = excluded.updated_at
	`, p.Name, p.Status, p.Configuration, p.CreatedAt, now)
	return err
}

// GetPlan 获取计划
func (db *DB) GetPlan(name string) (*feedctx.Plan, error) {
	var p feedctx.Plan
	err := db.QueryRow(`
		SELECT name, status, configuration, created_at FROM plans WHERE name = ?
	`, name).Scan(&p.Name, &p.Status, &p.Configuration, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err, "plan", name)
	}
	return &p, nil
}
