package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	feedctx "ctxfeed/internal/context"
)

// AppendHistory 追加会话历史，保持调用顺序
func (db *DB) AppendHistory(sessionID string, entries ...feedctx.HistoryEntry) error {
	return db.WithTx(func(tx *Tx) error {
		return appendHistory(tx, sessionID, entries)
	})
}

func appendHistory(ex execer, sessionID string, entries []feedctx.HistoryEntry) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}

	var seq int
	if err := ex.QueryRow(
		"SELECT COALESCE(MAX(seq), 0) FROM history WHERE session_id = ?", sessionID,
	).Scan(&seq); err != nil {
		return err
	}

	for _, e := range entries {
		seq++
		ts := e.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		if _, err := ex.Exec(`
			INSERT INTO history (id, session_id, seq, role, content, task_id, ticket_id, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), sessionID, seq, e.Role, e.Content, e.TaskID, e.TicketID, ts); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
	}
	return nil
}

// GetHistory 返回会话最近的 limit 条历史（按时间正序），limit <= 0 返回全部
func (db *DB) GetHistory(sessionID string, limit int) ([]feedctx.HistoryEntry, error) {
	query := `
		SELECT role, content, task_id, ticket_id, timestamp FROM history
		WHERE session_id = ? ORDER BY seq DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []feedctx.HistoryEntry
	for rows.Next() {
		var e feedctx.HistoryEntry
		if err := rows.Scan(&e.Role, &e.Content, &e.TaskID, &e.TicketID, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 反转为正序
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// SetSupplementary 设置会话的补充数据，value 以 JSON 存储
func (db *DB) SetSupplementary(sessionID, key string, value any) error {
	return setSupplementary(db, sessionID, key, value)
}

func setSupplementary(ex execer, sessionID, key string, value any) error {
	if sessionID == "" || key == "" {
		return errors.New("session id and key are required")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode supplementary %s: %w", key, err)
	}

	_, err = ex.Exec(`
		INSERT INTO supplementary (session_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, sessionID, key, string(data), time.Now())
	return err
}

// ListSupplementary 返回会话的全部补充数据
func (db *DB) ListSupplementary(sessionID string) (map[string]any, error) {
	rows, err := db.Query("SELECT key, value FROM supplementary WHERE session_id = ?", sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]any)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode supplementary %s: %w", key, err)
		}
		out[key] = v
	}
	return out, rows.Err()
}

// Sessions 返回有历史或补充数据的会话 ID
func (db *DB) Sessions() ([]string, error) {
	rows, err := db.Query(`
		SELECT session_id FROM history UNION SELECT session_id FROM supplementary
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, rows.Err()
}
