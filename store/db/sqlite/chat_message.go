package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/leanmind/store"
)

func (d *DB) AppendChatMessage(ctx context.Context, create *store.AppendChatMessage) (*store.ChatMessage, error) {
	m := create.Message

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	fields := []string{"uid", "session_id", "role", "content", "created_ts"}
	args := []any{m.UID, m.SessionID, m.Role, m.Content, m.CreatedTs}
	stmt := `INSERT INTO chat_message (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := tx.QueryRowContext(ctx, stmt, args...).Scan(&m.ID); err != nil {
		return nil, fmt.Errorf("failed to create chat_message: %w", err)
	}

	if create.Keep > 0 {
		stmt := `DELETE FROM chat_message WHERE session_id = ? AND id NOT IN (
			SELECT id FROM chat_message WHERE session_id = ? ORDER BY id DESC LIMIT ?)`
		if _, err := tx.ExecContext(ctx, stmt, m.SessionID, m.SessionID, create.Keep); err != nil {
			return nil, fmt.Errorf("failed to trim chat_message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit chat_message: %w", err)
	}
	return m, nil
}

func (d *DB) ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	query := `SELECT id, uid, session_id, role, content, created_ts FROM chat_message WHERE session_id = ? ORDER BY id DESC`
	args := []any{find.SessionID}
	if find.Limit != nil {
		query += ` LIMIT ?`
		args = append(args, *find.Limit)
	}
	query = `SELECT * FROM (` + query + `) AS recent ORDER BY id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat_messages: %w", err)
	}
	defer rows.Close()

	list := make([]*store.ChatMessage, 0)
	for rows.Next() {
		m := &store.ChatMessage{}
		if err := rows.Scan(&m.ID, &m.UID, &m.SessionID, &m.Role, &m.Content, &m.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan chat_message: %w", err)
		}
		list = append(list, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat_messages: %w", err)
	}

	return list, nil
}
