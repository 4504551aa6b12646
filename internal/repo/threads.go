package repo

import (
	"context"
	"database/sql"

	"missionboard/internal/domain"
)

const threadColumns = `id,application_id,submission_id,user_a,user_b,created_at`

func scanThread(scan func(dest ...any) error) (domain.Thread, error) {
	var t domain.Thread
	var applicationID, submissionID sql.NullString
	err := scan(&t.ID, &applicationID, &submissionID, &t.UserA, &t.UserB, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if applicationID.Valid {
		t.ApplicationID = &applicationID.String
	}
	if submissionID.Valid {
		t.SubmissionID = &submissionID.String
	}
	return t, nil
}

func (r Repo) InsertThreadTx(ctx context.Context, tx *sql.Tx, t domain.Thread) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO threads(id,application_id,submission_id,user_a,user_b,created_at) VALUES (?,?,?,?,?,?)`,
		t.ID, nullableStringPtr(t.ApplicationID), nullableStringPtr(t.SubmissionID), t.UserA, t.UserB, t.CreatedAt)
	return err
}

func (r Repo) GetThread(ctx context.Context, id string) (domain.Thread, error) {
	return scanThread(r.DB.QueryRowContext(ctx, `SELECT `+threadColumns+` FROM threads WHERE id=?`, id).Scan)
}

func (r Repo) GetThreadTx(ctx context.Context, tx *sql.Tx, id string) (domain.Thread, error) {
	return scanThread(tx.QueryRowContext(ctx, `SELECT `+threadColumns+` FROM threads WHERE id=?`, id).Scan)
}

// FindDirectThread looks for a free-standing thread between the pair, in either order.
func (r Repo) FindDirectThread(ctx context.Context, userA, userB string) (domain.Thread, error) {
	return scanThread(r.DB.QueryRowContext(ctx, `SELECT `+threadColumns+` FROM threads
WHERE application_id IS NULL AND submission_id IS NULL
AND ((user_a=? AND user_b=?) OR (user_a=? AND user_b=?))`, userA, userB, userB, userA).Scan)
}

func (r Repo) ListThreadsForUser(ctx context.Context, userID string, limit int) ([]domain.Thread, error) {
	query := `SELECT ` + threadColumns + ` FROM threads WHERE user_a=? OR user_b=? ORDER BY created_at DESC, id DESC`
	args := []any{userID, userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Thread
	for rows.Next() {
		t, err := scanThread(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

func (r Repo) InsertMessageTx(ctx context.Context, tx *sql.Tx, m domain.Message) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO messages(id,thread_id,sender_id,body,created_at) VALUES (?,?,?,?,?)`,
		m.ID, m.ThreadID, m.SenderID, m.Body, m.CreatedAt)
	return err
}

func (r Repo) ListMessages(ctx context.Context, threadID string, limit int) ([]domain.Message, error) {
	query := `SELECT id,thread_id,sender_id,body,created_at FROM messages WHERE thread_id=? ORDER BY created_at ASC, id ASC`
	args := []any{threadID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, nil
}
