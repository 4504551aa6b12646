package repo

import (
	"context"
	"database/sql"

	"missionboard/internal/domain"
)

// GetFollowTx returns the pair's row whether active or soft-deleted.
func (r Repo) GetFollowTx(ctx context.Context, tx *sql.Tx, followerID, targetID string) (domain.Follow, error) {
	var f domain.Follow
	var deletedAt sql.NullString
	err := tx.QueryRowContext(ctx, `SELECT follower_id,target_id,created_at,deleted_at FROM follows WHERE follower_id=? AND target_id=?`, followerID, targetID).
		Scan(&f.FollowerID, &f.TargetID, &f.CreatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return f, ErrNotFound
	}
	if err != nil {
		return f, err
	}
	if deletedAt.Valid {
		f.DeletedAt = &deletedAt.String
	}
	return f, nil
}

func (r Repo) InsertFollowTx(ctx context.Context, tx *sql.Tx, f domain.Follow) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO follows(follower_id,target_id,created_at,deleted_at) VALUES (?,?,?,NULL)`,
		f.FollowerID, f.TargetID, f.CreatedAt)
	return err
}

func (r Repo) ReviveFollowTx(ctx context.Context, tx *sql.Tx, followerID, targetID, createdAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE follows SET deleted_at=NULL, created_at=? WHERE follower_id=? AND target_id=?`,
		createdAt, followerID, targetID)
	return err
}

func (r Repo) SoftDeleteFollowTx(ctx context.Context, tx *sql.Tx, followerID, targetID, deletedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE follows SET deleted_at=? WHERE follower_id=? AND target_id=? AND deleted_at IS NULL`,
		deletedAt, followerID, targetID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountActiveFollowsTx(ctx context.Context, tx *sql.Tx, followerID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM follows WHERE follower_id=? AND deleted_at IS NULL`, followerID).Scan(&n)
	return n, err
}

func (r Repo) ListFollowing(ctx context.Context, followerID string) ([]domain.Follow, error) {
	return r.listFollows(ctx, `SELECT follower_id,target_id,created_at,deleted_at FROM follows WHERE follower_id=? AND deleted_at IS NULL ORDER BY created_at DESC`, followerID)
}

func (r Repo) ListFollowers(ctx context.Context, targetID string) ([]domain.Follow, error) {
	return r.listFollows(ctx, `SELECT follower_id,target_id,created_at,deleted_at FROM follows WHERE target_id=? AND deleted_at IS NULL ORDER BY created_at DESC`, targetID)
}

func (r Repo) listFollows(ctx context.Context, query string, arg any) ([]domain.Follow, error) {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Follow
	for rows.Next() {
		var f domain.Follow
		var deletedAt sql.NullString
		if err := rows.Scan(&f.FollowerID, &f.TargetID, &f.CreatedAt, &deletedAt); err != nil {
			return nil, err
		}
		if deletedAt.Valid {
			f.DeletedAt = &deletedAt.String
		}
		res = append(res, f)
	}
	return res, nil
}
