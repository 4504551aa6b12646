package repo

import (
	"context"
	"database/sql"

	"missionboard/internal/domain"
)

const feedPostColumns = `id,author_id,mission_id,submission_id,published,editable_until,like_count,comment_count,created_at`

func scanFeedPost(scan func(dest ...any) error) (domain.FeedPost, error) {
	var p domain.FeedPost
	err := scan(&p.ID, &p.AuthorID, &p.MissionID, &p.SubmissionID, &p.Published, &p.EditableUntil, &p.LikeCount, &p.CommentCount, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) InsertFeedPostTx(ctx context.Context, tx *sql.Tx, p domain.FeedPost) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO feed_posts(id,author_id,mission_id,submission_id,published,editable_until,created_at) VALUES (?,?,?,?,?,?,?)`,
		p.ID, p.AuthorID, p.MissionID, p.SubmissionID, p.Published, p.EditableUntil, p.CreatedAt)
	return err
}

func (r Repo) GetFeedPost(ctx context.Context, id string) (domain.FeedPost, error) {
	return scanFeedPost(r.DB.QueryRowContext(ctx, `SELECT `+feedPostColumns+` FROM feed_posts WHERE id=?`, id).Scan)
}

func (r Repo) GetFeedPostBySubmissionTx(ctx context.Context, tx *sql.Tx, submissionID string) (domain.FeedPost, error) {
	return scanFeedPost(tx.QueryRowContext(ctx, `SELECT `+feedPostColumns+` FROM feed_posts WHERE submission_id=?`, submissionID).Scan)
}

func (r Repo) SetFeedPostPublishedTx(ctx context.Context, tx *sql.Tx, id string, published bool) error {
	res, err := tx.ExecContext(ctx, `UPDATE feed_posts SET published=? WHERE id=?`, published, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteFeedPostTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM feed_posts WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UnpublishFeedPostsForMissionTx hides every post tied to the mission's
// submissions. Used when a mission is archived.
func (r Repo) UnpublishFeedPostsForMissionTx(ctx context.Context, tx *sql.Tx, missionID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE feed_posts SET published=0 WHERE mission_id=? AND published=1`, missionID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// InsertFeedLikeTx records a like. The (post,user) primary key makes a second
// like from the same user a constraint error; callers check first.
func (r Repo) InsertFeedLikeTx(ctx context.Context, tx *sql.Tx, postID, userID, createdAt string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO feed_likes(post_id,user_id,created_at) VALUES (?,?,?)`, postID, userID, createdAt)
	return err
}

func (r Repo) HasFeedLikeTx(ctx context.Context, tx *sql.Tx, postID, userID string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM feed_likes WHERE post_id=? AND user_id=?`, postID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (r Repo) DeleteFeedLikeTx(ctx context.Context, tx *sql.Tx, postID, userID string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM feed_likes WHERE post_id=? AND user_id=?`, postID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) AdjustFeedLikeCountTx(ctx context.Context, tx *sql.Tx, postID string, delta int) error {
	_, err := tx.ExecContext(ctx, `UPDATE feed_posts SET like_count=like_count+? WHERE id=?`, delta, postID)
	return err
}

func (r Repo) InsertFeedCommentTx(ctx context.Context, tx *sql.Tx, c domain.FeedComment) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO feed_comments(id,post_id,user_id,body,created_at) VALUES (?,?,?,?,?)`,
		c.ID, c.PostID, c.UserID, c.Body, c.CreatedAt); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `UPDATE feed_posts SET comment_count=comment_count+1 WHERE id=?`, c.PostID)
	return err
}

func (r Repo) ListFeedComments(ctx context.Context, postID string, limit int) ([]domain.FeedComment, error) {
	query := `SELECT id,post_id,user_id,body,created_at FROM feed_comments WHERE post_id=? ORDER BY created_at ASC, id ASC`
	args := []any{postID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.FeedComment
	for rows.Next() {
		var c domain.FeedComment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

type FeedFilters struct {
	AuthorID      string
	PublishedOnly bool
	Limit         int
	CursorCreated string
	CursorID      string
}

func (r Repo) ListFeedPosts(ctx context.Context, f FeedFilters) ([]domain.FeedPost, error) {
	var clauses []string
	var args []any
	if f.AuthorID != "" {
		clauses = append(clauses, "author_id=?")
		args = append(args, f.AuthorID)
	}
	if f.PublishedOnly {
		clauses = append(clauses, "published=1")
	}
	if f.CursorCreated != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreated, f.CursorCreated, f.CursorID)
	}
	query := `SELECT ` + feedPostColumns + ` FROM feed_posts ` + whereClause(clauses) + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.FeedPost
	for rows.Next() {
		p, err := scanFeedPost(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}
