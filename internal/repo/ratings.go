package repo

import (
	"context"
	"database/sql"

	"missionboard/internal/domain"
)

const ratingColumns = `id,rater_id,mission_id,submission_id,score,comment,created_at,updated_at`

func scanRating(scan func(dest ...any) error) (domain.Rating, error) {
	var rt domain.Rating
	var comment sql.NullString
	err := scan(&rt.ID, &rt.RaterID, &rt.MissionID, &rt.SubmissionID, &rt.Score, &comment, &rt.CreatedAt, &rt.UpdatedAt)
	if err == sql.ErrNoRows {
		return rt, ErrNotFound
	}
	if err != nil {
		return rt, err
	}
	if comment.Valid {
		rt.Comment = &comment.String
	}
	return rt, nil
}

func (r Repo) UpsertRatingTx(ctx context.Context, tx *sql.Tx, rt domain.Rating) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO ratings(id,rater_id,mission_id,submission_id,score,comment,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT(rater_id,mission_id) DO UPDATE SET score=excluded.score, comment=excluded.comment, updated_at=excluded.updated_at`,
		rt.ID, rt.RaterID, rt.MissionID, rt.SubmissionID, rt.Score, nullableStringPtr(rt.Comment), rt.CreatedAt, rt.UpdatedAt)
	return err
}

func (r Repo) GetRatingTx(ctx context.Context, tx *sql.Tx, raterID, missionID string) (domain.Rating, error) {
	return scanRating(tx.QueryRowContext(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE rater_id=? AND mission_id=?`, raterID, missionID).Scan)
}

func (r Repo) ListRatingsForMission(ctx context.Context, missionID string) ([]domain.Rating, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE mission_id=? ORDER BY created_at DESC, id DESC`, missionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Rating
	for rows.Next() {
		rt, err := scanRating(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, rt)
	}
	return res, nil
}

// RatingAggregateForOwnerTx computes the average score and count over all
// ratings on the owner's missions, inside the caller's transaction.
func (r Repo) RatingAggregateForOwnerTx(ctx context.Context, tx *sql.Tx, ownerID string) (float64, int64, error) {
	var avg sql.NullFloat64
	var count int64
	err := tx.QueryRowContext(ctx, `SELECT AVG(rt.score), COUNT(*) FROM ratings rt
JOIN missions m ON m.id=rt.mission_id WHERE m.owner_id=?`, ownerID).Scan(&avg, &count)
	if err != nil {
		return 0, 0, err
	}
	if !avg.Valid {
		return 0, 0, nil
	}
	return avg.Float64, count, nil
}
