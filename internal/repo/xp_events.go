package repo

import (
	"context"
	"database/sql"

	"missionboard/internal/domain"
)

func scanXpEvent(scan func(dest ...any) error) (domain.XpEvent, error) {
	var e domain.XpEvent
	var missionID, space sql.NullString
	err := scan(&e.ID, &e.UserID, &missionID, &e.Kind, &e.Delta, &space, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	if missionID.Valid {
		e.MissionID = &missionID.String
	}
	if space.Valid {
		e.Space = &space.String
	}
	return e, nil
}

func (r Repo) ListXpEvents(ctx context.Context, userID string, limit int, cursor int64) ([]domain.XpEvent, error) {
	clauses := []string{"user_id=?"}
	args := []any{userID}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	query := `SELECT id,user_id,mission_id,kind,delta,space,created_at FROM xp_events ` + whereClause(clauses) + ` ORDER BY id DESC`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.XpEvent
	for rows.Next() {
		e, err := scanXpEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, nil
}

// SumXpTx folds the ledger into the three counters.
func (r Repo) SumXpTx(ctx context.Context, tx *sql.Tx, userID string) (global, pro, solid int64, err error) {
	err = tx.QueryRowContext(ctx, `SELECT
COALESCE(SUM(delta),0),
COALESCE(SUM(CASE WHEN space='pro' THEN delta ELSE 0 END),0),
COALESCE(SUM(CASE WHEN space='solidaire' THEN delta ELSE 0 END),0)
FROM xp_events WHERE user_id=?`, userID).Scan(&global, &pro, &solid)
	return global, pro, solid, err
}

// HasXpEventTx reports whether a ledger row of the given kind already exists
// for the user and mission pair.
func (r Repo) HasXpEventTx(ctx context.Context, tx *sql.Tx, userID, kind string, missionID *string) (bool, error) {
	var n int
	var err error
	if missionID != nil {
		err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM xp_events WHERE user_id=? AND kind=? AND mission_id=?`, userID, kind, *missionID).Scan(&n)
	} else {
		err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM xp_events WHERE user_id=? AND kind=? AND mission_id IS NULL`, userID, kind).Scan(&n)
	}
	return n > 0, err
}
