package repo

import (
	"context"
	"database/sql"

	"missionboard/internal/domain"
)

const applicationColumns = `id,mission_id,user_id,status,thread_id,decided_at,created_at`

func scanApplication(scan func(dest ...any) error) (domain.Application, error) {
	var a domain.Application
	var decidedAt sql.NullString
	err := scan(&a.ID, &a.MissionID, &a.UserID, &a.Status, &a.ThreadID, &decidedAt, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if decidedAt.Valid {
		a.DecidedAt = &decidedAt.String
	}
	return a, nil
}

func (r Repo) InsertApplicationTx(ctx context.Context, tx *sql.Tx, a domain.Application) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO applications(id,mission_id,user_id,status,thread_id,decided_at,created_at) VALUES (?,?,?,?,?,?,?)`,
		a.ID, a.MissionID, a.UserID, a.Status, a.ThreadID, nullableStringPtr(a.DecidedAt), a.CreatedAt)
	return err
}

func (r Repo) GetApplication(ctx context.Context, id string) (domain.Application, error) {
	return scanApplication(r.DB.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id=?`, id).Scan)
}

func (r Repo) GetApplicationTx(ctx context.Context, tx *sql.Tx, id string) (domain.Application, error) {
	return scanApplication(tx.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id=?`, id).Scan)
}

func (r Repo) GetApplicationByMissionUserTx(ctx context.Context, tx *sql.Tx, missionID, userID string) (domain.Application, error) {
	return scanApplication(tx.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE mission_id=? AND user_id=?`, missionID, userID).Scan)
}

type ApplicationFilters struct {
	MissionID string
	UserID    string
	Status    string
	Limit     int
}

func (r Repo) ListApplications(ctx context.Context, f ApplicationFilters) ([]domain.Application, error) {
	var clauses []string
	var args []any
	if f.MissionID != "" {
		clauses = append(clauses, "mission_id=?")
		args = append(args, f.MissionID)
	}
	if f.UserID != "" {
		clauses = append(clauses, "user_id=?")
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	query := `SELECT ` + applicationColumns + ` FROM applications ` + whereClause(clauses) + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Application
	for rows.Next() {
		a, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, nil
}

func (r Repo) UpdateApplicationStatusTx(ctx context.Context, tx *sql.Tx, id, status, decidedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE applications SET status=?, decided_at=? WHERE id=?`, status, decidedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
