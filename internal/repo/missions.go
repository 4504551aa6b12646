package repo

import (
	"context"
	"database/sql"

	"missionboard/internal/domain"
)

const missionColumns = `id,owner_id,org_id,space,status,title,description,slots_max,slots_taken,base_xp,bonus_xp,hidden,featured,archived_reason,created_at,updated_at`

func scanMission(scan func(dest ...any) error) (domain.Mission, error) {
	var m domain.Mission
	var orgID, description, archivedReason sql.NullString
	err := scan(&m.ID, &m.OwnerID, &orgID, &m.Space, &m.Status, &m.Title, &description, &m.SlotsMax, &m.SlotsTaken,
		&m.BaseXP, &m.BonusXP, &m.Hidden, &m.Featured, &archivedReason, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	if orgID.Valid {
		m.OrgID = &orgID.String
	}
	if description.Valid {
		m.Description = description.String
	}
	if archivedReason.Valid {
		m.ArchivedReason = &archivedReason.String
	}
	return m, nil
}

func (r Repo) InsertMission(ctx context.Context, m domain.Mission) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO missions(id,owner_id,org_id,space,status,title,description,slots_max,slots_taken,base_xp,bonus_xp,hidden,featured,archived_reason,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.OwnerID, nullableStringPtr(m.OrgID), m.Space, m.Status, m.Title, nullable(m.Description),
		m.SlotsMax, m.SlotsTaken, m.BaseXP, m.BonusXP, m.Hidden, m.Featured, nullableStringPtr(m.ArchivedReason),
		m.CreatedAt, m.UpdatedAt)
	return err
}

func (r Repo) GetMission(ctx context.Context, id string) (domain.Mission, error) {
	return scanMission(r.DB.QueryRowContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE id=?`, id).Scan)
}

func (r Repo) GetMissionTx(ctx context.Context, tx *sql.Tx, id string) (domain.Mission, error) {
	return scanMission(tx.QueryRowContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE id=?`, id).Scan)
}

type MissionFilters struct {
	OwnerID         string
	Space           string
	Status          string
	IncludeHidden   bool
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListMissions(ctx context.Context, f MissionFilters) ([]domain.Mission, error) {
	var clauses []string
	var args []any
	if f.OwnerID != "" {
		clauses = append(clauses, "owner_id=?")
		args = append(args, f.OwnerID)
	}
	if f.Space != "" {
		clauses = append(clauses, "space=?")
		args = append(args, f.Space)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if !f.IncludeHidden {
		clauses = append(clauses, "hidden=0")
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	query := `SELECT ` + missionColumns + ` FROM missions ` + whereClause(clauses) + ` ORDER BY featured DESC, created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Mission
	for rows.Next() {
		m, err := scanMission(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, nil
}

func (r Repo) UpdateMissionStatusTx(ctx context.Context, tx *sql.Tx, id, status, updatedAt string, archivedReason *string) error {
	res, err := tx.ExecContext(ctx, `UPDATE missions SET status=?, archived_reason=?, updated_at=? WHERE id=?`,
		status, nullableStringPtr(archivedReason), updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateMission(ctx context.Context, tx *sql.Tx, m domain.Mission) error {
	res, err := tx.ExecContext(ctx, `UPDATE missions SET title=?, description=?, slots_max=?, base_xp=?, bonus_xp=?, hidden=?, featured=?, updated_at=? WHERE id=?`,
		m.Title, nullable(m.Description), m.SlotsMax, m.BaseXP, m.BonusXP, m.Hidden, m.Featured, m.UpdatedAt, m.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementSlotsTakenTx claims one slot, guarded against overshoot.
func (r Repo) IncrementSlotsTakenTx(ctx context.Context, tx *sql.Tx, id, updatedAt string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE missions SET slots_taken=slots_taken+1, updated_at=? WHERE id=? AND slots_taken < slots_max`, updatedAt, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r Repo) DeleteMission(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM missions WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
