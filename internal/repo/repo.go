package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"missionboard/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func marshalShots(shots []string) any {
	if len(shots) == 0 {
		return nil
	}
	b, err := json.Marshal(shots)
	if err != nil {
		return nil
	}
	return string(b)
}

func unmarshalShots(v sql.NullString) []string {
	if !v.Valid || v.String == "" {
		return nil
	}
	var shots []string
	if err := json.Unmarshal([]byte(v.String), &shots); err != nil {
		return nil
	}
	return shots
}

func (r Repo) InsertUser(ctx context.Context, u domain.User) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO users(id,email,display_name,xp,xp_pro,xp_solid,feed_privacy_default,rating_avg,rating_count,created_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, nullable(u.DisplayName), u.XP, u.XPPro, u.XPSolid, u.FeedPrivacyDefault, u.RatingAvg, u.RatingCount, u.CreatedAt)
	return err
}

const userColumns = `id,email,display_name,xp,xp_pro,xp_solid,feed_privacy_default,rating_avg,rating_count,created_at`

func scanUser(scan func(dest ...any) error) (domain.User, error) {
	var u domain.User
	var displayName sql.NullString
	err := scan(&u.ID, &u.Email, &displayName, &u.XP, &u.XPPro, &u.XPSolid, &u.FeedPrivacyDefault, &u.RatingAvg, &u.RatingCount, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	if displayName.Valid {
		u.DisplayName = displayName.String
	}
	return u, nil
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id).Scan)
}

func (r Repo) GetUserTx(ctx context.Context, tx *sql.Tx, id string) (domain.User, error) {
	return scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id).Scan)
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, email).Scan)
}

func (r Repo) ListUsers(ctx context.Context, limit int) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, nil
}

func (r Repo) UpdateUserPrivacyDefault(ctx context.Context, id, privacy string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET feed_privacy_default=? WHERE id=?`, privacy, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) AddUserXPTx(ctx context.Context, tx *sql.Tx, id string, global, pro, solid int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE users SET xp=xp+?, xp_pro=xp_pro+?, xp_solid=xp_solid+? WHERE id=?`, global, pro, solid, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetUserXPTx(ctx context.Context, tx *sql.Tx, id string, global, pro, solid int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE users SET xp=?, xp_pro=?, xp_solid=? WHERE id=?`, global, pro, solid, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetUserRatingTx(ctx context.Context, tx *sql.Tx, id string, avg float64, count int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE users SET rating_avg=?, rating_count=? WHERE id=?`, avg, count, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GrantRole(ctx context.Context, userID, role string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT OR IGNORE INTO user_roles(user_id,role) VALUES (?,?)`, userID, role)
	return err
}

func (r Repo) RevokeRole(ctx context.Context, userID, role string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id=? AND role=?`, userID, role)
	return err
}

func (r Repo) ListRoles(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT role FROM user_roles WHERE user_id=? ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func whereClause(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(clauses, " AND ")
}
