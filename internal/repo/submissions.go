package repo

import (
	"context"
	"database/sql"

	"missionboard/internal/domain"
)

const submissionColumns = `id,mission_id,user_id,status,proof_url,proof_shots_json,privacy_override,reason,decision_at,reward_delivered_at,reward_note,reward_media_path,created_at`

func scanSubmission(scan func(dest ...any) error) (domain.Submission, error) {
	var s domain.Submission
	var proofURL, shots, reason, decisionAt, rewardAt, rewardNote, rewardMedia sql.NullString
	err := scan(&s.ID, &s.MissionID, &s.UserID, &s.Status, &proofURL, &shots, &s.PrivacyOverride,
		&reason, &decisionAt, &rewardAt, &rewardNote, &rewardMedia, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if proofURL.Valid {
		s.ProofURL = &proofURL.String
	}
	s.ProofShots = unmarshalShots(shots)
	if reason.Valid {
		s.Reason = &reason.String
	}
	if decisionAt.Valid {
		s.DecisionAt = &decisionAt.String
	}
	if rewardAt.Valid {
		s.RewardDeliveredAt = &rewardAt.String
	}
	if rewardNote.Valid {
		s.RewardNote = &rewardNote.String
	}
	if rewardMedia.Valid {
		s.RewardMediaPath = &rewardMedia.String
	}
	return s, nil
}

func (r Repo) InsertSubmissionTx(ctx context.Context, tx *sql.Tx, s domain.Submission) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO submissions(id,mission_id,user_id,status,proof_url,proof_shots_json,privacy_override,reason,decision_at,reward_delivered_at,reward_note,reward_media_path,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.MissionID, s.UserID, s.Status, nullableStringPtr(s.ProofURL), marshalShots(s.ProofShots),
		s.PrivacyOverride, nullableStringPtr(s.Reason), nullableStringPtr(s.DecisionAt),
		nullableStringPtr(s.RewardDeliveredAt), nullableStringPtr(s.RewardNote), nullableStringPtr(s.RewardMediaPath), s.CreatedAt)
	return err
}

func (r Repo) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	return scanSubmission(r.DB.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id=?`, id).Scan)
}

func (r Repo) GetSubmissionTx(ctx context.Context, tx *sql.Tx, id string) (domain.Submission, error) {
	return scanSubmission(tx.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id=?`, id).Scan)
}

type SubmissionFilters struct {
	MissionID string
	UserID    string
	Status    string
	Limit     int
}

func (r Repo) ListSubmissions(ctx context.Context, f SubmissionFilters) ([]domain.Submission, error) {
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
	query := `SELECT ` + submissionColumns + ` FROM submissions ` + whereClause(clauses) + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Submission
	for rows.Next() {
		s, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}

func (r Repo) ListSubmissionsByStatusTx(ctx context.Context, tx *sql.Tx, missionID, status string) ([]domain.Submission, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE mission_id=? AND status=? ORDER BY created_at ASC, id ASC`, missionID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Submission
	for rows.Next() {
		s, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, nil
}

func (r Repo) UpdateSubmissionDecisionTx(ctx context.Context, tx *sql.Tx, id, status, decisionAt string, reason *string) error {
	res, err := tx.ExecContext(ctx, `UPDATE submissions SET status=?, decision_at=?, reason=? WHERE id=?`,
		status, decisionAt, nullableStringPtr(reason), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) MarkRewardDeliveredTx(ctx context.Context, tx *sql.Tx, id, deliveredAt string, note, mediaPath *string) error {
	res, err := tx.ExecContext(ctx, `UPDATE submissions SET reward_delivered_at=?, reward_note=?, reward_media_path=? WHERE id=?`,
		deliveredAt, nullableStringPtr(note), nullableStringPtr(mediaPath), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
