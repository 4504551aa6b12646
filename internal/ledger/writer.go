package ledger

import (
	"context"
	"database/sql"
	"time"
)

// Writer appends xp_events rows inside the caller's transaction. The ledger
// is append-only and authoritative; user counters are a derived cache.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, userID string, missionID *string, kind string, delta int64, space *string) error {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `INSERT INTO xp_events(user_id,mission_id,kind,delta,space,created_at) VALUES (?,?,?,?,?,?)`,
		userID, nullableStringPtr(missionID), kind, delta, nullableStringPtr(space), ts)
	return err
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}
