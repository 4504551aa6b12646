package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"missionboard/internal/domain"
	"missionboard/internal/repo"
	"missionboard/internal/roles"
)

type RateOptions struct {
	MissionID    string
	SubmissionID string
	Score        int
	Comment      string
}

// Rate upserts the missionary's rating for a mission and recomputes the
// advertiser's aggregate in the same transaction. A second rating on the same
// mission replaces the first; the aggregate ends up as if only the final
// score had ever been submitted.
func (e Engine) Rate(ctx context.Context, actor roles.Actor, opts RateOptions) (domain.Rating, error) {
	if opts.Score < 1 || opts.Score > 5 {
		return domain.Rating{}, ValidationError{Field: "score", Reason: "must be between 1 and 5"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Rating{}, err
	}
	defer tx.Rollback()

	s, err := e.Repo.GetSubmissionTx(ctx, tx, opts.SubmissionID)
	if err != nil {
		return domain.Rating{}, err
	}
	if s.MissionID != opts.MissionID {
		return domain.Rating{}, ValidationError{Field: "submission_id", Reason: "submission does not belong to the mission"}
	}
	if s.UserID != actor.ID {
		return domain.Rating{}, roles.ForbiddenError{Role: domain.RoleMissionary}
	}
	if s.Status != domain.SubmissionAccepted {
		return domain.Rating{}, ConflictError{Reason: "submission not accepted"}
	}
	m, err := e.Repo.GetMissionTx(ctx, tx, s.MissionID)
	if err != nil {
		return domain.Rating{}, err
	}
	if m.OwnerID == actor.ID {
		return domain.Rating{}, ConflictError{Reason: "cannot rate your own mission"}
	}

	now := e.nowRFC()
	rt := domain.Rating{
		ID:           uuid.NewString(),
		RaterID:      actor.ID,
		MissionID:    m.ID,
		SubmissionID: s.ID,
		Score:        opts.Score,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if c := strings.TrimSpace(opts.Comment); c != "" {
		rt.Comment = &c
	}
	existing, err := e.Repo.GetRatingTx(ctx, tx, actor.ID, m.ID)
	if err == nil {
		rt.ID = existing.ID
		rt.CreatedAt = existing.CreatedAt
	} else if err != repo.ErrNotFound {
		return domain.Rating{}, err
	}
	if err := e.Repo.UpsertRatingTx(ctx, tx, rt); err != nil {
		return domain.Rating{}, err
	}
	avg, count, err := e.Repo.RatingAggregateForOwnerTx(ctx, tx, m.OwnerID)
	if err != nil {
		return domain.Rating{}, err
	}
	if err := e.Repo.SetUserRatingTx(ctx, tx, m.OwnerID, avg, count); err != nil {
		return domain.Rating{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Rating{}, err
	}
	return rt, nil
}
