package engine

import (
	"context"

	"missionboard/internal/domain"
	"missionboard/internal/repo"
	"missionboard/internal/roles"
	"missionboard/internal/xp"
)

// Follow creates the edge from the actor to the target. Following someone
// already followed is a no-op. The XP bonus is granted only the first time a
// given pair ever existed; re-following after an unfollow grants nothing.
func (e Engine) Follow(ctx context.Context, actor roles.Actor, targetID string) (domain.Follow, error) {
	if targetID == actor.ID {
		return domain.Follow{}, ValidationError{Field: "target_id", Reason: "cannot follow yourself"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Follow{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetUserTx(ctx, tx, targetID); err != nil {
		return domain.Follow{}, err
	}
	now := e.nowRFC()
	existing, err := e.Repo.GetFollowTx(ctx, tx, actor.ID, targetID)
	if err == nil && existing.DeletedAt == nil {
		return existing, nil
	}
	if err != nil && err != repo.ErrNotFound {
		return domain.Follow{}, err
	}
	count, cerr := e.Repo.CountActiveFollowsTx(ctx, tx, actor.ID)
	if cerr != nil {
		return domain.Follow{}, cerr
	}
	if count >= e.maxFollows() {
		return domain.Follow{}, ConflictError{Reason: "follow limit reached"}
	}

	f := domain.Follow{FollowerID: actor.ID, TargetID: targetID, CreatedAt: now}
	if err == repo.ErrNotFound {
		if err := e.Repo.InsertFollowTx(ctx, tx, f); err != nil {
			return domain.Follow{}, err
		}
		grant := xp.ForFollow()
		if err := e.Repo.AddUserXPTx(ctx, tx, actor.ID, grant.Global, grant.Pro, grant.Solid); err != nil {
			return domain.Follow{}, err
		}
		if err := e.ledgerWriter().Append(ctx, tx, actor.ID, nil, domain.XpKindFollow, grant.Global, nil); err != nil {
			return domain.Follow{}, err
		}
	} else {
		if err := e.Repo.ReviveFollowTx(ctx, tx, actor.ID, targetID, now); err != nil {
			return domain.Follow{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Follow{}, err
	}
	return f, nil
}

// Unfollow removes the edge. Unfollowing someone not followed is a no-op.
func (e Engine) Unfollow(ctx context.Context, actor roles.Actor, targetID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = e.Repo.SoftDeleteFollowTx(ctx, tx, actor.ID, targetID, e.nowRFC())
	if err == repo.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}
