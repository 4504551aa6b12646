package engine

import (
	"context"

	"missionboard/internal/domain"
	"missionboard/internal/roles"
)

// XpCounters is the derived cache held on the user row.
type XpCounters struct {
	Global int64 `json:"xp"`
	Pro    int64 `json:"xp_pro"`
	Solid  int64 `json:"xp_solid"`
}

// RebuildXpCounters folds the ledger back into the user's counters. The
// ledger is authoritative; this repairs any divergence in the cache.
func (e Engine) RebuildXpCounters(ctx context.Context, userID string) (XpCounters, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return XpCounters{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetUserTx(ctx, tx, userID); err != nil {
		return XpCounters{}, err
	}
	global, pro, solid, err := e.Repo.SumXpTx(ctx, tx, userID)
	if err != nil {
		return XpCounters{}, err
	}
	if err := e.Repo.SetUserXPTx(ctx, tx, userID, global, pro, solid); err != nil {
		return XpCounters{}, err
	}
	if err := tx.Commit(); err != nil {
		return XpCounters{}, err
	}
	return XpCounters{Global: global, Pro: pro, Solid: solid}, nil
}

// GrantAdminBonus appends a manual XP adjustment. Admin only. A negative
// delta is allowed for corrections.
func (e Engine) GrantAdminBonus(ctx context.Context, actor roles.Actor, userID string, delta int64, space string) error {
	if !actor.IsAdmin() {
		return roles.ForbiddenError{Role: domain.RoleAdmin}
	}
	if delta == 0 {
		return ValidationError{Field: "delta", Reason: "must be non-zero"}
	}
	var spacePtr *string
	var pro, solid int64
	switch space {
	case "":
	case domain.SpacePro:
		spacePtr = &space
		pro = delta
	case domain.SpaceSolid:
		spacePtr = &space
		solid = delta
	default:
		return ValidationError{Field: "space", Reason: "must be pro, solidaire or empty"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.AddUserXPTx(ctx, tx, userID, delta, pro, solid); err != nil {
		return err
	}
	if err := e.ledgerWriter().Append(ctx, tx, userID, nil, domain.XpKindAdminBonus, delta, spacePtr); err != nil {
		return err
	}
	return tx.Commit()
}
