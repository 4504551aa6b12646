package engine

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"missionboard/internal/domain"
	"missionboard/internal/feed"
	"missionboard/internal/repo"
	"missionboard/internal/roles"
)

type MissionCreateOptions struct {
	Title       string
	Description string
	Space       string
	OrgID       string
	SlotsMax    int
	BaseXP      int64
	BonusXP     int64
	Hidden      bool
	Featured    bool
}

// CreateMission registers a new mission in pending state, awaiting admin
// approval before it opens.
func (e Engine) CreateMission(ctx context.Context, actor roles.Actor, opts MissionCreateOptions) (domain.Mission, error) {
	if err := actor.RequireActive(domain.RoleAdvertiser); err != nil {
		return domain.Mission{}, err
	}
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return domain.Mission{}, ValidationError{Field: "title", Reason: "required"}
	}
	if !validSpace(opts.Space) {
		return domain.Mission{}, ValidationError{Field: "space", Reason: "must be pro or solidaire"}
	}
	if opts.SlotsMax < 1 {
		return domain.Mission{}, ValidationError{Field: "slots_max", Reason: "must be at least 1"}
	}
	if opts.BaseXP < 0 || opts.BonusXP < 0 {
		return domain.Mission{}, ValidationError{Field: "base_xp", Reason: "xp amounts cannot be negative"}
	}
	now := e.nowRFC()
	var orgID *string
	if opts.OrgID != "" {
		orgID = &opts.OrgID
	}
	// Admin-created missions skip the approval queue.
	status := domain.MissionPending
	if actor.IsAdmin() {
		status = domain.MissionOpen
	}
	m := domain.Mission{
		ID:          uuid.NewString(),
		OwnerID:     actor.ID,
		OrgID:       orgID,
		Space:       opts.Space,
		Status:      status,
		Title:       title,
		Description: strings.TrimSpace(opts.Description),
		SlotsMax:    opts.SlotsMax,
		BaseXP:      opts.BaseXP,
		BonusXP:     opts.BonusXP,
		Hidden:      opts.Hidden,
		Featured:    opts.Featured,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.InsertMission(ctx, m); err != nil {
		return domain.Mission{}, err
	}
	return m, nil
}

// ApproveMission moves a pending mission to open. Admin only.
func (e Engine) ApproveMission(ctx context.Context, actor roles.Actor, missionID string) (domain.Mission, error) {
	if !actor.IsAdmin() {
		return domain.Mission{}, roles.ForbiddenError{Role: domain.RoleAdmin}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Mission{}, err
	}
	defer tx.Rollback()

	m, err := e.Repo.GetMissionTx(ctx, tx, missionID)
	if err != nil {
		return domain.Mission{}, err
	}
	if m.Status != domain.MissionPending {
		return domain.Mission{}, ConflictError{Reason: "mission is not pending approval"}
	}
	now := e.nowRFC()
	if err := e.Repo.UpdateMissionStatusTx(ctx, tx, m.ID, domain.MissionOpen, now, nil); err != nil {
		return domain.Mission{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Mission{}, err
	}
	m.Status = domain.MissionOpen
	m.UpdatedAt = now
	e.Notify.Notify(ctx, m.OwnerID, "mission.approved", map[string]string{"mission_id": m.ID})
	return m, nil
}

// RejectMission archives a mission from any live state. Admin only. The
// reason, when given, is persisted on the mission.
func (e Engine) RejectMission(ctx context.Context, actor roles.Actor, missionID, reason string) (domain.Mission, error) {
	if !actor.IsAdmin() {
		return domain.Mission{}, roles.ForbiddenError{Role: domain.RoleAdmin}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Mission{}, err
	}
	defer tx.Rollback()

	m, err := e.Repo.GetMissionTx(ctx, tx, missionID)
	if err != nil {
		return domain.Mission{}, err
	}
	if m.Status == domain.MissionArchived {
		return domain.Mission{}, ConflictError{Reason: "mission already archived"}
	}
	now := e.nowRFC()
	var reasonPtr *string
	if r := strings.TrimSpace(reason); r != "" {
		reasonPtr = &r
	}
	if err := e.Repo.UpdateMissionStatusTx(ctx, tx, m.ID, domain.MissionArchived, now, reasonPtr); err != nil {
		return domain.Mission{}, err
	}
	if _, err := e.Repo.UnpublishFeedPostsForMissionTx(ctx, tx, m.ID); err != nil {
		return domain.Mission{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Mission{}, err
	}
	m.Status = domain.MissionArchived
	m.ArchivedReason = reasonPtr
	m.UpdatedAt = now
	e.Notify.Notify(ctx, m.OwnerID, "mission.rejected", map[string]string{"mission_id": m.ID, "reason": reason})
	return m, nil
}

func (e Engine) requireMissionOwner(actor roles.Actor, m domain.Mission) error {
	if actor.IsAdmin() || actor.ID == m.OwnerID {
		return nil
	}
	return roles.ForbiddenError{Role: domain.RoleAdvertiser}
}

type sweepNotice struct {
	userID       string
	submissionID string
}

// CloseMission moves an open mission to closed and sweeps its accepted
// submissions: any that still lacks a feed post gets one now, subject to the
// submitter's effective privacy.
func (e Engine) CloseMission(ctx context.Context, actor roles.Actor, missionID string) (domain.Mission, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Mission{}, err
	}
	defer tx.Rollback()

	m, err := e.Repo.GetMissionTx(ctx, tx, missionID)
	if err != nil {
		return domain.Mission{}, err
	}
	if err := e.requireMissionOwner(actor, m); err != nil {
		return domain.Mission{}, err
	}
	if m.Status == domain.MissionClosed {
		return domain.Mission{}, ConflictError{Reason: "mission already closed"}
	}
	if err := ensureMissionTransition(m.Status, domain.MissionClosed); err != nil {
		return domain.Mission{}, err
	}
	now := e.nowRFC()
	if err := e.Repo.UpdateMissionStatusTx(ctx, tx, m.ID, domain.MissionClosed, now, nil); err != nil {
		return domain.Mission{}, err
	}
	drafts, err := e.sweepFeedPostsTx(ctx, tx, m)
	if err != nil {
		return domain.Mission{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Mission{}, err
	}
	m.Status = domain.MissionClosed
	m.UpdatedAt = now
	for _, d := range drafts {
		e.Notify.Notify(ctx, d.userID, "feed.draft_ready", map[string]string{
			"mission_id":    m.ID,
			"submission_id": d.submissionID,
		})
	}
	return m, nil
}

// sweepFeedPostsTx creates feed posts for accepted submissions that lack one
// and returns the submitters whose post was left as a draft to confirm.
func (e Engine) sweepFeedPostsTx(ctx context.Context, tx *sql.Tx, m domain.Mission) ([]sweepNotice, error) {
	subs, err := e.Repo.ListSubmissionsByStatusTx(ctx, tx, m.ID, domain.SubmissionAccepted)
	if err != nil {
		return nil, err
	}
	var drafts []sweepNotice
	window := e.feedEditWindow()
	for _, s := range subs {
		if _, err := e.Repo.GetFeedPostBySubmissionTx(ctx, tx, s.ID); err == nil {
			continue
		} else if err != repo.ErrNotFound {
			return nil, err
		}
		u, err := e.Repo.GetUserTx(ctx, tx, s.UserID)
		if err != nil {
			return nil, err
		}
		effective := feed.Effective(u.FeedPrivacyDefault, s.PrivacyOverride)
		if !feed.ShouldCreatePost(effective) {
			continue
		}
		now := e.now().UTC()
		p := domain.FeedPost{
			ID:            uuid.NewString(),
			AuthorID:      s.UserID,
			MissionID:     m.ID,
			SubmissionID:  s.ID,
			Published:     feed.ShouldPublishImmediately(effective),
			EditableUntil: now.Add(window).Format(time.RFC3339),
			CreatedAt:     now.Format(time.RFC3339),
		}
		if err := e.Repo.InsertFeedPostTx(ctx, tx, p); err != nil {
			return nil, err
		}
		if feed.ShouldCreateAsDraft(effective) {
			drafts = append(drafts, sweepNotice{userID: s.UserID, submissionID: s.ID})
		}
	}
	return drafts, nil
}

// ReopenMission moves a closed mission back to open while slots remain.
func (e Engine) ReopenMission(ctx context.Context, actor roles.Actor, missionID string) (domain.Mission, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Mission{}, err
	}
	defer tx.Rollback()

	m, err := e.Repo.GetMissionTx(ctx, tx, missionID)
	if err != nil {
		return domain.Mission{}, err
	}
	if err := e.requireMissionOwner(actor, m); err != nil {
		return domain.Mission{}, err
	}
	if m.Status != domain.MissionClosed {
		return domain.Mission{}, ConflictError{Reason: "only a closed mission can reopen"}
	}
	if m.SlotsTaken >= m.SlotsMax {
		return domain.Mission{}, ConflictError{Reason: "all slots taken"}
	}
	now := e.nowRFC()
	if err := e.Repo.UpdateMissionStatusTx(ctx, tx, m.ID, domain.MissionOpen, now, nil); err != nil {
		return domain.Mission{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Mission{}, err
	}
	m.Status = domain.MissionOpen
	m.UpdatedAt = now
	return m, nil
}

type MissionUpdateOptions struct {
	Title       *string
	Description *string
	SlotsMax    *int
	BaseXP      *int64
	BonusXP     *int64
	Hidden      *bool
	Featured    *bool
}

func (e Engine) UpdateMission(ctx context.Context, actor roles.Actor, missionID string, opts MissionUpdateOptions) (domain.Mission, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Mission{}, err
	}
	defer tx.Rollback()

	m, err := e.Repo.GetMissionTx(ctx, tx, missionID)
	if err != nil {
		return domain.Mission{}, err
	}
	if err := e.requireMissionOwner(actor, m); err != nil {
		return domain.Mission{}, err
	}
	if m.Status == domain.MissionArchived {
		return domain.Mission{}, ConflictError{Reason: "mission is archived"}
	}
	if opts.Title != nil {
		t := strings.TrimSpace(*opts.Title)
		if t == "" {
			return domain.Mission{}, ValidationError{Field: "title", Reason: "required"}
		}
		m.Title = t
	}
	if opts.Description != nil {
		m.Description = strings.TrimSpace(*opts.Description)
	}
	if opts.SlotsMax != nil {
		if *opts.SlotsMax < m.SlotsTaken {
			return domain.Mission{}, ConflictError{Reason: "slots_max below slots already taken"}
		}
		if *opts.SlotsMax < 1 {
			return domain.Mission{}, ValidationError{Field: "slots_max", Reason: "must be at least 1"}
		}
		m.SlotsMax = *opts.SlotsMax
	}
	if opts.BaseXP != nil {
		if *opts.BaseXP < 0 {
			return domain.Mission{}, ValidationError{Field: "base_xp", Reason: "cannot be negative"}
		}
		m.BaseXP = *opts.BaseXP
	}
	if opts.BonusXP != nil {
		if *opts.BonusXP < 0 {
			return domain.Mission{}, ValidationError{Field: "bonus_xp", Reason: "cannot be negative"}
		}
		m.BonusXP = *opts.BonusXP
	}
	if opts.Hidden != nil {
		m.Hidden = *opts.Hidden
	}
	if opts.Featured != nil {
		m.Featured = *opts.Featured
	}
	m.UpdatedAt = e.nowRFC()
	if err := e.Repo.UpdateMission(ctx, tx, m); err != nil {
		return domain.Mission{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Mission{}, err
	}
	return m, nil
}

// DeleteMission removes a mission and everything hanging off it. Applications,
// submissions and ratings go with it through FK cascades; the XP ledger keeps
// its rows, only the mission reference dangles. Admin only.
func (e Engine) DeleteMission(ctx context.Context, actor roles.Actor, missionID string) error {
	if !actor.IsAdmin() {
		return roles.ForbiddenError{Role: domain.RoleAdmin}
	}
	if _, err := e.Repo.GetMission(ctx, missionID); err != nil {
		return err
	}
	return e.Repo.DeleteMission(ctx, missionID)
}
