package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"missionboard/internal/domain"
	"missionboard/internal/roles"
	"missionboard/internal/xp"
)

type SubmissionCreateOptions struct {
	MissionID       string
	ProofURL        string
	ProofShots      []string
	PrivacyOverride string
}

// CreateSubmission records proof of completed work against an open mission.
func (e Engine) CreateSubmission(ctx context.Context, actor roles.Actor, opts SubmissionCreateOptions) (domain.Submission, error) {
	if err := actor.RequireActive(domain.RoleMissionary); err != nil {
		return domain.Submission{}, err
	}
	proofURL := strings.TrimSpace(opts.ProofURL)
	if proofURL == "" && len(opts.ProofShots) == 0 {
		return domain.Submission{}, ValidationError{Field: "proof", Reason: "a proof url or at least one screenshot is required"}
	}
	override := opts.PrivacyOverride
	if override == "" {
		override = domain.PrivacyInherit
	}
	if !validPrivacy(override) {
		return domain.Submission{}, ValidationError{Field: "privacy_override", Reason: "must be inherit, auto, ask or never"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Submission{}, err
	}
	defer tx.Rollback()

	m, err := e.Repo.GetMissionTx(ctx, tx, opts.MissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	if m.Status != domain.MissionOpen || m.Hidden {
		return domain.Submission{}, ConflictError{Reason: "mission is not open"}
	}
	if m.SlotsTaken >= m.SlotsMax {
		return domain.Submission{}, ConflictError{Reason: "all slots taken"}
	}
	if m.OwnerID == actor.ID {
		return domain.Submission{}, ConflictError{Reason: "cannot submit to your own mission"}
	}

	s := domain.Submission{
		ID:              uuid.NewString(),
		MissionID:       m.ID,
		UserID:          actor.ID,
		Status:          domain.SubmissionPending,
		ProofShots:      opts.ProofShots,
		PrivacyOverride: override,
		CreatedAt:       e.nowRFC(),
	}
	if proofURL != "" {
		s.ProofURL = &proofURL
	}
	if err := e.Repo.InsertSubmissionTx(ctx, tx, s); err != nil {
		return domain.Submission{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Submission{}, err
	}
	e.Notify.Notify(ctx, m.OwnerID, "submission.created", map[string]string{
		"mission_id":    m.ID,
		"submission_id": s.ID,
	})
	return s, nil
}

// AcceptSubmission is the sole trigger for XP. In one transaction it claims a
// mission slot, marks the submission accepted, bumps the user's counters and
// appends the matching ledger row.
func (e Engine) AcceptSubmission(ctx context.Context, actor roles.Actor, submissionID string) (domain.Submission, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Submission{}, err
	}
	defer tx.Rollback()

	s, err := e.Repo.GetSubmissionTx(ctx, tx, submissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	m, err := e.Repo.GetMissionTx(ctx, tx, s.MissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	if err := e.requireMissionOwner(actor, m); err != nil {
		return domain.Submission{}, err
	}
	if err := ensureUndecidedSubmission(s.Status); err != nil {
		return domain.Submission{}, err
	}
	now := e.nowRFC()
	claimed, err := e.Repo.IncrementSlotsTakenTx(ctx, tx, m.ID, now)
	if err != nil {
		return domain.Submission{}, err
	}
	if !claimed {
		return domain.Submission{}, ConflictError{Reason: "all slots taken"}
	}
	if err := e.Repo.UpdateSubmissionDecisionTx(ctx, tx, s.ID, domain.SubmissionAccepted, now, nil); err != nil {
		return domain.Submission{}, err
	}
	grant := xp.ForAcceptance(m.BaseXP, m.BonusXP, m.Space)
	if err := e.Repo.AddUserXPTx(ctx, tx, s.UserID, grant.Global, grant.Pro, grant.Solid); err != nil {
		return domain.Submission{}, err
	}
	space := m.Space
	if err := e.ledgerWriter().Append(ctx, tx, s.UserID, &m.ID, domain.XpKindSubmissionAccepted, grant.Global, &space); err != nil {
		return domain.Submission{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Submission{}, err
	}
	s.Status = domain.SubmissionAccepted
	s.DecisionAt = &now
	e.Notify.Notify(ctx, s.UserID, "submission.accepted", map[string]string{
		"mission_id":    m.ID,
		"submission_id": s.ID,
	})
	return s, nil
}

// RefuseSubmission declines pending work with a mandatory reason.
func (e Engine) RefuseSubmission(ctx context.Context, actor roles.Actor, submissionID, reason string) (domain.Submission, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) < 2 || len(reason) > 500 {
		return domain.Submission{}, ValidationError{Field: "reason", Reason: "must be between 2 and 500 characters"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Submission{}, err
	}
	defer tx.Rollback()

	s, err := e.Repo.GetSubmissionTx(ctx, tx, submissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	m, err := e.Repo.GetMissionTx(ctx, tx, s.MissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	if err := e.requireMissionOwner(actor, m); err != nil {
		return domain.Submission{}, err
	}
	if err := ensureUndecidedSubmission(s.Status); err != nil {
		return domain.Submission{}, err
	}
	now := e.nowRFC()
	if err := e.Repo.UpdateSubmissionDecisionTx(ctx, tx, s.ID, domain.SubmissionRefused, now, &reason); err != nil {
		return domain.Submission{}, err
	}
	// A refusal opens a dialogue thread bound to the submission, seeded with
	// the reason, so the submitter can contest or rework.
	th := domain.Thread{
		ID:           uuid.NewString(),
		SubmissionID: &s.ID,
		UserA:        m.OwnerID,
		UserB:        s.UserID,
		CreatedAt:    now,
	}
	if err := e.Repo.InsertThreadTx(ctx, tx, th); err != nil {
		return domain.Submission{}, err
	}
	if err := e.Repo.InsertMessageTx(ctx, tx, domain.Message{
		ID:        uuid.NewString(),
		ThreadID:  th.ID,
		SenderID:  actor.ID,
		Body:      reason,
		CreatedAt: now,
	}); err != nil {
		return domain.Submission{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Submission{}, err
	}
	s.Status = domain.SubmissionRefused
	s.DecisionAt = &now
	s.Reason = &reason
	e.Notify.Notify(ctx, s.UserID, "submission.refused", map[string]string{
		"mission_id":    m.ID,
		"submission_id": s.ID,
		"reason":        reason,
		"thread_id":     th.ID,
	})
	return s, nil
}

// DeliverReward records that the owner handed over the reward for an accepted
// submission. Re-marking overwrites the previous record.
func (e Engine) DeliverReward(ctx context.Context, actor roles.Actor, submissionID, note, mediaPath string) (domain.Submission, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Submission{}, err
	}
	defer tx.Rollback()

	s, err := e.Repo.GetSubmissionTx(ctx, tx, submissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	m, err := e.Repo.GetMissionTx(ctx, tx, s.MissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	if err := e.requireMissionOwner(actor, m); err != nil {
		return domain.Submission{}, err
	}
	if s.Status != domain.SubmissionAccepted {
		return domain.Submission{}, ConflictError{Reason: "submission not accepted"}
	}
	now := e.nowRFC()
	var notePtr, mediaPtr *string
	if n := strings.TrimSpace(note); n != "" {
		notePtr = &n
	}
	if p := strings.TrimSpace(mediaPath); p != "" {
		mediaPtr = &p
	}
	if err := e.Repo.MarkRewardDeliveredTx(ctx, tx, s.ID, now, notePtr, mediaPtr); err != nil {
		return domain.Submission{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Submission{}, err
	}
	s.RewardDeliveredAt = &now
	s.RewardNote = notePtr
	s.RewardMediaPath = mediaPtr
	e.Notify.Notify(ctx, s.UserID, "reward.delivered", map[string]string{
		"mission_id":    m.ID,
		"submission_id": s.ID,
	})
	return s, nil
}
