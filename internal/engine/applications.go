package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"missionboard/internal/domain"
	"missionboard/internal/repo"
	"missionboard/internal/roles"
)

// Apply creates an application against an open mission, opens the thread
// between applicant and owner, and optionally records an initial message.
// One application per (mission, user) pair; a second attempt is a conflict.
func (e Engine) Apply(ctx context.Context, actor roles.Actor, missionID, message string) (domain.Application, error) {
	if err := actor.RequireActive(domain.RoleMissionary); err != nil {
		return domain.Application{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Application{}, err
	}
	defer tx.Rollback()

	m, err := e.Repo.GetMissionTx(ctx, tx, missionID)
	if err != nil {
		return domain.Application{}, err
	}
	if m.Status != domain.MissionOpen {
		return domain.Application{}, ConflictError{Reason: "mission is not open"}
	}
	if m.Hidden {
		return domain.Application{}, ConflictError{Reason: "mission is not open"}
	}
	if m.SlotsTaken >= m.SlotsMax {
		return domain.Application{}, ConflictError{Reason: "all slots taken"}
	}
	if m.OwnerID == actor.ID {
		return domain.Application{}, ConflictError{Reason: "cannot apply to your own mission"}
	}
	if _, err := e.Repo.GetApplicationByMissionUserTx(ctx, tx, missionID, actor.ID); err == nil {
		return domain.Application{}, ConflictError{Reason: "already applied to this mission"}
	} else if err != repo.ErrNotFound {
		return domain.Application{}, err
	}

	now := e.nowRFC()
	appID := uuid.NewString()
	th := domain.Thread{
		ID:            uuid.NewString(),
		ApplicationID: &appID,
		UserA:         m.OwnerID,
		UserB:         actor.ID,
		CreatedAt:     now,
	}
	a := domain.Application{
		ID:        appID,
		MissionID: m.ID,
		UserID:    actor.ID,
		Status:    domain.ApplicationPending,
		ThreadID:  th.ID,
		CreatedAt: now,
	}
	if err := e.Repo.InsertApplicationTx(ctx, tx, a); err != nil {
		return domain.Application{}, err
	}
	if err := e.Repo.InsertThreadTx(ctx, tx, th); err != nil {
		return domain.Application{}, err
	}
	if body := strings.TrimSpace(message); body != "" {
		msg := domain.Message{
			ID:        uuid.NewString(),
			ThreadID:  th.ID,
			SenderID:  actor.ID,
			Body:      body,
			CreatedAt: now,
		}
		if err := e.Repo.InsertMessageTx(ctx, tx, msg); err != nil {
			return domain.Application{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Application{}, err
	}
	e.Notify.Notify(ctx, m.OwnerID, "application.created", map[string]string{
		"mission_id":     m.ID,
		"application_id": a.ID,
		"applicant_id":   actor.ID,
	})
	return a, nil
}

// DecideApplication accepts or rejects a pending application. Accepting does
// not touch slots or XP; that happens only when a submission is accepted.
func (e Engine) DecideApplication(ctx context.Context, actor roles.Actor, applicationID string, accept bool) (domain.Application, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Application{}, err
	}
	defer tx.Rollback()

	a, err := e.Repo.GetApplicationTx(ctx, tx, applicationID)
	if err != nil {
		return domain.Application{}, err
	}
	m, err := e.Repo.GetMissionTx(ctx, tx, a.MissionID)
	if err != nil {
		return domain.Application{}, err
	}
	if err := e.requireMissionOwner(actor, m); err != nil {
		return domain.Application{}, err
	}
	if err := ensureUndecidedApplication(a.Status); err != nil {
		return domain.Application{}, err
	}
	status := domain.ApplicationRejected
	if accept {
		status = domain.ApplicationAccepted
	}
	now := e.nowRFC()
	if err := e.Repo.UpdateApplicationStatusTx(ctx, tx, a.ID, status, now); err != nil {
		return domain.Application{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Application{}, err
	}
	a.Status = status
	a.DecidedAt = &now
	if accept {
		e.Notify.Notify(ctx, a.UserID, "application.accepted", map[string]string{
			"mission_id":     m.ID,
			"application_id": a.ID,
		})
	}
	return a, nil
}
