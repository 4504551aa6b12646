package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"missionboard/internal/domain"
	"missionboard/internal/repo"
	"missionboard/internal/roles"
)

// PostMessage appends to a thread the actor participates in.
func (e Engine) PostMessage(ctx context.Context, actor roles.Actor, threadID, body string) (domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.Message{}, ValidationError{Field: "body", Reason: "required"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Message{}, err
	}
	defer tx.Rollback()

	th, err := e.Repo.GetThreadTx(ctx, tx, threadID)
	if err != nil {
		return domain.Message{}, err
	}
	if th.UserA != actor.ID && th.UserB != actor.ID && !actor.IsAdmin() {
		return domain.Message{}, roles.ForbiddenError{Role: domain.RoleMissionary}
	}
	msg := domain.Message{
		ID:        uuid.NewString(),
		ThreadID:  th.ID,
		SenderID:  actor.ID,
		Body:      body,
		CreatedAt: e.nowRFC(),
	}
	if err := e.Repo.InsertMessageTx(ctx, tx, msg); err != nil {
		return domain.Message{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Message{}, err
	}
	other := th.UserA
	if other == actor.ID {
		other = th.UserB
	}
	e.Notify.Notify(ctx, other, "message.received", map[string]string{
		"thread_id":  th.ID,
		"message_id": msg.ID,
	})
	return msg, nil
}

// OpenDirectThread returns the free-standing thread between two users,
// creating it on first use.
func (e Engine) OpenDirectThread(ctx context.Context, actor roles.Actor, otherID string) (domain.Thread, error) {
	if otherID == actor.ID {
		return domain.Thread{}, ValidationError{Field: "user_id", Reason: "cannot open a thread with yourself"}
	}
	if _, err := e.Repo.GetUser(ctx, otherID); err != nil {
		return domain.Thread{}, err
	}
	th, err := e.Repo.FindDirectThread(ctx, actor.ID, otherID)
	if err == nil {
		return th, nil
	}
	if err != repo.ErrNotFound {
		return domain.Thread{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Thread{}, err
	}
	defer tx.Rollback()

	th = domain.Thread{
		ID:        uuid.NewString(),
		UserA:     actor.ID,
		UserB:     otherID,
		CreatedAt: e.nowRFC(),
	}
	if err := e.Repo.InsertThreadTx(ctx, tx, th); err != nil {
		return domain.Thread{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Thread{}, err
	}
	return th, nil
}
