package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"missionboard/internal/domain"
	"missionboard/internal/feed"
	"missionboard/internal/repo"
	"missionboard/internal/roles"
)

// CreateFeedPost creates the post for one accepted submission ahead of the
// mission-close sweep. The submitter does this to share early; their
// effective privacy still applies.
func (e Engine) CreateFeedPost(ctx context.Context, actor roles.Actor, submissionID string) (domain.FeedPost, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.FeedPost{}, err
	}
	defer tx.Rollback()

	s, err := e.Repo.GetSubmissionTx(ctx, tx, submissionID)
	if err != nil {
		return domain.FeedPost{}, err
	}
	if s.UserID != actor.ID && !actor.IsAdmin() {
		return domain.FeedPost{}, roles.ForbiddenError{Role: domain.RoleMissionary}
	}
	if s.Status != domain.SubmissionAccepted {
		return domain.FeedPost{}, ConflictError{Reason: "submission not accepted"}
	}
	if _, err := e.Repo.GetFeedPostBySubmissionTx(ctx, tx, s.ID); err == nil {
		return domain.FeedPost{}, ConflictError{Reason: "post already exists for this submission"}
	} else if err != repo.ErrNotFound {
		return domain.FeedPost{}, err
	}
	u, err := e.Repo.GetUserTx(ctx, tx, s.UserID)
	if err != nil {
		return domain.FeedPost{}, err
	}
	effective := feed.Effective(u.FeedPrivacyDefault, s.PrivacyOverride)
	if !feed.ShouldCreatePost(effective) {
		return domain.FeedPost{}, ConflictError{Reason: "feed privacy forbids a post for this submission"}
	}
	now := e.now().UTC()
	p := domain.FeedPost{
		ID:            uuid.NewString(),
		AuthorID:      s.UserID,
		MissionID:     s.MissionID,
		SubmissionID:  s.ID,
		Published:     feed.ShouldPublishImmediately(effective),
		EditableUntil: now.Add(e.feedEditWindow()).Format(time.RFC3339),
		CreatedAt:     now.Format(time.RFC3339),
	}
	if err := e.Repo.InsertFeedPostTx(ctx, tx, p); err != nil {
		return domain.FeedPost{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.FeedPost{}, err
	}
	return p, nil
}

// SetFeedPostPublished publishes or hides one of the author's posts. Outside
// the edit window only an admin may change it.
func (e Engine) SetFeedPostPublished(ctx context.Context, actor roles.Actor, postID string, published bool) (domain.FeedPost, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.FeedPost{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetFeedPost(ctx, postID)
	if err != nil {
		return domain.FeedPost{}, err
	}
	if p.AuthorID != actor.ID && !actor.IsAdmin() {
		return domain.FeedPost{}, roles.ForbiddenError{Role: domain.RoleMissionary}
	}
	if !actor.IsAdmin() {
		until, err := time.Parse(time.RFC3339, p.EditableUntil)
		if err == nil && e.now().UTC().After(until) {
			return domain.FeedPost{}, ConflictError{Reason: "edit window elapsed"}
		}
	}
	if err := e.Repo.SetFeedPostPublishedTx(ctx, tx, p.ID, published); err != nil {
		return domain.FeedPost{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.FeedPost{}, err
	}
	p.Published = published
	return p, nil
}

// DeleteFeedPost removes the author's post inside the edit window; admins may
// remove at any time.
func (e Engine) DeleteFeedPost(ctx context.Context, actor roles.Actor, postID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetFeedPost(ctx, postID)
	if err != nil {
		return err
	}
	if p.AuthorID != actor.ID && !actor.IsAdmin() {
		return roles.ForbiddenError{Role: domain.RoleMissionary}
	}
	if !actor.IsAdmin() {
		until, perr := time.Parse(time.RFC3339, p.EditableUntil)
		if perr == nil && e.now().UTC().After(until) {
			return ConflictError{Reason: "edit window elapsed"}
		}
	}
	if err := e.Repo.DeleteFeedPostTx(ctx, tx, p.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// LikeFeedPost records a like and bumps the counter in the same transaction.
// A second like from the same user is a conflict, not a silent no-op.
func (e Engine) LikeFeedPost(ctx context.Context, actor roles.Actor, postID string) (domain.FeedPost, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.FeedPost{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetFeedPost(ctx, postID)
	if err != nil {
		return domain.FeedPost{}, err
	}
	if !p.Published {
		return domain.FeedPost{}, ConflictError{Reason: "post not published"}
	}
	liked, err := e.Repo.HasFeedLikeTx(ctx, tx, p.ID, actor.ID)
	if err != nil {
		return domain.FeedPost{}, err
	}
	if liked {
		return domain.FeedPost{}, ConflictError{Reason: "already liked"}
	}
	if err := e.Repo.InsertFeedLikeTx(ctx, tx, p.ID, actor.ID, e.nowRFC()); err != nil {
		return domain.FeedPost{}, err
	}
	if err := e.Repo.AdjustFeedLikeCountTx(ctx, tx, p.ID, 1); err != nil {
		return domain.FeedPost{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.FeedPost{}, err
	}
	p.LikeCount++
	return p, nil
}

// UnlikeFeedPost removes a like. Unliking a post never liked is a no-op.
func (e Engine) UnlikeFeedPost(ctx context.Context, actor roles.Actor, postID string) (domain.FeedPost, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.FeedPost{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetFeedPost(ctx, postID)
	if err != nil {
		return domain.FeedPost{}, err
	}
	err = e.Repo.DeleteFeedLikeTx(ctx, tx, p.ID, actor.ID)
	if err == repo.ErrNotFound {
		return p, nil
	}
	if err != nil {
		return domain.FeedPost{}, err
	}
	if err := e.Repo.AdjustFeedLikeCountTx(ctx, tx, p.ID, -1); err != nil {
		return domain.FeedPost{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.FeedPost{}, err
	}
	p.LikeCount--
	return p, nil
}

// CommentFeedPost appends a comment and bumps the counter in one transaction.
func (e Engine) CommentFeedPost(ctx context.Context, actor roles.Actor, postID, body string) (domain.FeedComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.FeedComment{}, ValidationError{Field: "body", Reason: "required"}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.FeedComment{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetFeedPost(ctx, postID)
	if err != nil {
		return domain.FeedComment{}, err
	}
	if !p.Published {
		return domain.FeedComment{}, ConflictError{Reason: "post not published"}
	}
	c := domain.FeedComment{
		ID:        uuid.NewString(),
		PostID:    p.ID,
		UserID:    actor.ID,
		Body:      body,
		CreatedAt: e.nowRFC(),
	}
	if err := e.Repo.InsertFeedCommentTx(ctx, tx, c); err != nil {
		return domain.FeedComment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.FeedComment{}, err
	}
	if p.AuthorID != actor.ID {
		e.Notify.Notify(ctx, p.AuthorID, "feed.comment", map[string]string{"post_id": p.ID, "comment_id": c.ID})
	}
	return c, nil
}
