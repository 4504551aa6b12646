package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"missionboard/internal/config"
	"missionboard/internal/db"
	"missionboard/internal/domain"
	"missionboard/internal/engine"
	"missionboard/internal/migrate"
	"missionboard/internal/notify"
	"missionboard/internal/repo"
	"missionboard/internal/roles"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	eng.Notify = notify.Discard{}
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func (env testEnv) user(t *testing.T, email string, userRoles ...string) roles.Actor {
	t.Helper()
	u, err := env.Engine.CreateUser(env.Ctx, engine.UserCreateOptions{Email: email, Roles: userRoles})
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return roles.Actor{ID: u.ID, Roles: userRoles}
}

func (env testEnv) openMission(t *testing.T, owner roles.Actor, opts engine.MissionCreateOptions) domain.Mission {
	t.Helper()
	if opts.Title == "" {
		opts.Title = "Test mission"
	}
	if opts.Space == "" {
		opts.Space = domain.SpacePro
	}
	if opts.SlotsMax == 0 {
		opts.SlotsMax = 3
	}
	m, err := env.Engine.CreateMission(env.Ctx, owner, opts)
	if err != nil {
		t.Fatalf("create mission: %v", err)
	}
	admin := roles.Actor{ID: "admin-0", Roles: []string{domain.RoleAdmin}}
	m, err = env.Engine.ApproveMission(env.Ctx, admin, m.ID)
	if err != nil {
		t.Fatalf("approve mission: %v", err)
	}
	return m
}

func isConflict(err error) bool {
	var ce engine.ConflictError
	return errors.As(err, &ce)
}

func TestApplyIsUniquePerMissionAndUser(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", domain.RoleAdvertiser)
	applicant := env.user(t, "worker@example.com", domain.RoleMissionary)
	m := env.openMission(t, owner, engine.MissionCreateOptions{})

	a, err := env.Engine.Apply(env.Ctx, applicant, m.ID, "hello")
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if a.ThreadID == "" {
		t.Fatal("apply did not open a thread")
	}
	msgs, err := env.Engine.Repo.ListMessages(env.Ctx, a.ThreadID, 0)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("expected 1 initial message, got %d (%v)", len(msgs), err)
	}

	_, err = env.Engine.Apply(env.Ctx, applicant, m.ID, "")
	if !isConflict(err) {
		t.Fatalf("second apply: want conflict, got %v", err)
	}
	apps, err := env.Engine.Repo.ListApplications(env.Ctx, repo.ApplicationFilters{MissionID: m.ID})
	if err != nil || len(apps) != 1 {
		t.Fatalf("expected 1 application, got %d (%v)", len(apps), err)
	}
}

func TestApplyRequiresOpenMission(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", domain.RoleAdvertiser)
	applicant := env.user(t, "worker@example.com", domain.RoleMissionary)
	m, err := env.Engine.CreateMission(env.Ctx, owner, engine.MissionCreateOptions{
		Title: "pending", Space: domain.SpaceSolid, SlotsMax: 1,
	})
	if err != nil {
		t.Fatalf("create mission: %v", err)
	}
	if _, err := env.Engine.Apply(env.Ctx, applicant, m.ID, ""); !isConflict(err) {
		t.Fatalf("apply on pending mission: want conflict, got %v", err)
	}
}

func TestAcceptSubmissionGrantsXPExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", domain.RoleAdvertiser)
	worker := env.user(t, "worker@example.com", domain.RoleMissionary)
	m := env.openMission(t, owner, engine.MissionCreateOptions{
		Space: domain.SpacePro, BaseXP: 100, BonusXP: 20,
	})

	s, err := env.Engine.CreateSubmission(env.Ctx, worker, engine.SubmissionCreateOptions{
		MissionID: m.ID, ProofURL: "https://example.com/proof",
	})
	if err != nil {
		t.Fatalf("create submission: %v", err)
	}
	s, err = env.Engine.AcceptSubmission(env.Ctx, owner, s.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if s.Status != domain.SubmissionAccepted || s.DecisionAt == nil {
		t.Fatalf("unexpected submission after accept: %+v", s)
	}

	u, err := env.Engine.Repo.GetUser(env.Ctx, worker.ID)
	if err != nil {
		t.Fatal(err)
	}
	if u.XP != 120 || u.XPPro != 120 || u.XPSolid != 0 {
		t.Fatalf("counters after accept: xp=%d pro=%d solid=%d", u.XP, u.XPPro, u.XPSolid)
	}
	events, err := env.Engine.Repo.ListXpEvents(env.Ctx, worker.ID, 0, 0)
	if err != nil || len(events) != 1 {
		t.Fatalf("expected 1 ledger row, got %d (%v)", len(events), err)
	}
	if events[0].Delta != 120 || events[0].Kind != domain.XpKindSubmissionAccepted {
		t.Fatalf("unexpected ledger row: %+v", events[0])
	}
	if events[0].CreatedAt != "2026-01-01T00:00:00Z" {
		t.Fatalf("ledger row should use the injected clock, got %s", events[0].CreatedAt)
	}

	// second accept must fail and leave counters untouched
	if _, err := env.Engine.AcceptSubmission(env.Ctx, owner, s.ID); !isConflict(err) {
		t.Fatalf("double accept: want conflict, got %v", err)
	}
	u, _ = env.Engine.Repo.GetUser(env.Ctx, worker.ID)
	if u.XP != 120 {
		t.Fatalf("counters changed by failed accept: %d", u.XP)
	}

	got, err := env.Engine.Repo.GetMission(env.Ctx, m.ID)
	if err != nil || got.SlotsTaken != 1 {
		t.Fatalf("slots_taken after accept: %d (%v)", got.SlotsTaken, err)
	}
}

func TestSlotBoundaryAtSubmissionAcceptance(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", domain.RoleAdvertiser)
	w1 := env.user(t, "w1@example.com", domain.RoleMissionary)
	w2 := env.user(t, "w2@example.com", domain.RoleMissionary)
	m := env.openMission(t, owner, engine.MissionCreateOptions{SlotsMax: 1, BaseXP: 10})

	// applications are not slot-gated
	if _, err := env.Engine.Apply(env.Ctx, w1, m.ID, ""); err != nil {
		t.Fatalf("apply w1: %v", err)
	}
	if _, err := env.Engine.Apply(env.Ctx, w2, m.ID, ""); err != nil {
		t.Fatalf("apply w2: %v", err)
	}

	s1, err := env.Engine.CreateSubmission(env.Ctx, w1, engine.SubmissionCreateOptions{MissionID: m.ID, ProofURL: "https://a"})
	if err != nil {
		t.Fatal(err)
	}
	s2, err := env.Engine.CreateSubmission(env.Ctx, w2, engine.SubmissionCreateOptions{MissionID: m.ID, ProofURL: "https://b"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AcceptSubmission(env.Ctx, owner, s1.ID); err != nil {
		t.Fatalf("accept s1: %v", err)
	}
	if _, err := env.Engine.AcceptSubmission(env.Ctx, owner, s2.ID); !isConflict(err) {
		t.Fatalf("accept s2 with full slots: want conflict, got %v", err)
	}
}

func TestRefuseRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", domain.RoleAdvertiser)
	worker := env.user(t, "worker@example.com", domain.RoleMissionary)
	m := env.openMission(t, owner, engine.MissionCreateOptions{})
	s, err := env.Engine.CreateSubmission(env.Ctx, worker, engine.SubmissionCreateOptions{MissionID: m.ID, ProofShots: []string{"shot1.png"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.RefuseSubmission(env.Ctx, owner, s.ID, "x"); err == nil {
		t.Fatal("one-char reason accepted")
	}
	s, err = env.Engine.RefuseSubmission(env.Ctx, owner, s.ID, "proof does not match the brief")
	if err != nil {
		t.Fatalf("refuse: %v", err)
	}
	if s.Status != domain.SubmissionRefused || s.Reason == nil {
		t.Fatalf("unexpected submission after refuse: %+v", s)
	}
	if _, err := env.Engine.AcceptSubmission(env.Ctx, owner, s.ID); !isConflict(err) {
		t.Fatalf("accept after refuse: want conflict, got %v", err)
	}
}

func TestRefuseOpensSubmissionThread(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", domain.RoleAdvertiser)
	worker := env.user(t, "worker@example.com", domain.RoleMissionary)
	m := env.openMission(t, owner, engine.MissionCreateOptions{})
	s, err := env.Engine.CreateSubmission(env.Ctx, worker, engine.SubmissionCreateOptions{MissionID: m.ID, ProofURL: "https://example.com/proof"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.RefuseSubmission(env.Ctx, owner, s.ID, "proof does not match the brief"); err != nil {
		t.Fatalf("refuse: %v", err)
	}

	threads, err := env.Engine.Repo.ListThreadsForUser(env.Ctx, worker.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	var th domain.Thread
	for _, cand := range threads {
		if cand.SubmissionID != nil && *cand.SubmissionID == s.ID {
			th = cand
		}
	}
	if th.ID == "" {
		t.Fatalf("no thread bound to submission %s, got %+v", s.ID, threads)
	}
	if th.UserA != owner.ID || th.UserB != worker.ID {
		t.Fatalf("unexpected participants: %+v", th)
	}
	msgs, err := env.Engine.Repo.ListMessages(env.Ctx, th.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].SenderID != owner.ID || msgs[0].Body != "proof does not match the brief" {
		t.Fatalf("expected the reason as the opening message, got %+v", msgs)
	}
}

func TestRatingAggregateRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", domain.RoleAdvertiser)
	worker := env.user(t, "worker@example.com", domain.RoleMissionary)
	m := env.openMission(t, owner, engine.MissionCreateOptions{})
	s, err := env.Engine.CreateSubmission(env.Ctx, worker, engine.SubmissionCreateOptions{MissionID: m.ID, ProofURL: "https://a"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AcceptSubmission(env.Ctx, owner, s.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := env.Engine.Rate(env.Ctx, worker, engine.RateOptions{MissionID: m.ID, SubmissionID: s.ID, Score: 4}); err != nil {
		t.Fatalf("first rate: %v", err)
	}
	u, _ := env.Engine.Repo.GetUser(env.Ctx, owner.ID)
	if u.RatingCount != 1 || u.RatingAvg != 4 {
		t.Fatalf("aggregate after first rate: avg=%v count=%d", u.RatingAvg, u.RatingCount)
	}

	if _, err := env.Engine.Rate(env.Ctx, worker, engine.RateOptions{MissionID: m.ID, SubmissionID: s.ID, Score: 2}); err != nil {
		t.Fatalf("update rate: %v", err)
	}
	u, _ = env.Engine.Repo.GetUser(env.Ctx, owner.ID)
	if u.RatingCount != 1 || u.RatingAvg != 2 {
		t.Fatalf("aggregate after update: avg=%v count=%d", u.RatingAvg, u.RatingCount)
	}
}

func TestRatingForbiddenForOthers(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", domain.RoleAdvertiser)
	worker := env.user(t, "worker@example.com", domain.RoleMissionary)
	stranger := env.user(t, "other@example.com", domain.RoleMissionary)
	m := env.openMission(t, owner, engine.MissionCreateOptions{})
	s, _ := env.Engine.CreateSubmission(env.Ctx, worker, engine.SubmissionCreateOptions{MissionID: m.ID, ProofURL: "https://a"})
	if _, err := env.Engine.AcceptSubmission(env.Ctx, owner, s.ID); err != nil {
		t.Fatal(err)
	}
	var fe roles.ForbiddenError
	if _, err := env.Engine.Rate(env.Ctx, stranger, engine.RateOptions{MissionID: m.ID, SubmissionID: s.ID, Score: 5}); !errors.As(err, &fe) {
		t.Fatalf("stranger rating: want forbidden, got %v", err)
	}
}

func TestCloseMissionSweepsFeedPosts(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", domain.RoleAdvertiser)
	autoUser := env.user(t, "auto@example.com", domain.RoleMissionary)
	neverUser := env.user(t, "never@example.com", domain.RoleMissionary)
	askUser := env.user(t, "ask@example.com", domain.RoleMissionary)
	if err := env.Engine.SetFeedPrivacyDefault(env.Ctx, autoUser.ID, domain.PrivacyAuto); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.SetFeedPrivacyDefault(env.Ctx, neverUser.ID, domain.PrivacyNever); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.SetFeedPrivacyDefault(env.Ctx, askUser.ID, domain.PrivacyAsk); err != nil {
		t.Fatal(err)
	}
	m := env.openMission(t, owner, engine.MissionCreateOptions{SlotsMax: 3})

	s1, _ := env.Engine.CreateSubmission(env.Ctx, autoUser, engine.SubmissionCreateOptions{MissionID: m.ID, ProofURL: "https://a"})
	s2, _ := env.Engine.CreateSubmission(env.Ctx, neverUser, engine.SubmissionCreateOptions{MissionID: m.ID, ProofURL: "https://b"})
	s3, _ := env.Engine.CreateSubmission(env.Ctx, askUser, engine.SubmissionCreateOptions{MissionID: m.ID, ProofURL: "https://c"})
	if _, err := env.Engine.AcceptSubmission(env.Ctx, owner, s1.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AcceptSubmission(env.Ctx, owner, s2.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AcceptSubmission(env.Ctx, owner, s3.ID); err != nil {
		t.Fatal(err)
	}

	// record notifications from the close onward
	env.Engine.Notify = notify.SQLSink{Repo: env.Engine.Repo, Now: env.Engine.Now}

	if _, err := env.Engine.CloseMission(env.Ctx, owner, m.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	posts, err := env.Engine.Repo.ListFeedPosts(env.Ctx, repo.FeedFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts (auto published, ask draft), got %d", len(posts))
	}
	byAuthor := map[string]domain.FeedPost{}
	for _, p := range posts {
		byAuthor[p.AuthorID] = p
	}
	if p, ok := byAuthor[autoUser.ID]; !ok || !p.Published {
		t.Fatalf("auto post should be published: %+v", p)
	}
	if p, ok := byAuthor[askUser.ID]; !ok || p.Published {
		t.Fatalf("ask post should be an unpublished draft: %+v", p)
	}
	if _, ok := byAuthor[neverUser.ID]; ok {
		t.Fatal("never user should not get a post")
	}
	notices, err := env.Engine.Repo.ListNotifications(env.Ctx, askUser.ID, false, 0)
	if err != nil {
		t.Fatal(err)
	}
	var drafts int
	for _, n := range notices {
		if n.Type == "feed.draft_ready" {
			drafts++
		}
	}
	if drafts != 1 {
		t.Fatalf("expected 1 draft notification for ask user, got %d", drafts)
	}

	// closing twice is a conflict
	if _, err := env.Engine.CloseMission(env.Ctx, owner, m.ID); !isConflict(err) {
		t.Fatalf("double close: want conflict, got %v", err)
	}
}

func TestReopenRespectsSlots(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", domain.RoleAdvertiser)
	worker := env.user(t, "worker@example.com", domain.RoleMissionary)
	m := env.openMission(t, owner, engine.MissionCreateOptions{SlotsMax: 1})
	s, _ := env.Engine.CreateSubmission(env.Ctx, worker, engine.SubmissionCreateOptions{MissionID: m.ID, ProofURL: "https://a"})
	if _, err := env.Engine.AcceptSubmission(env.Ctx, owner, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CloseMission(env.Ctx, owner, m.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.ReopenMission(env.Ctx, owner, m.ID); !isConflict(err) {
		t.Fatalf("reopen with full slots: want conflict, got %v", err)
	}

	m2 := env.openMission(t, owner, engine.MissionCreateOptions{SlotsMax: 2, Title: "two slots"})
	if _, err := env.Engine.CloseMission(env.Ctx, owner, m2.ID); err != nil {
		t.Fatal(err)
	}
	got, err := env.Engine.ReopenMission(env.Ctx, owner, m2.ID)
	if err != nil || got.Status != domain.MissionOpen {
		t.Fatalf("reopen with free slots: %v status=%s", err, got.Status)
	}
}

func TestFollowGrantsBonusOnce(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com", domain.RoleMissionary)
	b := env.user(t, "b@example.com", domain.RoleAdvertiser)

	if _, err := env.Engine.Follow(env.Ctx, a, b.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}
	u, _ := env.Engine.Repo.GetUser(env.Ctx, a.ID)
	if u.XP != 5 {
		t.Fatalf("xp after follow: %d", u.XP)
	}

	// idempotent re-follow
	if _, err := env.Engine.Follow(env.Ctx, a, b.ID); err != nil {
		t.Fatalf("re-follow: %v", err)
	}
	// unfollow then follow again: no second bonus
	if err := env.Engine.Unfollow(env.Ctx, a, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Follow(env.Ctx, a, b.ID); err != nil {
		t.Fatal(err)
	}
	u, _ = env.Engine.Repo.GetUser(env.Ctx, a.ID)
	if u.XP != 5 {
		t.Fatalf("xp after re-follow cycle: %d", u.XP)
	}
}

func TestRebuildXpCountersMatchesLedger(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", domain.RoleAdvertiser)
	worker := env.user(t, "worker@example.com", domain.RoleMissionary)
	m := env.openMission(t, owner, engine.MissionCreateOptions{Space: domain.SpaceSolid, BaseXP: 50})
	s, _ := env.Engine.CreateSubmission(env.Ctx, worker, engine.SubmissionCreateOptions{MissionID: m.ID, ProofURL: "https://a"})
	if _, err := env.Engine.AcceptSubmission(env.Ctx, owner, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Follow(env.Ctx, worker, owner.ID); err != nil {
		t.Fatal(err)
	}

	// corrupt the cache, then rebuild from the ledger
	if _, err := env.Engine.DB.Exec(`UPDATE users SET xp=999, xp_pro=999, xp_solid=999 WHERE id=?`, worker.ID); err != nil {
		t.Fatal(err)
	}
	counters, err := env.Engine.RebuildXpCounters(env.Ctx, worker.ID)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if counters.Global != 55 || counters.Pro != 0 || counters.Solid != 50 {
		t.Fatalf("rebuilt counters: %+v", counters)
	}
	u, _ := env.Engine.Repo.GetUser(env.Ctx, worker.ID)
	if u.XP != 55 || u.XPPro != 0 || u.XPSolid != 50 {
		t.Fatalf("stored counters after rebuild: xp=%d pro=%d solid=%d", u.XP, u.XPPro, u.XPSolid)
	}
}

func TestRejectMissionPersistsReason(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", domain.RoleAdvertiser)
	admin := roles.Actor{ID: "admin-0", Roles: []string{domain.RoleAdmin}}
	m, err := env.Engine.CreateMission(env.Ctx, owner, engine.MissionCreateOptions{
		Title: "spam", Space: domain.SpacePro, SlotsMax: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	m, err = env.Engine.RejectMission(env.Ctx, admin, m.ID, "violates posting rules")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	got, err := env.Engine.Repo.GetMission(env.Ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.MissionArchived || got.ArchivedReason == nil || *got.ArchivedReason != "violates posting rules" {
		t.Fatalf("unexpected mission after reject: %+v", got)
	}
	// rejection by a non-admin is forbidden
	var fe roles.ForbiddenError
	if _, err := env.Engine.RejectMission(env.Ctx, owner, m.ID, "nope"); !errors.As(err, &fe) {
		t.Fatalf("owner reject: want forbidden, got %v", err)
	}
}

func TestDeliverRewardRequiresAcceptance(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", domain.RoleAdvertiser)
	worker := env.user(t, "worker@example.com", domain.RoleMissionary)
	m := env.openMission(t, owner, engine.MissionCreateOptions{})
	s, _ := env.Engine.CreateSubmission(env.Ctx, worker, engine.SubmissionCreateOptions{MissionID: m.ID, ProofURL: "https://a"})

	if _, err := env.Engine.DeliverReward(env.Ctx, owner, s.ID, "keys", ""); !isConflict(err) {
		t.Fatalf("deliver before accept: want conflict, got %v", err)
	}
	if _, err := env.Engine.AcceptSubmission(env.Ctx, owner, s.ID); err != nil {
		t.Fatal(err)
	}
	got, err := env.Engine.DeliverReward(env.Ctx, owner, s.ID, "keys", "rewards/keys.jpg")
	if err != nil || got.RewardDeliveredAt == nil {
		t.Fatalf("deliver: %v %+v", err, got)
	}
	// re-marking overwrites, it does not fail
	if _, err := env.Engine.DeliverReward(env.Ctx, owner, s.ID, "keys again", ""); err != nil {
		t.Fatalf("re-deliver: %v", err)
	}
}

func TestDirectThreadReuse(t *testing.T) {
	env := newTestEnv(t)
	a := env.user(t, "a@example.com", domain.RoleMissionary)
	b := env.user(t, "b@example.com", domain.RoleAdvertiser)

	th1, err := env.Engine.OpenDirectThread(env.Ctx, a, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	th2, err := env.Engine.OpenDirectThread(env.Ctx, roles.Actor{ID: b.ID, Roles: b.Roles}, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if th1.ID != th2.ID {
		t.Fatalf("expected same thread from either side, got %s vs %s", th1.ID, th2.ID)
	}
	if _, err := env.Engine.PostMessage(env.Ctx, a, th1.ID, "hi"); err != nil {
		t.Fatalf("post: %v", err)
	}
	stranger := env.user(t, "c@example.com", domain.RoleMissionary)
	var fe roles.ForbiddenError
	if _, err := env.Engine.PostMessage(env.Ctx, stranger, th1.ID, "intrude"); !errors.As(err, &fe) {
		t.Fatalf("outsider post: want forbidden, got %v", err)
	}
}

func TestFeedLikeAndCommentCounters(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner@example.com", domain.RoleAdvertiser)
	worker := env.user(t, "worker@example.com", domain.RoleMissionary)
	fan := env.user(t, "fan@example.com", domain.RoleMissionary)
	m := env.openMission(t, owner, engine.MissionCreateOptions{BaseXP: 10})

	if err := env.Engine.SetFeedPrivacyDefault(env.Ctx, worker.ID, domain.PrivacyAuto); err != nil {
		t.Fatalf("set privacy: %v", err)
	}
	s, err := env.Engine.CreateSubmission(env.Ctx, worker, engine.SubmissionCreateOptions{
		MissionID: m.ID, ProofURL: "https://example.com/p",
	})
	if err != nil {
		t.Fatalf("create submission: %v", err)
	}
	if _, err := env.Engine.AcceptSubmission(env.Ctx, owner, s.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	p, err := env.Engine.CreateFeedPost(env.Ctx, worker, s.ID)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if !p.Published {
		t.Fatal("auto privacy should publish immediately")
	}

	p, err = env.Engine.LikeFeedPost(env.Ctx, fan, p.ID)
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if p.LikeCount != 1 {
		t.Fatalf("like_count %d want 1", p.LikeCount)
	}
	if _, err := env.Engine.LikeFeedPost(env.Ctx, fan, p.ID); !isConflict(err) {
		t.Fatalf("second like: want conflict, got %v", err)
	}

	if _, err := env.Engine.CommentFeedPost(env.Ctx, fan, p.ID, "nice work"); err != nil {
		t.Fatalf("comment: %v", err)
	}
	got, err := env.Engine.Repo.GetFeedPost(env.Ctx, p.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got.LikeCount != 1 || got.CommentCount != 1 {
		t.Fatalf("counters like=%d comment=%d want 1/1", got.LikeCount, got.CommentCount)
	}

	p, err = env.Engine.UnlikeFeedPost(env.Ctx, fan, p.ID)
	if err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if p.LikeCount != 0 {
		t.Fatalf("like_count after unlike %d want 0", p.LikeCount)
	}
	// Unliking again stays a no-op.
	if _, err := env.Engine.UnlikeFeedPost(env.Ctx, fan, p.ID); err != nil {
		t.Fatalf("second unlike: %v", err)
	}
}

func TestAdminCreatedMissionOpensImmediately(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin@example.com", domain.RoleAdmin)
	m, err := env.Engine.CreateMission(env.Ctx, admin, engine.MissionCreateOptions{
		Title: "Curated mission", Space: domain.SpacePro, SlotsMax: 1,
	})
	if err != nil {
		t.Fatalf("create mission: %v", err)
	}
	if m.Status != domain.MissionOpen {
		t.Fatalf("status %q want open", m.Status)
	}
}
