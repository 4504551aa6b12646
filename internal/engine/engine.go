package engine

import (
	"database/sql"
	"fmt"
	"time"

	"missionboard/internal/config"
	"missionboard/internal/domain"
	"missionboard/internal/ledger"
	"missionboard/internal/notify"
	"missionboard/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Ledger ledger.Writer
	Config *config.Config
	Notify notify.Sink
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	r := repo.Repo{DB: db}
	return Engine{
		DB:     db,
		Repo:   r,
		Ledger: ledger.Writer{DB: db},
		Config: cfg,
		Notify: notify.SQLSink{Repo: r},
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowRFC() string {
	return e.now().UTC().Format(time.RFC3339)
}

// ledgerWriter returns the ledger writer stamped with the engine's clock so
// xp_events timestamps follow an injected Now.
func (e Engine) ledgerWriter() ledger.Writer {
	w := e.Ledger
	if w.Now == nil {
		w.Now = e.Now
	}
	return w
}

func (e Engine) feedEditWindow() time.Duration {
	if e.Config != nil && e.Config.Feed.EditWindowMinutes > 0 {
		return time.Duration(e.Config.Feed.EditWindowMinutes) * time.Minute
	}
	return 60 * time.Minute
}

func (e Engine) maxFollows() int {
	if e.Config != nil && e.Config.Follows.Max > 0 {
		return e.Config.Follows.Max
	}
	return 50
}

// ConflictError reports a lifecycle precondition violated at commit time:
// already decided, already applied, slots full, mission not open.
type ConflictError struct {
	Reason string
}

func (e ConflictError) Error() string {
	return e.Reason
}

// ValidationError reports a malformed or out-of-range input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func ensureMissionTransition(oldStatus, newStatus string) error {
	switch oldStatus {
	case domain.MissionPending:
		if newStatus == domain.MissionOpen || newStatus == domain.MissionArchived {
			return nil
		}
	case domain.MissionOpen:
		if newStatus == domain.MissionClosed || newStatus == domain.MissionArchived {
			return nil
		}
	case domain.MissionClosed:
		if newStatus == domain.MissionOpen || newStatus == domain.MissionArchived {
			return nil
		}
	}
	return ConflictError{Reason: fmt.Sprintf("mission cannot move from %s to %s", oldStatus, newStatus)}
}

func ensureUndecidedApplication(status string) error {
	if status != domain.ApplicationPending {
		return ConflictError{Reason: "application already decided"}
	}
	return nil
}

func ensureUndecidedSubmission(status string) error {
	if status != domain.SubmissionPending {
		return ConflictError{Reason: "submission already decided"}
	}
	return nil
}

func validSpace(space string) bool {
	return space == domain.SpacePro || space == domain.SpaceSolid
}

func validPrivacy(p string) bool {
	switch p {
	case domain.PrivacyInherit, domain.PrivacyAuto, domain.PrivacyAsk, domain.PrivacyNever:
		return true
	}
	return false
}
