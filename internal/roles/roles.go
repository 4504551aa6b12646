package roles

import (
	"context"
	"database/sql"
	"fmt"

	"missionboard/internal/domain"
)

// ForbiddenError indicates the actor lacks a required role.
type ForbiddenError struct {
	Role string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("role %s required", e.Role)
}

// Actor is the authenticated caller plus the role it is acting under.
type Actor struct {
	ID         string
	Roles      []string
	ActiveRole string
}

func (a Actor) Has(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a Actor) IsAdmin() bool {
	return a.Has(domain.RoleAdmin)
}

// Require checks that the actor holds the role, either directly or via admin.
func (a Actor) Require(role string) error {
	if a.Has(role) || a.IsAdmin() {
		return nil
	}
	return ForbiddenError{Role: role}
}

// RequireActive checks the acting role, not just membership. A caller that
// holds both sides must pick one per request.
func (a Actor) RequireActive(role string) error {
	if a.IsAdmin() {
		return nil
	}
	if !a.Has(role) {
		return ForbiddenError{Role: role}
	}
	if a.ActiveRole != "" && a.ActiveRole != role {
		return ForbiddenError{Role: role}
	}
	return nil
}

// Service resolves role membership from SQL.
type Service struct {
	DB *sql.DB
}

func (s Service) Resolve(ctx context.Context, actorID, activeRole string) (Actor, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT role FROM user_roles WHERE user_id=?`, actorID)
	if err != nil {
		return Actor{}, err
	}
	defer rows.Close()
	actor := Actor{ID: actorID, ActiveRole: activeRole}
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return Actor{}, err
		}
		actor.Roles = append(actor.Roles, r)
	}
	return actor, rows.Err()
}
