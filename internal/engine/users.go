package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"missionboard/internal/domain"
	"missionboard/internal/xp"
)

type UserCreateOptions struct {
	ID                 string
	Email              string
	DisplayName        string
	Roles              []string
	FeedPrivacyDefault string
}

func (e Engine) CreateUser(ctx context.Context, opts UserCreateOptions) (domain.User, error) {
	email := strings.TrimSpace(opts.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, ValidationError{Field: "email", Reason: "valid email required"}
	}
	privacy := opts.FeedPrivacyDefault
	if privacy == "" {
		privacy = domain.PrivacyAsk
	}
	if privacy == domain.PrivacyInherit || !validPrivacy(privacy) {
		return domain.User{}, ValidationError{Field: "feed_privacy_default", Reason: "must be auto, ask or never"}
	}
	for _, r := range opts.Roles {
		switch r {
		case domain.RoleMissionary, domain.RoleAdvertiser, domain.RoleAdmin:
		default:
			return domain.User{}, ValidationError{Field: "roles", Reason: "unknown role " + r}
		}
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	u := domain.User{
		ID:                 id,
		Email:              email,
		DisplayName:        strings.TrimSpace(opts.DisplayName),
		Roles:              opts.Roles,
		FeedPrivacyDefault: privacy,
		CreatedAt:          e.nowRFC(),
	}
	if err := e.Repo.InsertUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	for _, r := range opts.Roles {
		if err := e.Repo.GrantRole(ctx, u.ID, r); err != nil {
			return domain.User{}, err
		}
	}
	return u, nil
}

// Profile is a user plus the level progression derived from each counter.
type Profile struct {
	User       domain.User `json:"user"`
	Level      xp.Progress `json:"level"`
	LevelPro   xp.Progress `json:"level_pro"`
	LevelSolid xp.Progress `json:"level_solidaire"`
}

func (e Engine) UserProfile(ctx context.Context, id string) (Profile, error) {
	u, err := e.Repo.GetUser(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	roles, err := e.Repo.ListRoles(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	u.Roles = roles
	return Profile{
		User:       u,
		Level:      xp.Level(u.XP, true),
		LevelPro:   xp.Level(u.XPPro, false),
		LevelSolid: xp.Level(u.XPSolid, false),
	}, nil
}

func (e Engine) SetFeedPrivacyDefault(ctx context.Context, userID, privacy string) error {
	if privacy == domain.PrivacyInherit || !validPrivacy(privacy) {
		return ValidationError{Field: "feed_privacy_default", Reason: "must be auto, ask or never"}
	}
	return e.Repo.UpdateUserPrivacyDefault(ctx, userID, privacy)
}
