package server

import "missionboard/internal/xp"

// LevelResponse carries just the derived progression of a profile.
type LevelResponse struct {
	Level      xp.Progress `json:"level"`
	LevelPro   xp.Progress `json:"level_pro"`
	LevelSolid xp.Progress `json:"level_solidaire"`
}

// Request payloads

type CreateUserRequest struct {
	Email              string   `json:"email" format:"email"`
	DisplayName        string   `json:"display_name,omitempty"`
	Roles              []string `json:"roles,omitempty"`
	FeedPrivacyDefault string   `json:"feed_privacy_default,omitempty" enum:"auto,ask,never"`
}

type SetPrivacyRequest struct {
	FeedPrivacyDefault string `json:"feed_privacy_default" enum:"auto,ask,never"`
}

type CreateMissionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Space       string `json:"space" enum:"pro,solidaire"`
	OrgID       string `json:"org_id,omitempty"`
	SlotsMax    int    `json:"slots_max" minimum:"1"`
	BaseXP      int64  `json:"base_xp,omitempty" minimum:"0"`
	BonusXP     int64  `json:"bonus_xp,omitempty" minimum:"0"`
	Hidden      bool   `json:"hidden,omitempty"`
	Featured    bool   `json:"featured,omitempty"`
}

type UpdateMissionRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	SlotsMax    *int    `json:"slots_max,omitempty"`
	BaseXP      *int64  `json:"base_xp,omitempty"`
	BonusXP     *int64  `json:"bonus_xp,omitempty"`
	Hidden      *bool   `json:"hidden,omitempty"`
	Featured    *bool   `json:"featured,omitempty"`
}

type RejectMissionRequest struct {
	Reason string `json:"reason,omitempty" maxLength:"500"`
}

type ApplyRequest struct {
	Message string `json:"message,omitempty" maxLength:"2000"`
}

type CreateSubmissionRequest struct {
	MissionID       string   `json:"mission_id"`
	ProofURL        string   `json:"proof_url,omitempty" format:"uri"`
	ProofShots      []string `json:"proof_shots,omitempty"`
	PrivacyOverride string   `json:"privacy_override,omitempty" enum:"inherit,auto,ask,never"`
}

type RefuseSubmissionRequest struct {
	Reason string `json:"reason" minLength:"2" maxLength:"500"`
}

type DeliverRewardRequest struct {
	Note      string `json:"note,omitempty" maxLength:"500"`
	MediaPath string `json:"media_path,omitempty"`
}

type RateRequest struct {
	MissionID    string `json:"mission_id"`
	SubmissionID string `json:"submission_id"`
	Score        int    `json:"score" minimum:"1" maximum:"5"`
	Comment      string `json:"comment,omitempty" maxLength:"1000"`
}

type PostMessageRequest struct {
	Body string `json:"body" minLength:"1" maxLength:"2000"`
}

type OpenThreadRequest struct {
	UserID string `json:"user_id"`
}

type CreateFeedPostRequest struct {
	SubmissionID string `json:"submission_id"`
}

type CommentFeedPostRequest struct {
	Body string `json:"body" minLength:"1" maxLength:"1000"`
}

type PublishFeedPostRequest struct {
	Published bool `json:"published"`
}

type SignMediaRequest struct {
	Path       string `json:"path" minLength:"1"`
	TTLSeconds int    `json:"ttl_seconds,omitempty" minimum:"0" maximum:"86400"`
}

type AdminBonusRequest struct {
	Delta int64  `json:"delta"`
	Space string `json:"space,omitempty" enum:"pro,solidaire"`
}
