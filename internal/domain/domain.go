package domain

// Spaces a mission can belong to.
const (
	SpacePro   = "pro"
	SpaceSolid = "solidaire"
)

// Mission statuses.
const (
	MissionPending  = "pending"
	MissionOpen     = "open"
	MissionClosed   = "closed"
	MissionArchived = "archived"
)

// Application statuses.
const (
	ApplicationPending  = "pending"
	ApplicationAccepted = "accepted"
	ApplicationRejected = "rejected"
)

// Submission statuses.
const (
	SubmissionPending  = "pending"
	SubmissionAccepted = "accepted"
	SubmissionRefused  = "refused"
)

// Feed privacy values. Inherit is only valid as a per-submission override.
const (
	PrivacyInherit = "inherit"
	PrivacyAuto    = "auto"
	PrivacyAsk     = "ask"
	PrivacyNever   = "never"
)

// Roles a user can hold.
const (
	RoleMissionary = "missionary"
	RoleAdvertiser = "advertiser"
	RoleAdmin      = "admin"
)

type User struct {
	ID                 string   `json:"id"`
	Email              string   `json:"email"`
	DisplayName        string   `json:"display_name,omitempty"`
	Roles              []string `json:"roles,omitempty"`
	XP                 int64    `json:"xp"`
	XPPro              int64    `json:"xp_pro"`
	XPSolid            int64    `json:"xp_solid"`
	FeedPrivacyDefault string   `json:"feed_privacy_default" enum:"auto,ask,never"`
	RatingAvg          float64  `json:"rating_avg"`
	RatingCount        int      `json:"rating_count"`
	CreatedAt          string   `json:"created_at" format:"date-time"`
}

type Mission struct {
	ID             string  `json:"id"`
	OwnerID        string  `json:"owner_id"`
	OrgID          *string `json:"org_id,omitempty"`
	Space          string  `json:"space" enum:"pro,solidaire"`
	Status         string  `json:"status" enum:"pending,open,closed,archived"`
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	SlotsMax       int     `json:"slots_max"`
	SlotsTaken     int     `json:"slots_taken"`
	BaseXP         int64   `json:"base_xp"`
	BonusXP        int64   `json:"bonus_xp"`
	Hidden         bool    `json:"hidden"`
	Featured       bool    `json:"featured"`
	ArchivedReason *string `json:"archived_reason,omitempty"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
	UpdatedAt      string  `json:"updated_at" format:"date-time"`
}

type Application struct {
	ID        string  `json:"id"`
	MissionID string  `json:"mission_id"`
	UserID    string  `json:"user_id"`
	Status    string  `json:"status" enum:"pending,accepted,rejected"`
	ThreadID  string  `json:"thread_id"`
	DecidedAt *string `json:"decided_at,omitempty" format:"date-time"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

type Submission struct {
	ID                string   `json:"id"`
	MissionID         string   `json:"mission_id"`
	UserID            string   `json:"user_id"`
	Status            string   `json:"status" enum:"pending,accepted,refused"`
	ProofURL          *string  `json:"proof_url,omitempty"`
	ProofShots        []string `json:"proof_shots,omitempty"`
	PrivacyOverride   string   `json:"privacy_override" enum:"inherit,auto,ask,never"`
	Reason            *string  `json:"reason,omitempty"`
	DecisionAt        *string  `json:"decision_at,omitempty" format:"date-time"`
	RewardDeliveredAt *string  `json:"reward_delivered_at,omitempty" format:"date-time"`
	RewardNote        *string  `json:"reward_note,omitempty"`
	RewardMediaPath   *string  `json:"reward_media_path,omitempty"`
	CreatedAt         string   `json:"created_at" format:"date-time"`
}

// Thread is bound to an Application XOR a Submission, or neither for a
// direct conversation between two users.
type Thread struct {
	ID            string  `json:"id"`
	ApplicationID *string `json:"application_id,omitempty"`
	SubmissionID  *string `json:"submission_id,omitempty"`
	UserA         string  `json:"user_a"`
	UserB         string  `json:"user_b"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
}

type Message struct {
	ID        string `json:"id"`
	ThreadID  string `json:"thread_id"`
	SenderID  string `json:"sender_id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Rating struct {
	ID           string  `json:"id"`
	RaterID      string  `json:"rater_id"`
	MissionID    string  `json:"mission_id"`
	SubmissionID string  `json:"submission_id"`
	Score        int     `json:"score" minimum:"1" maximum:"5"`
	Comment      *string `json:"comment,omitempty"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
	UpdatedAt    string  `json:"updated_at" format:"date-time"`
}

// XpEvent is one append-only ledger row. The sum of a user's deltas is the
// authoritative XP total; the counters on User are a derived cache.
type XpEvent struct {
	ID        int64   `json:"id"`
	UserID    string  `json:"user_id"`
	MissionID *string `json:"mission_id,omitempty"`
	Kind      string  `json:"kind"`
	Delta     int64   `json:"delta"`
	Space     *string `json:"space,omitempty" enum:"pro,solidaire"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

// XpEvent kinds.
const (
	XpKindSubmissionAccepted = "submission.accepted"
	XpKindFollow             = "follow.created"
	XpKindAdminBonus         = "admin.bonus"
)

type FeedPost struct {
	ID            string `json:"id"`
	AuthorID      string `json:"author_id"`
	MissionID     string `json:"mission_id"`
	SubmissionID  string `json:"submission_id"`
	Published     bool   `json:"published"`
	EditableUntil string `json:"editable_until" format:"date-time"`
	LikeCount     int    `json:"like_count"`
	CommentCount  int    `json:"comment_count"`
	CreatedAt     string `json:"created_at" format:"date-time"`
}

type FeedComment struct {
	ID        string `json:"id"`
	PostID    string `json:"post_id"`
	UserID    string `json:"user_id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Follow struct {
	FollowerID string  `json:"follower_id"`
	TargetID   string  `json:"target_id"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
	DeletedAt  *string `json:"deleted_at,omitempty" format:"date-time"`
}

type Notification struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	Type        string  `json:"type"`
	PayloadJSON string  `json:"payload_json"`
	ReadAt      *string `json:"read_at,omitempty" format:"date-time"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
