package missionboardsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal MissionBoard HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	ActiveRole  string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Mission represents the API mission model (partial).
type Mission struct {
	ID         string `json:"id"`
	OwnerID    string `json:"owner_id"`
	Title      string `json:"title"`
	Space      string `json:"space"`
	Status     string `json:"status"`
	SlotsMax   int    `json:"slots_max"`
	SlotsTaken int    `json:"slots_taken"`
	BaseXP     int64  `json:"base_xp"`
	BonusXP    int64  `json:"bonus_xp"`
}

// Application represents a missionary's application to a mission.
type Application struct {
	ID        string `json:"id"`
	MissionID string `json:"mission_id"`
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// Submission represents completed work awaiting decision.
type Submission struct {
	ID        string `json:"id"`
	MissionID string `json:"mission_id"`
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
	ProofURL  string `json:"proof_url,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Level describes progression derived from one XP counter.
type Level struct {
	Tier           string  `json:"tier"`
	SubLevel       int     `json:"sub_level"`
	Level          int     `json:"level"`
	XPInLevel      int64   `json:"xp_in_level"`
	XPForNextLevel int64   `json:"xp_for_next_level"`
	Progress       float64 `json:"progress"`
}

// Profile is a user plus derived levels.
type Profile struct {
	User struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		XP      int64  `json:"xp"`
		XPPro   int64  `json:"xp_pro"`
		XPSolid int64  `json:"xp_solid"`
	} `json:"user"`
	Level      Level `json:"level"`
	LevelPro   Level `json:"level_pro"`
	LevelSolid Level `json:"level_solidaire"`
}

// FeedPost is a published realization entry.
type FeedPost struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submission_id"`
	AuthorID     string `json:"author_id"`
	Published    bool   `json:"published"`
	CreatedAt    string `json:"created_at"`
}

// XpEvent is one ledger row.
type XpEvent struct {
	ID        int64  `json:"id"`
	UserID    string `json:"user_id"`
	MissionID string `json:"mission_id,omitempty"`
	Kind      string `json:"kind"`
	Delta     int64  `json:"delta"`
	Space     string `json:"space,omitempty"`
	CreatedAt string `json:"created_at"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateMission posts a mission; it stays pending until an admin approves it.
func (c *Client) CreateMission(ctx context.Context, title, space string, slotsMax int, baseXP, bonusXP int64) (Mission, error) {
	body := map[string]any{
		"title":     title,
		"space":     space,
		"slots_max": slotsMax,
		"base_xp":   baseXP,
		"bonus_xp":  bonusXP,
	}
	var resp Mission
	err := c.do(ctx, http.MethodPost, "v1/missions", body, &resp)
	return resp, err
}

// Missions lists missions, optionally filtered by space and status.
func (c *Client) Missions(ctx context.Context, space, status string, limit int) ([]Mission, error) {
	endpoint := "v1/missions"
	q := url.Values{}
	if space != "" {
		q.Set("space", space)
	}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Mission
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Apply applies to an open mission.
func (c *Client) Apply(ctx context.Context, missionID, message string) (Application, error) {
	body := map[string]any{"message": message}
	var resp Application
	endpoint := fmt.Sprintf("v1/missions/%s/apply", url.PathEscape(missionID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// Submit records proof of completed work.
func (c *Client) Submit(ctx context.Context, missionID, proofURL string, shots []string) (Submission, error) {
	body := map[string]any{
		"mission_id":  missionID,
		"proof_url":   proofURL,
		"proof_shots": shots,
	}
	var resp Submission
	err := c.do(ctx, http.MethodPost, "v1/submissions", body, &resp)
	return resp, err
}

// AcceptSubmission accepts pending work, claiming a slot and granting XP.
func (c *Client) AcceptSubmission(ctx context.Context, submissionID string) (Submission, error) {
	var resp Submission
	endpoint := fmt.Sprintf("v1/submissions/%s/accept", url.PathEscape(submissionID))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// RefuseSubmission refuses pending work with a reason.
func (c *Client) RefuseSubmission(ctx context.Context, submissionID, reason string) (Submission, error) {
	body := map[string]any{"reason": reason}
	var resp Submission
	endpoint := fmt.Sprintf("v1/submissions/%s/refuse", url.PathEscape(submissionID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (Profile, error) {
	var resp Profile
	err := c.do(ctx, http.MethodGet, "v1/me", nil, &resp)
	return resp, err
}

// UserProfile returns any user's public profile.
func (c *Client) UserProfile(ctx context.Context, userID string) (Profile, error) {
	var resp Profile
	endpoint := fmt.Sprintf("v1/users/%s", url.PathEscape(userID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Feed lists published feed posts.
func (c *Client) Feed(ctx context.Context, limit int) ([]FeedPost, error) {
	endpoint := "v1/feed"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []FeedPost
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// XpEvents lists the authenticated user's XP ledger.
func (c *Client) XpEvents(ctx context.Context, limit int, cursor int64) ([]XpEvent, error) {
	endpoint := "v1/me/xp/events"
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor > 0 {
		q.Set("cursor", fmt.Sprintf("%d", cursor))
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []XpEvent
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// FollowUser follows a user.
func (c *Client) FollowUser(ctx context.Context, userID string) error {
	endpoint := fmt.Sprintf("v1/users/%s/follow", url.PathEscape(userID))
	return c.do(ctx, http.MethodPost, endpoint, nil, nil)
}

// UnfollowUser unfollows a user.
func (c *Client) UnfollowUser(ctx context.Context, userID string) error {
	endpoint := fmt.Sprintf("v1/users/%s/follow", url.PathEscape(userID))
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	if c.ActiveRole != "" {
		req.Header.Set("X-Active-Role", c.ActiveRole)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
