package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"missionboard/internal/domain"
	"missionboard/internal/repo"
)

// Sink receives user-facing notifications. Delivery is best effort and must
// never fail the operation that produced it.
type Sink interface {
	Notify(ctx context.Context, userID, typ string, payload any)
}

// SQLSink persists notifications for later retrieval over the API.
type SQLSink struct {
	Repo repo.Repo
	Now  func() time.Time
}

func (s SQLSink) Notify(ctx context.Context, userID, typ string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("notify: marshal %s for %s: %v", typ, userID, err)
		return
	}
	now := s.now().UTC().Format(time.RFC3339)
	n := domain.Notification{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        typ,
		PayloadJSON: string(body),
		CreatedAt:   now,
	}
	if err := s.Repo.InsertNotification(ctx, n); err != nil {
		log.Printf("notify: insert %s for %s: %v", typ, userID, err)
	}
}

func (s SQLSink) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Discard drops everything. Used in tests and CLI paths that do not care.
type Discard struct{}

func (Discard) Notify(context.Context, string, string, any) {}
