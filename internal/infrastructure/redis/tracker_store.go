package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	"github.com/cassiomorais/leadpay/internal/domain/tracker"
)

// TrackerStore keeps return trackers in Redis with a TTL matching the
// confirmation window. Expiry is enforced both by Redis and by the
// CreatedAt check on read, so a clock-skewed entry can never outlive
// its window.
type TrackerStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTrackerStore(client *redis.Client, ttl time.Duration) *TrackerStore {
	if ttl <= 0 {
		ttl = tracker.DefaultTTL
	}
	return &TrackerStore{client: client, ttl: ttl}
}

type trackerRecord struct {
	Method             string    `json:"method"`
	AttemptID          uuid.UUID `json:"attempt_id"`
	ProviderSessionRef string    `json:"provider_session_ref,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

func trackerKey(key tracker.Key) string {
	return fmt.Sprintf("tracker:%s:%s:%s:%d",
		key.ContextID, key.LeadID, key.ContractAcceptanceID, key.InstallmentPart)
}

// Put overwrites any tracker already stored under the same slot.
func (s *TrackerStore) Put(ctx context.Context, key tracker.Key, t *tracker.ReturnTracker) error {
	rec := trackerRecord{
		Method:             string(t.Method),
		AttemptID:          t.AttemptID,
		ProviderSessionRef: t.ProviderSessionRef,
		CreatedAt:          t.CreatedAt,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal tracker: %w", err)
	}

	if err := s.client.Set(ctx, trackerKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store tracker: %w", err)
	}

	return nil
}

// Get returns nil with no error when the slot is empty or the entry has
// outlived the confirmation window.
func (s *TrackerStore) Get(ctx context.Context, key tracker.Key) (*tracker.ReturnTracker, error) {
	data, err := s.client.Get(ctx, trackerKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tracker: %w", err)
	}

	var rec trackerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tracker: %w", err)
	}

	t := &tracker.ReturnTracker{
		Method:             attempt.Method(rec.Method),
		AttemptID:          rec.AttemptID,
		ProviderSessionRef: rec.ProviderSessionRef,
		CreatedAt:          rec.CreatedAt,
	}

	if t.ExpiredAt(time.Now(), s.ttl) {
		return nil, nil
	}

	return t, nil
}

// Delete is idempotent: removing an absent slot is not an error.
func (s *TrackerStore) Delete(ctx context.Context, key tracker.Key) error {
	if err := s.client.Del(ctx, trackerKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete tracker: %w", err)
	}
	return nil
}
