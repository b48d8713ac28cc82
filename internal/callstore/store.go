package callstore

import (
	"context"
	"time"
)

const keyPrefix = "dialin:call:"

// CallRecord is the room handed out for one vendor call id. It is kept only
// for the token lifetime so that webhook redeliveries reuse the same room.
type CallRecord struct {
	CallID     string    `json:"call_id"`
	CallDomain string    `json:"call_domain,omitempty"`
	Vendor     string    `json:"vendor"`
	RoomURL    string    `json:"room_url"`
	SIPURI     string    `json:"sip_uri"`
	CreatedAt  time.Time `json:"created_at"`

	// Pending marks a call whose room is still being provisioned.
	Pending bool `json:"pending,omitempty"`
}

// Store is safe for concurrent use.
type Store interface {
	Get(ctx context.Context, callID string) (CallRecord, bool, error)
	Put(ctx context.Context, record CallRecord, ttl time.Duration) error
	// Reserve stores record only when no live record exists for its call id.
	// It reports whether this caller now owns the call.
	Reserve(ctx context.Context, record CallRecord, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, callID string) error
}

func key(callID string) string {
	return keyPrefix + callID
}
