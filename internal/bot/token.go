package bot

import (
	"errors"
	"fmt"
	"time"

	"q-pipecat/internal/clients/daily"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid meeting token")
	ErrExpiredToken = errors.New("meeting token expired")
	ErrTokenRoom    = errors.New("meeting token is for a different room")
)

// tokenClaims covers the meeting token claims the agent checks. Daily writes
// the room as "r"; "room_name" is accepted for tokens minted elsewhere.
type tokenClaims struct {
	Room     string `json:"r,omitempty"`
	RoomName string `json:"room_name,omitempty"`
	jwt.RegisteredClaims
}

func (c tokenClaims) room() string {
	if c.Room != "" {
		return c.Room
	}
	return c.RoomName
}

// ValidateToken inspects the meeting token without verifying its signature;
// only the Room Provider holds the key. It rejects expired tokens and tokens
// scoped to a room other than roomURL.
func ValidateToken(token, roomURL string, now time.Time) error {
	var claims tokenClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return fmt.Errorf("%w at %s", ErrExpiredToken, claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
	}

	if room := claims.room(); room != "" {
		roomName, err := daily.RoomNameFromURL(roomURL)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		if room != roomName {
			return fmt.Errorf("%w: token room %q, agent room %q", ErrTokenRoom, room, roomName)
		}
	}

	return nil
}
