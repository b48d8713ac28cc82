package daily

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrEmptyToken = errors.New("daily returned an empty meeting token")

type tokenProperties struct {
	RoomName string `json:"room_name"`
	Exp      int64  `json:"exp"`
	IsOwner  bool   `json:"is_owner"`
}

type tokenRequest struct {
	Properties tokenProperties `json:"properties"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// GetToken mints an owner meeting token for the room that expires after expiry.
func (c *Client) GetToken(ctx context.Context, roomURL string, expiry time.Duration) (string, error) {
	name, err := RoomNameFromURL(roomURL)
	if err != nil {
		return "", err
	}

	body := tokenRequest{
		Properties: tokenProperties{
			RoomName: name,
			Exp:      c.now().Add(expiry).Unix(),
			IsOwner:  true,
		},
	}

	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/meeting-tokens", nil, body, &resp); err != nil {
		return "", fmt.Errorf("failed to get meeting token for %s: %w", roomURL, err)
	}
	if resp.Token == "" {
		return "", ErrEmptyToken
	}
	return resp.Token, nil
}
