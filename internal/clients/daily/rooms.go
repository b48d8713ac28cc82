package daily

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
)

const (
	DefaultSIPDisplayName  = "dialin-user"
	DefaultSIPMode         = "dial-in"
	DefaultSIPNumEndpoints = 1
)

var ErrInvalidRoomURL = errors.New("invalid room url")

// SIPParams are the dial-in properties of a room.
type SIPParams struct {
	DisplayName  string `json:"display_name,omitempty"`
	Video        bool   `json:"video"`
	SIPMode      string `json:"sip_mode,omitempty"`
	NumEndpoints int    `json:"num_endpoints,omitempty"`
}

type RoomProperties struct {
	SIP *SIPParams `json:"sip,omitempty"`
	Exp int64      `json:"exp,omitempty"`
}

// RoomParams is the body of a room creation request.
type RoomParams struct {
	Name       string         `json:"name,omitempty"`
	Privacy    string         `json:"privacy,omitempty"`
	Properties RoomProperties `json:"properties"`
}

// DialinRoomParams returns the room defaults used for inbound calls.
func DialinRoomParams() RoomParams {
	return RoomParams{
		Properties: RoomProperties{
			SIP: &SIPParams{
				DisplayName:  DefaultSIPDisplayName,
				Video:        false,
				SIPMode:      DefaultSIPMode,
				NumEndpoints: DefaultSIPNumEndpoints,
			},
		},
	}
}

type RoomConfig struct {
	SIPEndpoint string     `json:"-"`
	SIP         *SIPParams `json:"sip,omitempty"`
	SIPURI      struct {
		Endpoint string `json:"endpoint"`
	} `json:"sip_uri"`
}

// Room is a Daily room as returned by the rooms API.
type Room struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	URL     string     `json:"url"`
	Privacy string     `json:"privacy"`
	Config  RoomConfig `json:"config"`
}

func (r *Room) normalize() {
	r.Config.SIPEndpoint = r.Config.SIPURI.Endpoint
}

// CreateRoom creates a room with the given properties.
func (c *Client) CreateRoom(ctx context.Context, params RoomParams) (Room, error) {
	var room Room
	if err := c.do(ctx, http.MethodPost, "/rooms", nil, params, &room); err != nil {
		return Room{}, fmt.Errorf("failed to create room: %w", err)
	}
	room.normalize()
	return room, nil
}

// GetRoomFromURL looks up an existing room by its URL.
func (c *Client) GetRoomFromURL(ctx context.Context, roomURL string) (Room, error) {
	name, err := RoomNameFromURL(roomURL)
	if err != nil {
		return Room{}, err
	}

	var room Room
	if err := c.do(ctx, http.MethodGet, "/rooms/"+url.PathEscape(name), nil, nil, &room); err != nil {
		return Room{}, fmt.Errorf("failed to get room %s: %w", roomURL, err)
	}
	room.normalize()
	return room, nil
}

// UpsertSIPRoom creates or updates a named room with dial-in enabled.
func (c *Client) UpsertSIPRoom(ctx context.Context, name, displayName string) (Room, error) {
	body := RoomParams{
		Properties: RoomProperties{
			SIP: &SIPParams{DisplayName: displayName, SIPMode: DefaultSIPMode},
		},
	}
	var room Room
	if err := c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(name), nil, body, &room); err != nil {
		return Room{}, fmt.Errorf("failed to configure room %s: %w", name, err)
	}
	room.normalize()
	return room, nil
}

// DeleteRoom deletes a room by name.
func (c *Client) DeleteRoom(ctx context.Context, name string) error {
	if err := c.do(ctx, http.MethodDelete, "/rooms/"+url.PathEscape(name), nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete room %s: %w", name, err)
	}
	return nil
}

// RoomNameFromURL returns the last path segment of a room URL.
func RoomNameFromURL(roomURL string) (string, error) {
	u, err := url.Parse(roomURL)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidRoomURL, roomURL, err)
	}
	name := path.Base(strings.TrimRight(u.Path, "/"))
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("%w: %s", ErrInvalidRoomURL, roomURL)
	}
	return name, nil
}
