package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/medok/medok-backend/pkg/enums"
)

func (c *Client) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   apiPrefix + "/auth/login",
		body:   map[string]string{"email": email, "password": password},
	}, &out)
	if err != nil {
		return nil, err
	}
	c.tokens.Set(Tokens{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken})
	return &out, nil
}

// SignUp registers and signs in.
func (c *Client) SignUp(ctx context.Context, in SignUp) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, request{method: http.MethodPost, path: apiPrefix + "/auth/register", body: in}, &out); err != nil {
		return nil, err
	}
	c.tokens.Set(Tokens{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken})
	return &out, nil
}

// SignOut revokes the server session. Local tokens are cleared even when the call fails.
func (c *Client) SignOut(ctx context.Context) error {
	defer c.tokens.Clear()
	if c.tokens.AccessToken() == "" {
		return nil
	}
	return c.do(ctx, request{method: http.MethodPost, path: apiPrefix + "/auth/logout"}, nil)
}

// Refresh rotates the stored token pair.
func (c *Client) Refresh(ctx context.Context) (*AuthResult, error) {
	current := c.tokens.Get()
	if current.RefreshToken == "" {
		return nil, ErrNotSignedIn
	}
	var out AuthResult
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   apiPrefix + "/auth/refresh",
		body:   map[string]string{"refresh_token": current.RefreshToken},
		bearer: current.AccessToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	c.tokens.Set(Tokens{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken})
	return &out, nil
}

func (c *Client) Session(ctx context.Context) (*Session, error) {
	var out Session
	if err := c.do(ctx, request{method: http.MethodGet, path: apiPrefix + "/auth/session"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ChangePassword(ctx context.Context, newPassword, confirm string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   apiPrefix + "/auth/password",
		body:   map[string]string{"new_password": newPassword, "confirm_password": confirm},
	}, nil)
}

func (c *Client) Regions(ctx context.Context) ([]Region, error) {
	var out []Region
	err := c.do(ctx, request{method: http.MethodGet, path: apiPrefix + "/regions"}, &out)
	return out, err
}

func (c *Client) Hospitals(ctx context.Context, regionID uuid.UUID) ([]Hospital, error) {
	var out []Hospital
	err := c.do(ctx, request{method: http.MethodGet, path: apiPrefix + "/regions/" + regionID.String() + "/hospitals"}, &out)
	return out, err
}

func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, request{method: http.MethodGet, path: apiPrefix + "/profiles/me"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Profile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, request{method: http.MethodGet, path: apiPrefix + "/profiles/" + id.String()}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMe(ctx context.Context, in ProfileUpdate) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, request{method: http.MethodPatch, path: apiPrefix + "/profiles/me", body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Team lists the caller's hospital colleagues ordered by role, then name.
func (c *Client) Team(ctx context.Context) ([]Profile, error) {
	var out []Profile
	err := c.do(ctx, request{method: http.MethodGet, path: apiPrefix + "/team"}, &out)
	return out, err
}

// Shifts loads a month (YYYY-MM), seeding the default rotation server-side when it is empty.
func (c *Client) Shifts(ctx context.Context, month string) ([]Shift, error) {
	var out []Shift
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   apiPrefix + "/shifts",
		query:  url.Values{"month": {month}},
	}, &out)
	return out, err
}

func (c *Client) CreateShift(ctx context.Context, date string, shiftType enums.ShiftType) (*Shift, error) {
	var out Shift
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   apiPrefix + "/shifts",
		body:   map[string]any{"date": date, "type": shiftType},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateShift(ctx context.Context, id uuid.UUID, shiftType enums.ShiftType) (*Shift, error) {
	var out Shift
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   apiPrefix + "/shifts/" + id.String(),
		body:   map[string]any{"type": shiftType},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Exchanges(ctx context.Context, limit int, cursor string) (*ExchangePage, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	var out ExchangePage
	if err := c.do(ctx, request{method: http.MethodGet, path: apiPrefix + "/exchanges", query: query}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RequestExchange(ctx context.Context, shiftID, requestedUserID uuid.UUID) (*Exchange, error) {
	var out Exchange
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   apiPrefix + "/exchanges",
		body:   map[string]uuid.UUID{"shift_id": shiftID, "requested_user_id": requestedUserID},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RespondToExchange(ctx context.Context, requestID uuid.UUID, accept bool) (*Exchange, error) {
	var out Exchange
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   apiPrefix + "/exchanges/" + requestID.String() + "/respond",
		body:   map[string]bool{"accept": accept},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Rooms(ctx context.Context) ([]Room, error) {
	var out []Room
	err := c.do(ctx, request{method: http.MethodGet, path: apiPrefix + "/chat/rooms"}, &out)
	return out, err
}

func (c *Client) Messages(ctx context.Context, roomID uuid.UUID) ([]Message, error) {
	var out []Message
	err := c.do(ctx, request{method: http.MethodGet, path: apiPrefix + "/chat/rooms/" + roomID.String() + "/messages"}, &out)
	return out, err
}

func (c *Client) SendMessage(ctx context.Context, roomID uuid.UUID, content string) (*Message, error) {
	var out Message
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   apiPrefix + "/chat/rooms/" + roomID.String() + "/messages",
		body:   map[string]string{"content": content},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
