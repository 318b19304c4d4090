// Package session keeps the signed-in identity and profile for an app session.
//
// A signed-in snapshot always carries both an identity and a profile that is
// assigned to a hospital; anything less is reported as an error and cleared.
package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/medok/medok-backend/pkg/client"
	"github.com/medok/medok-backend/pkg/enums"
)

const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgEmailTaken         = "Email already registered"
	MsgProfileLoad        = "Failed to load user profile"
	MsgNoHospital         = "User not assigned to a hospital"

	minPasswordLength = 6
)

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrNameRequired     = errors.New("name is required")
	ErrRoleRequired     = errors.New("role is required")
	ErrHospitalRequired = errors.New("hospital is required when a region is selected")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// Error carries the user-facing message while keeping the cause for errors.Is.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

type api interface {
	SignIn(ctx context.Context, email, password string) (*client.AuthResult, error)
	SignUp(ctx context.Context, in client.SignUp) (*client.AuthResult, error)
	SignOut(ctx context.Context) error
	Session(ctx context.Context) (*client.Session, error)
	ChangePassword(ctx context.Context, newPassword, confirm string) error
	Tokens() *client.TokenStore
}

type State struct {
	User    *client.Identity
	Profile *client.Profile
	Loading bool
	Error   string
}

// SignedIn reports a complete signed-in snapshot.
func (s State) SignedIn() bool {
	return s.User != nil && s.Profile != nil && s.Profile.HospitalID != nil
}

// SignUpInput is the registration form. RegionID is only used to check that a hospital was picked.
type SignUpInput struct {
	Email      string
	Password   string
	Name       string
	Role       enums.StaffRole
	Phone      *string
	RegionID   *uuid.UUID
	HospitalID *uuid.UUID
}

type Store struct {
	api api

	mu    sync.RWMutex
	state State
}

func New(c api) *Store {
	return &Store{api: c}
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) ClearError() {
	s.mu.Lock()
	s.state.Error = ""
	s.mu.Unlock()
}

func (s *Store) SignIn(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return s.fail(ErrEmailRequired.Error(), ErrEmailRequired)
	}
	if password == "" {
		return s.fail(ErrPasswordRequired.Error(), ErrPasswordRequired)
	}

	s.setLoading(true)
	res, err := s.api.SignIn(ctx, email, password)
	if err != nil {
		if apiErr, ok := client.AsAPIError(err); ok && apiErr.Status == http.StatusUnauthorized {
			return s.fail(MsgInvalidCredentials, err)
		}
		return s.fail(message(err), err)
	}
	return s.apply(ctx, res.User, res.Profile)
}

func (s *Store) SignUp(ctx context.Context, in SignUpInput) error {
	if err := validateSignUp(&in); err != nil {
		return s.fail(err.Error(), err)
	}

	s.setLoading(true)
	res, err := s.api.SignUp(ctx, client.SignUp{
		Email:      in.Email,
		Password:   in.Password,
		Name:       in.Name,
		Role:       in.Role,
		Phone:      in.Phone,
		RegionID:   in.RegionID,
		HospitalID: in.HospitalID,
	})
	if err != nil {
		if apiErr, ok := client.AsAPIError(err); ok && apiErr.Status == http.StatusConflict {
			return s.fail(MsgEmailTaken, err)
		}
		return s.fail(message(err), err)
	}
	return s.apply(ctx, res.User, res.Profile)
}

func validateSignUp(in *SignUpInput) error {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Email == "":
		return ErrEmailRequired
	case in.Password == "":
		return ErrPasswordRequired
	case len(in.Password) < minPasswordLength:
		return ErrPasswordTooShort
	case in.Name == "":
		return ErrNameRequired
	case in.Role == "":
		return ErrRoleRequired
	case in.RegionID != nil && in.HospitalID == nil:
		return ErrHospitalRequired
	}
	return nil
}

// SignOut always leaves the store signed out; a failed revoke is still reported.
func (s *Store) SignOut(ctx context.Context) error {
	err := s.api.SignOut(ctx)
	s.mu.Lock()
	s.state = State{}
	if err != nil {
		s.state.Error = message(err)
	}
	s.mu.Unlock()
	return err
}

// Restore reloads the stored session. Failures end up in the snapshot, never in a return value.
func (s *Store) Restore(ctx context.Context) {
	if !s.api.Tokens().HasSession() {
		s.mu.Lock()
		s.state = State{}
		s.mu.Unlock()
		return
	}

	s.setLoading(true)
	sess, err := s.api.Session(ctx)
	if err != nil {
		if client.IsAuthError(err) {
			s.api.Tokens().Clear()
		}
		_ = s.fail(message(err), err)
		return
	}
	_ = s.apply(ctx, sess.User, sess.Profile)
}

func (s *Store) ChangePassword(ctx context.Context, newPassword, confirm string) error {
	if len(newPassword) < minPasswordLength {
		return s.setError(ErrPasswordTooShort.Error(), ErrPasswordTooShort)
	}
	if newPassword != confirm {
		return s.setError(ErrPasswordMismatch.Error(), ErrPasswordMismatch)
	}
	if err := s.api.ChangePassword(ctx, newPassword, confirm); err != nil {
		return s.setError(message(err), err)
	}
	s.ClearError()
	return nil
}

// apply enforces the signed-in invariant. A rejected session is signed out
// on the server too so its refresh token does not outlive the local state.
func (s *Store) apply(ctx context.Context, user *client.Identity, profile *client.Profile) error {
	if user == nil || profile == nil {
		s.discardSession(ctx)
		return s.fail(MsgProfileLoad, errors.New("profile missing from session"))
	}
	if profile.HospitalID == nil {
		s.discardSession(ctx)
		return s.fail(MsgNoHospital, errors.New("profile has no hospital"))
	}
	s.mu.Lock()
	s.state = State{User: user, Profile: profile}
	s.mu.Unlock()
	return nil
}

// discardSession revokes the server session when it can; the local tokens
// are cleared either way.
func (s *Store) discardSession(ctx context.Context) {
	if err := s.api.SignOut(ctx); err != nil {
		s.api.Tokens().Clear()
	}
}

// fail clears identity and profile, records msg and returns it as an *Error.
func (s *Store) fail(msg string, cause error) error {
	s.mu.Lock()
	s.state = State{Error: msg}
	s.mu.Unlock()
	return &Error{Message: msg, Err: cause}
}

// setError records msg without touching the signed-in state.
func (s *Store) setError(msg string, cause error) error {
	s.mu.Lock()
	s.state.Error = msg
	s.mu.Unlock()
	return &Error{Message: msg, Err: cause}
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.state.Loading = v
	s.state.Error = ""
	s.mu.Unlock()
}

func message(err error) string {
	if apiErr, ok := client.AsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
