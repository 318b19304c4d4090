// Package team loads the caller's hospital colleagues.
package team

import (
	"context"
	"sync"

	"github.com/medok/medok-backend/pkg/client"
)

const (
	MsgNoHospital = "User not assigned to a hospital"

	codeHospitalUnassigned = "HOSPITAL_UNASSIGNED"
)

type api interface {
	Me(ctx context.Context) (*client.Profile, error)
	Team(ctx context.Context) ([]client.Profile, error)
}

type State struct {
	Members []client.Profile
	Loading bool
	Error   string
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
	out := s.state
	out.Members = append([]client.Profile(nil), s.state.Members...)
	return out
}

// Load resolves the caller's hospital and then its members. It fails closed:
// every error path leaves an empty list.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	s.state.Loading = true
	s.state.Error = ""
	s.mu.Unlock()

	me, err := s.api.Me(ctx)
	if err != nil {
		s.finish(nil, readError(err))
		return
	}
	if me.HospitalID == nil {
		s.finish(nil, MsgNoHospital)
		return
	}

	members, err := s.api.Team(ctx)
	if err != nil {
		s.finish(nil, readError(err))
		return
	}
	s.finish(members, "")
}

func (s *Store) finish(members []client.Profile, msg string) {
	if members == nil {
		members = []client.Profile{}
	}
	s.mu.Lock()
	s.state = State{Members: members, Error: msg}
	s.mu.Unlock()
}

// readError maps a failed read to the message shown to the user. Session errors are swallowed.
func readError(err error) string {
	if apiErr, ok := client.AsAPIError(err); ok {
		switch {
		case apiErr.IsAuth():
			return ""
		case apiErr.Code == codeHospitalUnassigned:
			return MsgNoHospital
		case apiErr.Message != "":
			return apiErr.Message
		}
	}
	return err.Error()
}
