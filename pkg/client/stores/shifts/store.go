// Package shifts keeps the caller's month calendar and exchange requests.
package shifts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medok/medok-backend/pkg/client"
	"github.com/medok/medok-backend/pkg/enums"
)

const (
	monthLayout = "2006-01"
	pageSize    = 25
)

type api interface {
	Shifts(ctx context.Context, month string) ([]client.Shift, error)
	CreateShift(ctx context.Context, date string, shiftType enums.ShiftType) (*client.Shift, error)
	UpdateShift(ctx context.Context, id uuid.UUID, shiftType enums.ShiftType) (*client.Shift, error)
	Exchanges(ctx context.Context, limit int, cursor string) (*client.ExchangePage, error)
	RequestExchange(ctx context.Context, shiftID, requestedUserID uuid.UUID) (*client.Exchange, error)
	RespondToExchange(ctx context.Context, requestID uuid.UUID, accept bool) (*client.Exchange, error)
}

type State struct {
	Month      string
	Shifts     []client.Shift
	Requests   []client.Exchange
	NextCursor string
	Loading    bool
	Error      string
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
	out.Shifts = append([]client.Shift(nil), s.state.Shifts...)
	out.Requests = append([]client.Exchange(nil), s.state.Requests...)
	return out
}

// LoadShifts loads the month containing month. On failure the previously loaded shifts stay.
func (s *Store) LoadShifts(ctx context.Context, month time.Time) error {
	key := month.Format(monthLayout)
	s.mu.Lock()
	s.state.Loading = true
	s.state.Error = ""
	s.mu.Unlock()

	rows, err := s.api.Shifts(ctx, key)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	if err != nil {
		s.state.Error = message(err)
		return err
	}
	s.state.Month = key
	s.state.Shifts = rows
	return nil
}

// CreateShift upserts one day and reloads its month.
func (s *Store) CreateShift(ctx context.Context, date time.Time, shiftType enums.ShiftType) error {
	if _, err := s.api.CreateShift(ctx, date.Format(time.DateOnly), shiftType); err != nil {
		return s.setError(err)
	}
	return s.LoadShifts(ctx, date)
}

// UpdateShift changes a shift's type and reloads the month of its date once the server confirms.
func (s *Store) UpdateShift(ctx context.Context, id uuid.UUID, shiftType enums.ShiftType) error {
	updated, err := s.api.UpdateShift(ctx, id, shiftType)
	if err != nil {
		return s.setError(err)
	}
	date, err := time.Parse(time.DateOnly, updated.Date)
	if err != nil {
		return s.setError(fmt.Errorf("shift %s has invalid date %q: %w", id, updated.Date, err))
	}
	return s.LoadShifts(ctx, date)
}

// LoadRequests loads the first page of requests the caller sent or received, newest first.
func (s *Store) LoadRequests(ctx context.Context) error {
	page, err := s.api.Exchanges(ctx, pageSize, "")
	if err != nil {
		return s.setError(err)
	}
	s.mu.Lock()
	s.state.Requests = page.Items
	s.state.NextCursor = page.NextCursor
	s.mu.Unlock()
	return nil
}

// LoadMoreRequests appends the next page. It is a no-op once the list is exhausted.
func (s *Store) LoadMoreRequests(ctx context.Context) error {
	s.mu.RLock()
	cursor := s.state.NextCursor
	s.mu.RUnlock()
	if cursor == "" {
		return nil
	}
	page, err := s.api.Exchanges(ctx, pageSize, cursor)
	if err != nil {
		return s.setError(err)
	}
	s.mu.Lock()
	s.state.Requests = append(s.state.Requests, page.Items...)
	s.state.NextCursor = page.NextCursor
	s.mu.Unlock()
	return nil
}

// RequestExchange offers a shift to a colleague. The server mails them accept and reject links.
func (s *Store) RequestExchange(ctx context.Context, shiftID, requestedUserID uuid.UUID) error {
	if _, err := s.api.RequestExchange(ctx, shiftID, requestedUserID); err != nil {
		return s.setError(err)
	}
	return s.LoadRequests(ctx)
}

func (s *Store) RespondToRequest(ctx context.Context, requestID uuid.UUID, accept bool) error {
	if _, err := s.api.RespondToExchange(ctx, requestID, accept); err != nil {
		return s.setError(err)
	}
	return s.LoadRequests(ctx)
}

func (s *Store) setError(err error) error {
	s.mu.Lock()
	s.state.Loading = false
	s.state.Error = message(err)
	s.mu.Unlock()
	return err
}

func message(err error) string {
	if apiErr, ok := client.AsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
