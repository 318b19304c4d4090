// Package chat keeps the room list, the selected room's history and its realtime feed.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/medok/medok-backend/pkg/client"
)

const (
	reconnectBase     = 500 * time.Millisecond
	reconnectCap      = 30 * time.Second
	reconnectAttempts = 8
	reconnectJitter   = 20

	// DefaultStableAfter is how long a feed must stay up before a drop
	// counts as a fresh failure rather than another retry.
	DefaultStableAfter = 10 * time.Second
)

// ErrNoRoom is returned by SendMessage before a room is selected.
var ErrNoRoom = errors.New("no chat room selected")

type api interface {
	Rooms(ctx context.Context) ([]client.Room, error)
	Messages(ctx context.Context, roomID uuid.UUID) ([]client.Message, error)
	SendMessage(ctx context.Context, roomID uuid.UUID, content string) (*client.Message, error)
	OpenRoomStream(ctx context.Context, roomID uuid.UUID) (*client.Stream, error)
}

// DefaultBackoff is the reconnect policy: exponential from 500ms, jittered,
// capped at 30s and abandoned after 8 retries.
func DefaultBackoff() retry.Backoff {
	b := retry.NewExponential(reconnectBase)
	b = retry.WithJitterPercent(reconnectJitter, b)
	b = retry.WithCappedDuration(reconnectCap, b)
	return retry.WithMaxRetries(reconnectAttempts, b)
}

type State struct {
	Rooms    []client.Room
	RoomID   *uuid.UUID
	Messages []client.Message
	Loading  bool
	Error    string
	// RealtimeUnavailable is set once reconnecting gave up; selecting a room clears it.
	RealtimeUnavailable bool
}

type Options struct {
	// Backoff builds a fresh reconnect policy per subscription. Defaults to DefaultBackoff.
	Backoff func() retry.Backoff

	// StableAfter defaults to DefaultStableAfter.
	StableAfter time.Duration
}

type Store struct {
	api         api
	backoff     func() retry.Backoff
	stableAfter time.Duration

	mu    sync.RWMutex
	state State
	sub   *subscription
}

type subscription struct {
	roomID uuid.UUID
	cancel context.CancelFunc
	done   chan struct{}
}

func New(c api, opts Options) *Store {
	backoff := opts.Backoff
	if backoff == nil {
		backoff = DefaultBackoff
	}
	stableAfter := opts.StableAfter
	if stableAfter <= 0 {
		stableAfter = DefaultStableAfter
	}
	return &Store{api: c, backoff: backoff, stableAfter: stableAfter}
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state
	out.Rooms = append([]client.Room(nil), s.state.Rooms...)
	out.Messages = append([]client.Message(nil), s.state.Messages...)
	return out
}

// LoadRooms refreshes the room list, keeps the selected room when it still
// exists (otherwise picks the first) and loads that room.
func (s *Store) LoadRooms(ctx context.Context) {
	rooms, err := s.api.Rooms(ctx)
	if err != nil {
		s.readFailed(err)
		return
	}

	s.mu.Lock()
	s.state.Rooms = rooms
	var next *uuid.UUID
	if current := s.state.RoomID; current != nil && containsRoom(rooms, *current) {
		id := *current
		next = &id
	} else if len(rooms) > 0 {
		id := rooms[0].ID
		next = &id
	}
	s.mu.Unlock()

	if next != nil {
		s.SelectRoom(ctx, *next)
	}
}

// SelectRoom replaces any running subscription with one for this room and
// loads its history. The feed is opened first so nothing published while the
// history loads is missed; append drops the overlap.
func (s *Store) SelectRoom(ctx context.Context, roomID uuid.UUID) {
	s.stopSubscription()

	s.mu.Lock()
	id := roomID
	s.state.RoomID = &id
	s.state.Messages = nil
	s.state.Loading = true
	s.state.RealtimeUnavailable = false
	s.mu.Unlock()

	subCtx, cancel := context.WithCancel(context.Background())
	stopOnCaller := context.AfterFunc(ctx, cancel)
	stream, err := s.api.OpenRoomStream(subCtx, roomID)
	stopOnCaller()
	if err != nil {
		stream = nil
	}

	if !s.reloadMessages(ctx, roomID) {
		if stream != nil {
			_ = stream.Close()
		}
		cancel()
		return
	}
	s.startSubscription(subCtx, cancel, roomID, stream)
}

// SendMessage posts to the selected room. The message shows up through the realtime feed.
// Transport failures are returned without touching the visible error.
func (s *Store) SendMessage(ctx context.Context, content string) error {
	s.mu.RLock()
	current := s.state.RoomID
	s.mu.RUnlock()
	if current == nil {
		return s.setError(ErrNoRoom)
	}
	if _, err := s.api.SendMessage(ctx, *current, content); err != nil {
		if client.IsTransportError(err) {
			return err
		}
		return s.setError(err)
	}
	return nil
}

// Close stops the realtime subscription and waits for it to exit.
func (s *Store) Close() {
	s.stopSubscription()
}

func (s *Store) reloadMessages(ctx context.Context, roomID uuid.UUID) bool {
	msgs, err := s.api.Messages(ctx, roomID)
	if err != nil {
		s.readFailed(err)
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.RoomID == nil || *s.state.RoomID != roomID {
		return false
	}
	s.state.Messages = msgs
	s.state.Loading = false
	s.state.Error = ""
	return true
}

// readFailed applies the read policy: session errors empty the state silently,
// transport errors keep it, anything else is shown.
func (s *Store) readFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	switch {
	case client.IsAuthError(err):
		s.state.Rooms = nil
		s.state.Messages = nil
		s.state.Error = ""
	case client.IsTransportError(err):
	default:
		s.state.Error = message(err)
	}
}

func (s *Store) startSubscription(ctx context.Context, cancel context.CancelFunc, roomID uuid.UUID, stream *client.Stream) {
	sub := &subscription{roomID: roomID, cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	go func() {
		defer close(sub.done)
		s.follow(ctx, roomID, stream)
	}()
}

func (s *Store) stopSubscription() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()
	if sub == nil {
		return
	}
	sub.cancel()
	<-sub.done
}

// follow keeps the room feed open, reconnecting on failure until the backoff
// gives up. stream is the already opened first connection, or nil when that
// open failed. Only a connection that stayed up for stableAfter resets the
// backoff, so a server that drops every stream right after ready still runs
// out of retries.
func (s *Store) follow(ctx context.Context, roomID uuid.UUID, stream *client.Stream) {
	backoff := s.backoff()
	for {
		if stream != nil {
			if s.consume(roomID, stream) {
				backoff = s.backoff()
			}
			stream = nil
		}
		if ctx.Err() != nil {
			return
		}

		delay, stop := backoff.Next()
		if stop {
			s.mu.Lock()
			s.state.RealtimeUnavailable = true
			s.mu.Unlock()
			return
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		reopened, err := s.api.OpenRoomStream(ctx, roomID)
		if err != nil {
			continue
		}
		stream = reopened
		// Messages sent while disconnected are picked up by reloading the history.
		s.reloadMessages(ctx, roomID)
	}
}

// consume reads stream until it ends and reports whether it stayed up for
// stableAfter past its ready event.
func (s *Store) consume(roomID uuid.UUID, stream *client.Stream) bool {
	defer stream.Close()

	var readyAt time.Time
	for {
		ev, err := stream.Next()
		if err != nil {
			return !readyAt.IsZero() && time.Since(readyAt) >= s.stableAfter
		}
		switch ev.Name {
		case client.EventReady:
			readyAt = time.Now()
		case client.EventMessage:
			msg, err := ev.Message()
			if err != nil {
				continue
			}
			s.append(roomID, msg)
		}
	}
}

func (s *Store) append(roomID uuid.UUID, msg client.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.RoomID == nil || *s.state.RoomID != roomID || msg.RoomID != roomID {
		return
	}
	for _, existing := range s.state.Messages {
		if existing.ID == msg.ID {
			return
		}
	}
	s.state.Messages = append(s.state.Messages, msg)
}

func (s *Store) setError(err error) error {
	s.mu.Lock()
	s.state.Error = message(err)
	s.mu.Unlock()
	return err
}

func containsRoom(rooms []client.Room, id uuid.UUID) bool {
	for _, r := range rooms {
		if r.ID == id {
			return true
		}
	}
	return false
}

func message(err error) string {
	if apiErr, ok := client.AsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
