package realtime

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"
)

type fakeSubscription struct {
	ch     chan []byte
	closed chan struct{}
}

func (f *fakeSubscription) Messages() <-chan []byte { return f.ch }

func (f *fakeSubscription) Close() error {
	close(f.closed)
	return nil
}

type fakeSource struct {
	subscribeFn func(ctx context.Context, roomID uuid.UUID) (Subscription, error)
}

func (f fakeSource) Subscribe(ctx context.Context, roomID uuid.UUID) (Subscription, error) {
	return f.subscribeFn(ctx, roomID)
}

func TestRelayStreamsMessagesAndHeartbeats(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	roomID := uuid.New()
	sub := &fakeSubscription{ch: make(chan []byte, 1), closed: make(chan struct{})}
	relay := NewRelay(fakeSource{subscribeFn: func(_ context.Context, got uuid.UUID) (Subscription, error) {
		if got != roomID {
			t.Errorf("unexpected room %s", got)
		}
		return sub, nil
	}}, 10*time.Millisecond, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := relay.Stream(r.Context(), w, roomID); err != nil {
			t.Errorf("stream: %v", err)
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readUntil(t, reader, "event: ready")
	readUntil(t, reader, ": ping")

	sub.ch <- []byte(`{"content":"hello"}`)
	readUntil(t, reader, "event: message")
	line := readUntil(t, reader, "data:")
	if !strings.Contains(line, `"content":"hello"`) {
		t.Fatalf("unexpected data line %q", line)
	}

	cancel()
	select {
	case <-sub.closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("subscription not closed after client disconnect")
	}
	client.CloseIdleConnections()
}

func TestRelayRequiresFlusher(t *testing.T) {
	relay := NewRelay(fakeSource{}, time.Second, nil)
	err := relay.Stream(context.Background(), nonFlusher{}, uuid.New())
	if !errors.Is(err, ErrStreamingUnsupported) {
		t.Fatalf("expected ErrStreamingUnsupported, got %v", err)
	}
}

func TestRelaySubscribeFailure(t *testing.T) {
	relay := NewRelay(fakeSource{subscribeFn: func(context.Context, uuid.UUID) (Subscription, error) {
		return nil, errors.New("redis down")
	}}, time.Second, nil)
	rec := httptest.NewRecorder()
	if err := relay.Stream(context.Background(), rec, uuid.New()); err == nil {
		t.Fatalf("expected subscribe error")
	}
}

func readUntil(t *testing.T, r *bufio.Reader, prefix string) string {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream waiting for %q: %v", prefix, err)
		}
		if strings.HasPrefix(line, prefix) {
			return line
		}
	}
}

type nonFlusher struct{}

func (nonFlusher) Header() http.Header        { return http.Header{} }
func (nonFlusher) Write(b []byte) (int, error) { return len(b), nil }
func (nonFlusher) WriteHeader(int)             {}
