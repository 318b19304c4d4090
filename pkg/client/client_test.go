package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testKey = "anon-key"

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeErr(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": code, "message": msg}})
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, APIKey: testKey, HTTPClient: srv.Client()})
	require.NoError(t, err)
	return c, srv
}

func TestNewRequiresBaseURLAndKey(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	require.ErrorIs(t, err, ErrMissingConfig)

	_, err = New(Config{BaseURL: "http://localhost:8080"})
	require.ErrorIs(t, err, ErrMissingConfig)

	_, err = New(Config{BaseURL: "http://localhost:8080/", APIKey: "k"})
	require.NoError(t, err)
}

func TestSignInStoresTokensAndSendsHeaders(t *testing.T) {
	var (
		mu      sync.Mutex
		sawAuth string
	)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, testKey, r.Header.Get("apikey"))
		switch r.URL.Path {
		case "/api/v1/auth/login":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "ana@example.com", body["email"])
			writeData(w, http.StatusOK, map[string]any{"access_token": "a1", "refresh_token": "r1"})
		case "/api/v1/profiles/me":
			mu.Lock()
			sawAuth = r.Header.Get("Authorization")
			mu.Unlock()
			writeData(w, http.StatusOK, map[string]any{"id": uuid.NewString(), "name": "Ana"})
		default:
			http.NotFound(w, r)
		}
	})

	res, err := c.SignIn(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, "a1", res.AccessToken)
	require.True(t, c.Tokens().HasSession())

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Ana", me.Name)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "Bearer a1", sawAuth)
}

func TestErrorEnvelopeDecodesToAPIError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
	})

	_, err := c.SignIn(context.Background(), "ana@example.com", "wrong")
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	require.True(t, apiErr.IsAuth())
	require.Equal(t, "UNAUTHORIZED", apiErr.Code)
	require.Equal(t, "invalid credentials", apiErr.Message)
	require.False(t, c.Tokens().HasSession())
}

func TestNonEnvelopeErrorKeepsStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := c.Regions(context.Background())
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadGateway, apiErr.Status)
	require.Equal(t, "bad gateway", apiErr.Message)
}

func TestTransportErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := New(Config{BaseURL: srv.URL, APIKey: testKey})
	require.NoError(t, err)
	srv.Close()

	_, err = c.Rooms(context.Background())
	require.True(t, IsTransportError(err))
	_, isAPI := AsAPIError(err)
	require.False(t, isAPI)
}

func TestRefreshRotatesTokens(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/auth/refresh", r.URL.Path)
		require.Equal(t, "Bearer old-access", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "old-refresh", body["refresh_token"])
		writeData(w, http.StatusOK, map[string]any{"access_token": "new-access", "refresh_token": "new-refresh"})
	})
	c.Tokens().Set(Tokens{AccessToken: "old-access", RefreshToken: "old-refresh"})

	_, err := c.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, Tokens{AccessToken: "new-access", RefreshToken: "new-refresh"}, c.Tokens().Get())
}

func TestRefreshWithoutSession(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	_, err := c.Refresh(context.Background())
	require.ErrorIs(t, err, ErrNotSignedIn)
}

func TestSignOutClearsTokensOnFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusInternalServerError, "INTERNAL_ERROR", "boom")
	})
	c.Tokens().Set(Tokens{AccessToken: "a", RefreshToken: "r"})

	require.Error(t, c.SignOut(context.Background()))
	require.False(t, c.Tokens().HasSession())
}

func TestMutationsCarryIdempotencyKey(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
	)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		mu.Unlock()
		writeData(w, http.StatusCreated, map[string]any{"id": uuid.NewString(), "status": "pending"})
	})

	_, err := c.RequestExchange(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	_, err = c.RequestExchange(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, keys, 2)
	require.NotEmpty(t, keys[0])
	require.NotEqual(t, keys[0], keys[1])
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestCheckAvatar(t *testing.T) {
	ct, err := CheckAvatar(pngHeader)
	require.NoError(t, err)
	require.Equal(t, "image/png", ct)

	_, err = CheckAvatar([]byte("plain text, not an image"))
	require.ErrorIs(t, err, ErrAvatarType)

	_, err = CheckAvatar(bytes.Repeat([]byte{0}, MaxAvatarBytes+1))
	require.ErrorIs(t, err, ErrAvatarTooLarge)
}

func TestUploadAvatarChecksBeforeSending(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "image/png", header.Header.Get("Content-Type"))
		data, _ := io.ReadAll(file)
		require.Equal(t, pngHeader, data)
		writeData(w, http.StatusOK, map[string]any{"id": uuid.NewString(), "avatar_url": "https://cdn/x.png"})
	})

	_, err := c.UploadAvatar(context.Background(), []byte("GIF? no"))
	require.True(t, errors.Is(err, ErrAvatarType))
	require.Zero(t, hits.Load())

	profile, err := c.UploadAvatar(context.Background(), pngHeader)
	require.NoError(t, err)
	require.Equal(t, "https://cdn/x.png", *profile.AvatarURL)
	require.EqualValues(t, 1, hits.Load())
}

func TestRoomStreamDecodesEvents(t *testing.T) {
	roomID := uuid.New()
	msgID := uuid.New()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/chat/rooms/"+roomID.String()+"/stream", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "event: ready\ndata: {\"room_id\":%q}\n\n", roomID)
		fmt.Fprint(w, ": ping\n\n")
		fmt.Fprintf(w, "event: message\ndata: {\"id\":%q,\"room_id\":%q,\"content\":\"hola\"}\n\n", msgID, roomID)
	})

	stream, err := c.OpenRoomStream(context.Background(), roomID)
	require.NoError(t, err)
	defer stream.Close()

	ev, err := stream.Next()
	require.NoError(t, err)
	require.Equal(t, EventReady, ev.Name)

	ev, err = stream.Next()
	require.NoError(t, err)
	msg, err := ev.Message()
	require.NoError(t, err)
	require.Equal(t, msgID, msg.ID)
	require.Equal(t, "hola", msg.Content)

	_, err = stream.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestRoomStreamRejectedBeforeHeaders(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusServiceUnavailable, "DEPENDENCY_ERROR", "realtime unavailable")
	})

	_, err := c.OpenRoomStream(context.Background(), uuid.New())
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	require.True(t, strings.Contains(apiErr.Error(), "DEPENDENCY_ERROR"))
}
