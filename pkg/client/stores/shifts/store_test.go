package shifts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/medok/medok-backend/pkg/client"
	"github.com/medok/medok-backend/pkg/enums"
)

type fakeServer struct {
	mu        sync.Mutex
	months    []string
	failShift bool
	pages     map[string]map[string]any
	created   int
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/shifts", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		month := r.URL.Query().Get("month")
		f.months = append(f.months, month)
		if f.failShift {
			writeError(w, http.StatusServiceUnavailable, "DEPENDENCY_ERROR", "database unavailable")
			return
		}
		writeData(w, []client.Shift{
			{ID: uuid.New(), Date: month + "-01", Type: enums.ShiftTypeDay},
			{ID: uuid.New(), Date: month + "-02", Type: enums.ShiftTypeOff},
		})
	})
	mux.HandleFunc("POST /api/v1/shifts", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeData(w, client.Shift{ID: uuid.New(), Date: body["date"], Type: enums.ShiftType(body["type"])})
	})
	mux.HandleFunc("PATCH /api/v1/shifts/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == forbiddenShift.String() {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "shift belongs to another user")
			return
		}
		writeData(w, client.Shift{ID: uuid.MustParse(r.PathValue("id")), Date: "2025-02-10", Type: enums.ShiftTypeNight})
	})
	mux.HandleFunc("GET /api/v1/exchanges", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeData(w, f.pages[r.URL.Query().Get("cursor")])
	})
	mux.HandleFunc("POST /api/v1/exchanges", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.created++
		f.mu.Unlock()
		writeData(w, client.Exchange{ID: uuid.New(), Status: enums.ExchangeStatusPending})
	})
	return mux
}

var forbiddenShift = uuid.MustParse("00000000-0000-0000-0000-000000000403")

func (f *fakeServer) requestedMonths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.months...)
}

func writeData(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": payload})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": code, "message": msg}})
}

func newStore(t *testing.T, f *fakeServer) *Store {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	c, err := client.New(client.Config{BaseURL: srv.URL, APIKey: "anon", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return New(c)
}

func TestLoadShiftsKeepsPreviousRowsOnError(t *testing.T) {
	f := &fakeServer{}
	store := newStore(t, f)
	march := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.LoadShifts(context.Background(), march))
	before := store.Snapshot()
	require.Equal(t, "2025-03", before.Month)
	require.Len(t, before.Shifts, 2)

	f.mu.Lock()
	f.failShift = true
	f.mu.Unlock()
	err := store.LoadShifts(context.Background(), march.AddDate(0, 1, 0))
	require.Error(t, err)

	after := store.Snapshot()
	require.Equal(t, "database unavailable", after.Error)
	require.False(t, after.Loading)
	require.Equal(t, "2025-03", after.Month)
	if diff := cmp.Diff(before.Shifts, after.Shifts); diff != "" {
		t.Fatalf("shifts changed on failed load (-before +after):\n%s", diff)
	}
}

func TestUpdateShiftReloadsMonthOfShiftDate(t *testing.T) {
	f := &fakeServer{}
	store := newStore(t, f)

	require.NoError(t, store.UpdateShift(context.Background(), uuid.New(), enums.ShiftTypeNight))

	require.Equal(t, []string{"2025-02"}, f.requestedMonths())
	require.Equal(t, "2025-02", store.Snapshot().Month)
}

func TestUpdateShiftForbiddenSetsError(t *testing.T) {
	f := &fakeServer{}
	store := newStore(t, f)

	err := store.UpdateShift(context.Background(), forbiddenShift, enums.ShiftTypeNight)

	require.Error(t, err)
	require.Equal(t, "shift belongs to another user", store.Snapshot().Error)
	require.Empty(t, f.requestedMonths())
}

func TestCreateShiftReloadsMonth(t *testing.T) {
	f := &fakeServer{}
	store := newStore(t, f)

	require.NoError(t, store.CreateShift(context.Background(), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), enums.ShiftTypeOff))

	require.Equal(t, []string{"2024-02"}, f.requestedMonths())
}

func TestRequestsPaginate(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	f := &fakeServer{pages: map[string]map[string]any{
		"":   {"items": []client.Exchange{{ID: first, Status: enums.ExchangeStatusPending}}, "next_cursor": "c1"},
		"c1": {"items": []client.Exchange{{ID: second, Status: enums.ExchangeStatusAccepted}}},
	}}
	store := newStore(t, f)

	require.NoError(t, store.LoadRequests(context.Background()))
	require.Equal(t, "c1", store.Snapshot().NextCursor)

	require.NoError(t, store.LoadMoreRequests(context.Background()))
	snap := store.Snapshot()
	require.Len(t, snap.Requests, 2)
	require.Equal(t, second, snap.Requests[1].ID)
	require.Empty(t, snap.NextCursor)

	require.NoError(t, store.LoadMoreRequests(context.Background()))
	require.Len(t, store.Snapshot().Requests, 2)
}

func TestRequestExchangeReloadsRequests(t *testing.T) {
	f := &fakeServer{pages: map[string]map[string]any{
		"": {"items": []client.Exchange{{ID: uuid.New(), Status: enums.ExchangeStatusPending}}},
	}}
	store := newStore(t, f)

	require.NoError(t, store.RequestExchange(context.Background(), uuid.New(), uuid.New()))

	require.Len(t, store.Snapshot().Requests, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Equal(t, 1, f.created)
}
