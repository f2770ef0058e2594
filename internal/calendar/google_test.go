package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventbot/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	order     *database.Order
	performer *database.Performer

	clearedTokens []string
	savedEventID  string
}

func (f *fakeStore) GetOrder(_ context.Context, id int64) (*database.Order, error) {
	if f.order == nil || f.order.ID != id {
		return nil, database.ErrOrderNotFound
	}
	return f.order, nil
}

func (f *fakeStore) GetPerformer(_ context.Context, name string) (*database.Performer, error) {
	if f.performer == nil || f.performer.Name != name {
		return nil, database.ErrPerformerNotFound
	}
	return f.performer, nil
}

func (f *fakeStore) ClearPerformerTokens(_ context.Context, performerName string) error {
	f.clearedTokens = append(f.clearedTokens, performerName)
	return nil
}

func (f *fakeStore) SetCalendarEventID(_ context.Context, _ int64, eventID string) error {
	f.savedEventID = eventID
	return nil
}

func testOrder() *database.Order {
	return &database.Order{
		ID:         7,
		UserName:   "Иван Петров",
		Date:       "20.07.2025",
		Time:       "14:00",
		Location:   "Главный зал",
		Performers: "Анна",
		Program:    "Тесла шоу",
		Amount:     "5000",
		Status:     database.StatusPending,
	}
}

func testPerformer() *database.Performer {
	return &database.Performer{
		ID:           1,
		Name:         "Анна",
		GoogleTokens: `{"access_token":"tok-123"}`,
	}
}

func TestSyncOrderCreatesEvent(t *testing.T) {
	var gotAuth string
	var gotBody eventBody

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/calendars/primary/events", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "evt-42"})
	}))
	defer srv.Close()

	store := &fakeStore{order: testOrder(), performer: testPerformer()}
	s := NewSyncer(store)
	s.serverAddr = srv.URL

	s.SyncOrder(context.Background(), 7)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "evt-42", store.savedEventID)
	assert.Equal(t, "2025-07-20T14:00:00", gotBody.Start.DateTime)
	assert.Equal(t, "2025-07-20T16:00:00", gotBody.End.DateTime)
	assert.Equal(t, "Главный зал", gotBody.Location)
	assert.Empty(t, store.clearedTokens)
}

func TestSyncOrderUnauthorizedClearsTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := &fakeStore{order: testOrder(), performer: testPerformer()}
	s := NewSyncer(store)
	s.serverAddr = srv.URL

	s.SyncOrder(context.Background(), 7)

	assert.Empty(t, store.savedEventID)
	assert.Equal(t, []string{"Анна"}, store.clearedTokens)

	// после сброса токен не берется из кэша
	_, cached := s.tokens["Анна"]
	assert.False(t, cached)
}

func TestSyncOrderSkipsUnassigned(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		calls++
	}))
	defer srv.Close()

	order := testOrder()
	order.Performers = database.AnyPerformer

	store := &fakeStore{order: order, performer: testPerformer()}
	s := NewSyncer(store)
	s.serverAddr = srv.URL

	s.SyncOrder(context.Background(), 7)

	assert.Zero(t, calls)
	assert.Empty(t, store.savedEventID)
}

func TestSyncOrderSkipsWithoutTokens(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		calls++
	}))
	defer srv.Close()

	performer := testPerformer()
	performer.GoogleTokens = ""

	store := &fakeStore{order: testOrder(), performer: performer}
	s := NewSyncer(store)
	s.serverAddr = srv.URL

	s.SyncOrder(context.Background(), 7)

	assert.Zero(t, calls)
	assert.Empty(t, store.savedEventID)
}
