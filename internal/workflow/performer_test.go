package workflow

import (
	"context"
	"testing"

	"eventbot/internal/cache"
	"eventbot/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingOrder(store *mockStore) *database.Order {
	order := &database.Order{
		UserID:     100,
		UserName:   "Иван Петров",
		Date:       "20.07.2025",
		Time:       "14:00",
		Performers: "Анна",
		Program:    "Тесла шоу",
		Status:     database.StatusPending,
	}
	id, _ := store.SaveOrder(context.Background(), order)
	order.ID = id
	return order
}

func newTestPerformerHandler(t *testing.T, store *mockStore, notifier *mockNotifier) *PerformerHandler {
	t.Helper()
	return NewPerformerHandler(store, notifier, testCatalog(t), 10)
}

func TestPerformerConfirm(t *testing.T) {
	store := newMockStore()
	order := pendingOrder(store)
	notifier := &mockNotifier{ok: true}
	h := newTestPerformerHandler(t, store, notifier)

	chatState := cache.Chat{}
	replies := h.Handle(context.Background(), &chatState, Action{Data: "confirm_1"})

	assert.Equal(t, database.StatusConfirmed, store.orders[order.ID].Status)

	// заказчик уведомлен только в telegram
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, order.UserID, notifier.calls[0].recipient)
	assert.Equal(t, []string{"telegram"}, notifier.calls[0].channels)

	require.NotEmpty(t, replies)
	assert.Contains(t, replies[0].Text, "приняли")
}

func TestPerformerReject(t *testing.T) {
	store := newMockStore()
	order := pendingOrder(store)
	notifier := &mockNotifier{ok: true}
	h := newTestPerformerHandler(t, store, notifier)

	chatState := cache.Chat{}
	h.Handle(context.Background(), &chatState, Action{Data: "reject_1"})

	assert.Equal(t, database.StatusRejected, store.orders[order.ID].Status)

	// сигнал о замене уходит дежурному админу
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, int64(10), notifier.calls[0].recipient)
	assert.Contains(t, notifier.calls[0].message, "замена исполнителя")
	assert.Contains(t, notifier.calls[0].message, "#1")
}

func TestPerformerRescheduleFlow(t *testing.T) {
	store := newMockStore()
	order := pendingOrder(store)
	notifier := &mockNotifier{ok: true}
	h := newTestPerformerHandler(t, store, notifier)
	ctx := context.Background()

	chatState := cache.Chat{}
	replies := h.Handle(ctx, &chatState, Action{Data: "reschedule_1"})

	assert.Equal(t, cache.KindReschedule, chatState.Kind)
	assert.Equal(t, cache.StateRescheduleTime, chatState.CurrentState)
	assert.Equal(t, order.ID, chatState.RescheduleOrderID)
	require.NotEmpty(t, replies)
	assert.NotEmpty(t, replies[0].Keyboard)

	replies = h.HandleRescheduleTime(ctx, &chatState, Action{Data: "rtime_1_16:30"})

	assert.Equal(t, "16:30", store.orders[order.ID].Time)
	// статус при переносе не меняется
	assert.Equal(t, database.StatusPending, store.orders[order.ID].Status)

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, order.UserID, notifier.calls[0].recipient)
	assert.Contains(t, notifier.calls[0].message, "16:30")

	assert.Equal(t, cache.Chat{}, chatState)
	require.NotEmpty(t, replies)
}

func TestPerformerUnknownOrderIsNoop(t *testing.T) {
	store := newMockStore()
	notifier := &mockNotifier{ok: true}
	h := newTestPerformerHandler(t, store, notifier)

	chatState := cache.Chat{}
	replies := h.Handle(context.Background(), &chatState, Action{Data: "confirm_99"})

	assert.Empty(t, replies)
	assert.Empty(t, notifier.calls)
	assert.Equal(t, cache.Chat{}, chatState)
}

func TestPerformerMalformedToken(t *testing.T) {
	h := newTestPerformerHandler(t, newMockStore(), &mockNotifier{ok: true})

	chatState := cache.Chat{}
	assert.Empty(t, h.Handle(context.Background(), &chatState, Action{Data: "confirm_abc"}))
	assert.Empty(t, h.Handle(context.Background(), &chatState, Action{Data: "something_else"}))
}

func TestPerformerRescheduleUnknownSlot(t *testing.T) {
	store := newMockStore()
	order := pendingOrder(store)
	h := newTestPerformerHandler(t, store, &mockNotifier{ok: true})

	chatState := cache.Chat{
		Kind:              cache.KindReschedule,
		CurrentState:      cache.StateRescheduleTime,
		RescheduleOrderID: order.ID,
	}

	h.HandleRescheduleTime(context.Background(), &chatState, Action{Data: "rtime_1_25:99"})
	assert.Equal(t, "14:00", store.orders[order.ID].Time)
}
