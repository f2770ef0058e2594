package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	sessions := NewSessions()

	// новой сессии нет - получаем чистую
	chatState := GetState(sessions, 42)
	assert.Equal(t, Chat{}, chatState)

	chatState.Kind = KindOrder
	chatState.Order.Date = "20.07.2025"
	chatState.Order.Time = "14:00"
	require.NoError(t, chatState.ChangeState(sessions, 42, StateAskLocation))

	got := GetState(sessions, 42)
	assert.Equal(t, StateAskLocation, got.CurrentState)
	assert.Equal(t, StateNone, got.PreviousState)
	assert.Equal(t, KindOrder, got.Kind)
	assert.Equal(t, "20.07.2025", got.Order.Date)

	// сессии разных чатов независимы
	assert.Equal(t, Chat{}, GetState(sessions, 43))
}

func TestChangeStateKeepsPrevious(t *testing.T) {
	sessions := NewSessions()

	chatState := GetState(sessions, 1)
	require.NoError(t, chatState.ChangeState(sessions, 1, StateAskDate))
	require.NoError(t, chatState.ChangeState(sessions, 1, StateAskTime))

	got := GetState(sessions, 1)
	assert.Equal(t, StateAskTime, got.CurrentState)
	assert.Equal(t, StateAskDate, got.PreviousState)
}

func TestDrop(t *testing.T) {
	sessions := NewSessions()

	chatState := GetState(sessions, 7)
	chatState.Kind = KindSupport
	chatState.Support.TicketID = 99
	require.NoError(t, chatState.Save(sessions, 7))

	require.NoError(t, chatState.Drop(sessions, 7))
	assert.Equal(t, Chat{}, chatState)
	assert.Equal(t, Chat{}, GetState(sessions, 7))

	// повторное удаление не ошибка
	require.NoError(t, chatState.Drop(sessions, 7))
}
