package cache

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"eventbot/internal/logger"

	"github.com/allegro/bigcache/v3"
)

// SessionTimeout - тайм-аут бездействия диалога. Сессия, к которой
// столько не прикасались, вытесняется из кэша, что равносильно отмене.
const SessionTimeout = 300 * time.Second

// NewSessions создает хранилище сессий диалогов.
func NewSessions() *bigcache.BigCache {
	sessions, err := bigcache.NewBigCache(bigcache.DefaultConfig(SessionTimeout))
	if err != nil {
		logger.Crit(err)
	}
	return sessions
}

// GetState возвращает сессию чата, либо чистую, если ее нет или она
// просрочена.
func GetState(sessions *bigcache.BigCache, chatID int64) Chat {
	var chatState Chat

	b, err := sessions.Get(sessionKey(chatID))
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			logger.Warning("Error while read state from cache", err)
		}
		return chatState
	}

	if err = json.Unmarshal(b, &chatState); err != nil {
		logger.Warning("Error while decoding state", err)
		return Chat{}
	}

	return chatState
}

// Save записывает сессию в кэш, продлевая тайм-аут бездействия.
func (chatState *Chat) Save(sessions *bigcache.BigCache, chatID int64) error {
	data, err := json.Marshal(chatState)
	if err != nil {
		logger.Warning("Error while encode state to cache", err)
		return err
	}

	if err = sessions.Set(sessionKey(chatID), data); err != nil {
		logger.Warning("Error while write state to cache", err)
		return err
	}

	return nil
}

// ChangeState переводит сессию в новое состояние и сохраняет ее.
func (chatState *Chat) ChangeState(sessions *bigcache.BigCache, chatID int64, toState string) error {
	if chatState.CurrentState != toState {
		chatState.PreviousState = chatState.CurrentState
		chatState.CurrentState = toState
	}

	return chatState.Save(sessions, chatID)
}

// Move переводит сессию в новое состояние только в памяти, не трогая
// кэш. Сохранение остается на вызывающем.
func (chatState *Chat) Move(toState string) {
	if chatState.CurrentState != toState {
		chatState.PreviousState = chatState.CurrentState
		chatState.CurrentState = toState
	}
}

// Drop удаляет сессию: завершение, отмена и тайм-аут равнозначны.
func (chatState *Chat) Drop(sessions *bigcache.BigCache, chatID int64) error {
	*chatState = Chat{}

	err := sessions.Delete(sessionKey(chatID))
	if err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		logger.Warning("Error while drop state from cache", err)
		return err
	}

	return nil
}

// Reset очищает сценарные данные в памяти, не трогая кэш. Вызывающий
// решает, сохранить пустую сессию или удалить ее.
func (chatState *Chat) Reset() {
	*chatState = Chat{}
}

func sessionKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
