package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eventbot/internal/cache"
	"eventbot/internal/database"
	"eventbot/internal/logger"
)

// SupportWorkflow - сценарий обращения в поддержку: свободный текст
// проблемы, по желанию фотография, рассылка операторам.
type SupportWorkflow struct {
	store Store
	msgr  Messenger
	saver AttachmentSaver

	operators []int64
}

func NewSupportWorkflow(store Store, msgr Messenger, saver AttachmentSaver, operators []int64) *SupportWorkflow {
	return &SupportWorkflow{
		store: store,
		msgr:  msgr,
		saver: saver,

		operators: operators,
	}
}

// Start начинает новое обращение.
func (w *SupportWorkflow) Start(chatState *cache.Chat) []Reply {
	chatState.Reset()
	chatState.Kind = cache.KindSupport
	chatState.CurrentState = cache.StateSupportRequest

	return []Reply{text("Опишите вашу проблему одним сообщением:")}
}

func (w *SupportWorkflow) Handle(ctx context.Context, chatState *cache.Chat, user User, act Action) []Reply {
	switch chatState.CurrentState {
	case cache.StateSupportRequest:
		return w.handleRequest(ctx, chatState, user, act)
	case cache.StateSupportConfirm:
		return w.handleConfirm(ctx, chatState, act)
	}

	logger.Warning("Сценарий поддержки в неизвестном состоянии", chatState.CurrentState)
	chatState.Reset()
	return []Reply{text("Что-то пошло не так, напишите в поддержку заново командой /support")}
}

func (w *SupportWorkflow) handleRequest(ctx context.Context, chatState *cache.Chat, user User, act Action) []Reply {
	message := strings.TrimSpace(act.Text)
	if message == "" {
		return []Reply{text("Опишите вашу проблему одним сообщением:")}
	}

	id, err := w.store.CreateSupportTicket(ctx, user.ID, message, user.FullName, user.Username)
	if err != nil {
		logger.Warning("Не удалось создать обращение пользователя", user.ID, err)
		chatState.Reset()
		return []Reply{text("Не удалось отправить обращение, попробуйте позже")}
	}

	logger.Event("Новое обращение", id, "от", user.FullName)

	chatState.Support.TicketID = id
	chatState.Move(cache.StateSupportConfirm)

	return []Reply{{
		Text:     "Хотите приложить фото или скриншот?",
		Keyboard: attachPhotoKeyboard(),
	}}
}

func (w *SupportWorkflow) handleConfirm(ctx context.Context, chatState *cache.Chat, act Action) []Reply {
	switch {
	case act.Data == BtnAttachPhoto:
		chatState.Support.AwaitPhoto = true
		return []Reply{text("Пришлите фото одним сообщением:")}

	case act.Data == BtnNoPhoto:
		return w.finalize(ctx, chatState)

	case chatState.Support.AwaitPhoto && act.PhotoFileID != "":
		path, err := w.saver.SavePhoto(ctx, act.PhotoFileID, chatState.Support.TicketID)
		if err != nil {
			logger.Warning("Не удалось сохранить фото обращения", chatState.Support.TicketID, err)
			return []Reply{text("Не удалось загрузить фото, пришлите еще раз или нажмите «Без фото»")}
		}
		if err = w.store.SetTicketPhoto(ctx, chatState.Support.TicketID, path); err != nil {
			logger.Warning("Не удалось привязать фото к обращению", chatState.Support.TicketID, err)
		}
		return w.finalize(ctx, chatState)
	}

	if chatState.Support.AwaitPhoto {
		return []Reply{text("Пришлите фото одним сообщением:")}
	}
	return []Reply{{
		Text:     "Хотите приложить фото или скриншот?",
		Keyboard: attachPhotoKeyboard(),
	}}
}

// finalize рассылает обращение операторам. Сбой доставки одному
// оператору не мешает остальным.
func (w *SupportWorkflow) finalize(ctx context.Context, chatState *cache.Chat) []Reply {
	ticketID := chatState.Support.TicketID

	ticket, err := w.store.GetSupportTicket(ctx, ticketID)
	if err != nil {
		if !errors.Is(err, database.ErrTicketNotFound) {
			logger.Warning("Не удалось прочитать обращение", ticketID, err)
		}
		chatState.Reset()
		return []Reply{text("Не удалось отправить обращение, попробуйте позже")}
	}

	summary := fmt.Sprintf(
		"Обращение #%d\n👤 %s (@%s)\n\n%s",
		ticket.ID, ticket.UserName, ticket.Username, ticket.Message,
	)

	for _, operator := range w.operators {
		if ticket.PhotoPath != "" {
			err = w.msgr.SendPhoto(ctx, operator, ticket.PhotoPath, summary)
		} else {
			err = w.msgr.SendMessage(ctx, operator, summary, nil)
		}
		if err != nil {
			logger.Warning("Оператор", operator, "не получил обращение", ticketID, err)
		}
	}

	chatState.Reset()
	return []Reply{text(fmt.Sprintf("Обращение #%d передано в поддержку, мы ответим в ближайшее время.", ticketID))}
}
