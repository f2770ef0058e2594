package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"eventbot/internal/cache"
	"eventbot/internal/config"
	"eventbot/internal/database"
	"eventbot/internal/logger"
	"eventbot/internal/notify"
)

// PerformerHandler обрабатывает ответ исполнителя на предложенный
// заказ: принять, отказаться или предложить другое время.
type PerformerHandler struct {
	store   Store
	notify  Notifier
	catalog *config.Catalog

	// кому сигналить о поиске замены после отказа
	fallbackAdmin int64
}

func NewPerformerHandler(store Store, notifier Notifier, catalog *config.Catalog, fallbackAdmin int64) *PerformerHandler {
	return &PerformerHandler{
		store:   store,
		notify:  notifier,
		catalog: catalog,

		fallbackAdmin: fallbackAdmin,
	}
}

// Handle разбирает токены confirm_<id>, reject_<id> и reschedule_<id>.
// Ссылка на несуществующий заказ молча игнорируется: заказ мог быть
// разрешен параллельно.
func (h *PerformerHandler) Handle(ctx context.Context, chatState *cache.Chat, act Action) []Reply {
	intent, orderID, ok := parsePerformerAction(act.Data)
	if !ok {
		return nil
	}

	order, err := h.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			logger.Warning("Ответ исполнителя по несуществующему заказу", orderID)
			return nil
		}
		logger.Warning("Не удалось прочитать заказ", orderID, err)
		return []Reply{text("Не удалось обработать ответ, попробуйте еще раз")}
	}

	switch intent {
	case PrefixConfirm:
		return h.confirm(ctx, order)
	case PrefixReject:
		return h.reject(ctx, order)
	case PrefixReschedule:
		chatState.Reset()
		chatState.Kind = cache.KindReschedule
		chatState.RescheduleOrderID = order.ID
		chatState.CurrentState = cache.StateRescheduleTime
		return []Reply{{
			Text:     fmt.Sprintf("Выберите новое время для заказа #%d:", order.ID),
			Keyboard: rescheduleKeyboard(order.ID, h.catalog.Slots()),
		}}
	}

	return nil
}

func (h *PerformerHandler) confirm(ctx context.Context, order *database.Order) []Reply {
	if err := h.store.UpdateOrderStatus(ctx, order.ID, database.StatusConfirmed); err != nil {
		logger.Warning("Не удалось подтвердить заказ", order.ID, err)
		return []Reply{text("Не удалось обработать ответ, попробуйте еще раз")}
	}

	logger.Event("Заказ", order.ID, "подтвержден исполнителем")

	msg := fmt.Sprintf("Ваш заказ #%d подтвержден исполнителем! Ждем вас %s в %s.", order.ID, order.Date, order.Time)
	if !h.notify.Send(ctx, order.UserID, msg, []string{notify.ChannelTelegram}) {
		logger.Warning("Пользователь", order.UserID, "не уведомлен о подтверждении заказа", order.ID)
	}

	return []Reply{text(fmt.Sprintf("Вы приняли заказ #%d", order.ID))}
}

func (h *PerformerHandler) reject(ctx context.Context, order *database.Order) []Reply {
	if err := h.store.UpdateOrderStatus(ctx, order.ID, database.StatusRejected); err != nil {
		logger.Warning("Не удалось отклонить заказ", order.ID, err)
		return []Reply{text("Не удалось обработать ответ, попробуйте еще раз")}
	}

	logger.Event("Заказ", order.ID, "отклонен исполнителем")

	msg := fmt.Sprintf("Требуется замена исполнителя для заказа #%d (%s %s, %s)", order.ID, order.Date, order.Time, order.Program)
	if !h.notify.Send(ctx, h.fallbackAdmin, msg, []string{notify.ChannelTelegram}) {
		logger.Warning("Сигнал о замене исполнителя по заказу", order.ID, "не доставлен")
	}

	return []Reply{text(fmt.Sprintf("Вы отказались от заказа #%d, мы подберем замену", order.ID))}
}

// HandleRescheduleTime принимает выбор нового слота, токен
// rtime_<id>_<slot>.
func (h *PerformerHandler) HandleRescheduleTime(ctx context.Context, chatState *cache.Chat, act Action) []Reply {
	if !strings.HasPrefix(act.Data, PrefixNewTime) {
		return []Reply{{
			Text:     fmt.Sprintf("Выберите новое время для заказа #%d:", chatState.RescheduleOrderID),
			Keyboard: rescheduleKeyboard(chatState.RescheduleOrderID, h.catalog.Slots()),
		}}
	}

	payload := strings.TrimPrefix(act.Data, PrefixNewTime)
	idStr, slot, ok := strings.Cut(payload, "_")
	if !ok {
		return nil
	}
	orderID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || !h.catalog.HasSlot(slot) {
		return nil
	}

	order, err := h.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			logger.Warning("Перенос несуществующего заказа", orderID)
			chatState.Reset()
			return nil
		}
		logger.Warning("Не удалось прочитать заказ", orderID, err)
		return []Reply{text("Не удалось обработать ответ, попробуйте еще раз")}
	}

	if err = h.store.UpdateOrderTime(ctx, orderID, slot); err != nil {
		logger.Warning("Не удалось перенести заказ", orderID, err)
		return []Reply{text("Не удалось обработать ответ, попробуйте еще раз")}
	}

	logger.Event("Заказ", orderID, "перенесен на", slot)

	msg := fmt.Sprintf("Исполнитель предложил новое время по заказу #%d: %s %s", orderID, order.Date, slot)
	if !h.notify.Send(ctx, order.UserID, msg, []string{notify.ChannelTelegram}) {
		logger.Warning("Пользователь", order.UserID, "не уведомлен о переносе заказа", orderID)
	}

	chatState.Reset()
	return []Reply{text(fmt.Sprintf("Заказ #%d перенесен на %s", orderID, slot))}
}

// parsePerformerAction выделяет из токена намерение и номер заказа.
func parsePerformerAction(data string) (intent string, orderID int64, ok bool) {
	for _, prefix := range []string{PrefixConfirm, PrefixReject, PrefixReschedule} {
		if !strings.HasPrefix(data, prefix) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
		if err != nil {
			return "", 0, false
		}
		return prefix, id, true
	}
	return "", 0, false
}
