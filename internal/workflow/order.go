package workflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"eventbot/internal/cache"
	"eventbot/internal/config"
	"eventbot/internal/database"
	"eventbot/internal/logger"
	"eventbot/internal/validate"
)

// минимальная длина адреса площадки
const minLocationLen = 5

// OrderWorkflow - машина состояний формы заказа: календарь даты, сетка
// слотов, площадка, исполнитель, программа, сумма, пожелания, сводка.
type OrderWorkflow struct {
	store    Store
	msgr     Messenger
	calendar CalendarSync
	catalog  *config.Catalog

	admins []int64

	// подменяется в тестах
	clock func() time.Time
}

func NewOrderWorkflow(store Store, msgr Messenger, calendar CalendarSync, catalog *config.Catalog, admins []int64) *OrderWorkflow {
	return &OrderWorkflow{
		store:    store,
		msgr:     msgr,
		calendar: calendar,
		catalog:  catalog,

		admins: admins,

		clock: time.Now,
	}
}

// Start начинает новую форму заказа, отбрасывая недозаполненную.
func (w *OrderWorkflow) Start(chatState *cache.Chat) []Reply {
	chatState.Reset()
	chatState.Kind = cache.KindOrder
	chatState.CurrentState = cache.StateAskDate

	now := w.clock()
	chatState.CalYear = now.Year()
	chatState.CalMonth = int(now.Month())

	return []Reply{w.promptDate(chatState)}
}

// Handle обрабатывает действие пользователя в текущем состоянии формы.
// Неожиданное действие переспрашивает то же состояние.
func (w *OrderWorkflow) Handle(ctx context.Context, chatState *cache.Chat, user User, act Action) []Reply {
	if act.Data == BtnIgnore {
		return nil
	}

	switch chatState.CurrentState {
	case cache.StateAskDate:
		return w.handleDate(chatState, act)
	case cache.StateAskTime:
		return w.handleTime(chatState, act)
	case cache.StateAskLocation:
		return w.handleLocation(chatState, act)
	case cache.StateAskPerformers:
		return w.handlePerformers(ctx, chatState, act)
	case cache.StateAskProgram:
		return w.handleProgram(chatState, act)
	case cache.StateAskProgramSub:
		return w.handleProgramSub(chatState, act)
	case cache.StateAskAmount:
		return w.handleAmount(chatState, act)
	case cache.StateAskDetails:
		return w.handleDetails(chatState, act)
	case cache.StateReviewOrder:
		return w.handleReview(ctx, chatState, user, act)
	}

	logger.Warning("Форма заказа в неизвестном состоянии", chatState.CurrentState)
	chatState.Reset()
	return []Reply{text("Что-то пошло не так, начните заказ заново командой /order")}
}

func (w *OrderWorkflow) handleDate(chatState *cache.Chat, act Action) []Reply {
	switch {
	case act.Data == BtnPrevMonth:
		chatState.CalMonth--
		if chatState.CalMonth < 1 {
			chatState.CalMonth = 12
			chatState.CalYear--
		}
		return []Reply{w.promptDate(chatState)}

	case act.Data == BtnNextMonth:
		chatState.CalMonth++
		if chatState.CalMonth > 12 {
			chatState.CalMonth = 1
			chatState.CalYear++
		}
		return []Reply{w.promptDate(chatState)}

	case strings.HasPrefix(act.Data, PrefixDay):
		parts := strings.Split(strings.TrimPrefix(act.Data, PrefixDay), "_")
		if len(parts) != 3 {
			return []Reply{w.promptDate(chatState)}
		}
		year, _ := strconv.Atoi(parts[0])
		month, _ := strconv.Atoi(parts[1])
		day, _ := strconv.Atoi(parts[2])

		date := fmt.Sprintf("%02d.%02d.%04d", day, month, year)
		if !validate.Date(date, w.clock()) {
			return []Reply{
				text("Эта дата уже прошла, выберите другую"),
				w.promptDate(chatState),
			}
		}

		chatState.Order.Date = date
		chatState.Move(cache.StateAskTime)
		return []Reply{w.promptTime(chatState)}
	}

	return []Reply{w.promptDate(chatState)}
}

func (w *OrderWorkflow) handleTime(chatState *cache.Chat, act Action) []Reply {
	if act.Data == BtnBack {
		chatState.Move(cache.StateAskDate)
		return []Reply{w.promptDate(chatState)}
	}

	if !strings.HasPrefix(act.Data, PrefixTime) {
		return []Reply{w.promptTime(chatState)}
	}
	slot := strings.TrimPrefix(act.Data, PrefixTime)

	if !w.catalog.HasSlot(slot) || !validate.Time(chatState.Order.Date, slot, w.clock()) {
		return []Reply{
			text("Это время уже недоступно, выберите другое"),
			w.promptTime(chatState),
		}
	}

	chatState.Order.Time = slot
	chatState.Move(cache.StateAskLocation)
	return []Reply{text("Укажите адрес или название площадки (не короче 5 символов):")}
}

func (w *OrderWorkflow) handleLocation(chatState *cache.Chat, act Action) []Reply {
	location := strings.TrimSpace(act.Text)
	if utf8.RuneCountInString(location) < minLocationLen {
		return []Reply{text("Слишком коротко, опишите место проведения подробнее:")}
	}

	chatState.Order.Location = location
	chatState.Move(cache.StateAskPerformers)
	return []Reply{w.promptPerformers()}
}

func (w *OrderWorkflow) handlePerformers(ctx context.Context, chatState *cache.Chat, act Action) []Reply {
	if !strings.HasPrefix(act.Data, PrefixPerformer) {
		return []Reply{w.promptPerformers()}
	}
	name := strings.TrimPrefix(act.Data, PrefixPerformer)

	if name != database.AnyPerformer {
		available, err := w.store.IsPerformerAvailable(ctx, name, chatState.Order.Date, chatState.Order.Time)
		if err != nil {
			logger.Warning("Не удалось проверить занятость исполнителя", name, err)
			return []Reply{
				text("Не получилось проверить занятость, попробуйте еще раз"),
				w.promptPerformers(),
			}
		}
		if !available {
			return []Reply{
				text(fmt.Sprintf("%s уже занят(а) в это время, выберите другого исполнителя", name)),
				w.promptPerformers(),
			}
		}
	}

	chatState.Order.Performer = name
	chatState.Move(cache.StateAskProgram)
	return []Reply{w.promptProgram()}
}

func (w *OrderWorkflow) handleProgram(chatState *cache.Chat, act Action) []Reply {
	if !strings.HasPrefix(act.Data, PrefixCategory) {
		return []Reply{w.promptProgram()}
	}
	category := strings.TrimPrefix(act.Data, PrefixCategory)

	subs := w.catalog.Subcategories(category)
	if len(subs) == 0 {
		// категория без уточнений сразу становится программой
		chatState.Order.Program = category
		chatState.Move(cache.StateAskAmount)
		return []Reply{text("Введите сумму заказа (например 5000 или 7500.50):")}
	}

	chatState.Order.Category = category
	chatState.Move(cache.StateAskProgramSub)
	return []Reply{{
		Text:     "Уточните программу:",
		Keyboard: inlineKeyboard(subs, PrefixProgram, 1, true),
	}}
}

func (w *OrderWorkflow) handleProgramSub(chatState *cache.Chat, act Action) []Reply {
	if act.Data == BtnBack {
		chatState.Order.Category = ""
		chatState.Move(cache.StateAskProgram)
		return []Reply{w.promptProgram()}
	}

	if !strings.HasPrefix(act.Data, PrefixProgram) {
		return []Reply{{
			Text:     "Уточните программу:",
			Keyboard: inlineKeyboard(w.catalog.Subcategories(chatState.Order.Category), PrefixProgram, 1, true),
		}}
	}

	sub := strings.TrimPrefix(act.Data, PrefixProgram)
	chatState.Order.Program = chatState.Order.Category + " - " + sub
	chatState.Move(cache.StateAskAmount)
	return []Reply{text("Введите сумму заказа (например 5000 или 7500.50):")}
}

func (w *OrderWorkflow) handleAmount(chatState *cache.Chat, act Action) []Reply {
	amount := strings.TrimSpace(act.Text)
	if !validate.Amount(amount) {
		return []Reply{text("Сумма должна быть числом, до двух знаков после точки. Попробуйте еще раз:")}
	}

	chatState.Order.Amount = amount
	chatState.Move(cache.StateAskDetails)
	return []Reply{{
		Text:     "Напишите пожелания к заказу:",
		Keyboard: detailsKeyboard(),
	}}
}

func (w *OrderWorkflow) handleDetails(chatState *cache.Chat, act Action) []Reply {
	if act.Data == BtnSkipDetails {
		chatState.Order.Details = "Без пожеланий"
	} else {
		details := strings.TrimSpace(act.Text)
		if details == "" {
			return []Reply{{
				Text:     "Напишите пожелания к заказу:",
				Keyboard: detailsKeyboard(),
			}}
		}
		chatState.Order.Details = details
	}

	chatState.Move(cache.StateReviewOrder)
	return []Reply{{
		Text:     "Проверьте заказ:\n\n" + draftSummary(&chatState.Order),
		Keyboard: reviewKeyboard(),
	}}
}

func (w *OrderWorkflow) handleReview(ctx context.Context, chatState *cache.Chat, user User, act Action) []Reply {
	switch act.Data {
	case BtnCancelOrder:
		chatState.Reset()
		return []Reply{text("Заказ отменен")}
	case BtnConfirmOrder:
		return w.commit(ctx, chatState, user)
	}

	return []Reply{{
		Text:     "Проверьте заказ:\n\n" + draftSummary(&chatState.Order),
		Keyboard: reviewKeyboard(),
	}}
}

// commit выполняет фиксацию заказа: запись в хранилище, рассылка
// админам, запрос подтверждения исполнителю, фоновая синхронизация с
// календарем, очистка сессии. Сбой записи прерывает фиксацию, сбои
// рассылки - нет.
func (w *OrderWorkflow) commit(ctx context.Context, chatState *cache.Chat, user User) []Reply {
	order := &database.Order{
		UserID:     user.ID,
		UserName:   user.FullName,
		Username:   user.Username,
		Date:       chatState.Order.Date,
		Time:       chatState.Order.Time,
		Location:   chatState.Order.Location,
		Performers: chatState.Order.Performer,
		Program:    chatState.Order.Program,
		Amount:     chatState.Order.Amount,
		Details:    chatState.Order.Details,
		Status:     database.StatusPending,
	}

	id, err := w.store.SaveOrder(ctx, order)
	if err != nil {
		logger.Warning("Не удалось сохранить заказ пользователя", user.ID, err)
		chatState.Reset()
		return []Reply{text("Не удалось оформить заказ, попробуйте позже")}
	}
	order.ID = id

	logger.Event("Новый заказ", id, "от", user.FullName)

	summary := orderSummary(order)
	for _, admin := range w.admins {
		if err = w.msgr.SendMessage(ctx, admin, "Новый заказ!\n\n"+summary, nil); err != nil {
			logger.Warning("Администратор", admin, "не уведомлен о заказе", id, err)
		}
	}

	if order.Performers != database.AnyPerformer {
		w.requestPerformerConfirmation(ctx, order, summary)
	}

	// синхронизация не должна ни ждать ответа пользователю, ни
	// отменяться вместе с ним
	go w.calendar.SyncOrder(context.WithoutCancel(ctx), id)

	chatState.Reset()
	return []Reply{text(fmt.Sprintf("Заказ #%d оформлен! Мы свяжемся с вами для подтверждения.", id))}
}

func (w *OrderWorkflow) requestPerformerConfirmation(ctx context.Context, order *database.Order, summary string) {
	performer, err := w.store.GetPerformer(ctx, order.Performers)
	if err != nil {
		logger.Warning("Исполнитель", order.Performers, "не найден для заказа", order.ID, err)
		return
	}
	if performer.TelegramUserID == 0 {
		logger.Debug("У исполнителя", order.Performers, "нет telegram, запрос не отправлен")
		return
	}

	msg := fmt.Sprintf("Вам предложен заказ #%d:\n\n%s", order.ID, summary)
	if err = w.msgr.SendMessage(ctx, performer.TelegramUserID, msg, performerRequestKeyboard(order.ID)); err != nil {
		logger.Warning("Запрос подтверждения по заказу", order.ID, "не доставлен исполнителю", err)
	}
}

func (w *OrderWorkflow) promptDate(chatState *cache.Chat) Reply {
	if chatState.CalYear == 0 {
		now := w.clock()
		chatState.CalYear = now.Year()
		chatState.CalMonth = int(now.Month())
	}
	return Reply{
		Text:     "Выберите дату мероприятия:",
		Keyboard: calendarKeyboard(chatState.CalYear, chatState.CalMonth),
	}
}

func (w *OrderWorkflow) promptTime(chatState *cache.Chat) Reply {
	return Reply{
		Text:     fmt.Sprintf("Дата: %s\nВыберите время:", chatState.Order.Date),
		Keyboard: timeKeyboard(w.catalog.Slots()),
	}
}

func (w *OrderWorkflow) promptPerformers() Reply {
	items := append(w.catalog.Performers(), database.AnyPerformer)
	return Reply{
		Text:     "Выберите исполнителя:",
		Keyboard: inlineKeyboard(items, PrefixPerformer, 1, false),
	}
}

func (w *OrderWorkflow) promptProgram() Reply {
	return Reply{
		Text:     "Выберите программу:",
		Keyboard: inlineKeyboard(w.catalog.Categories(), PrefixCategory, 1, false),
	}
}

func draftSummary(draft *cache.OrderDraft) string {
	return fmt.Sprintf(
		"📅 Дата: %s\n🕒 Время: %s\n📍 Место: %s\n🎭 Исполнитель: %s\n🎪 Программа: %s\n💰 Сумма: %s\n📝 Пожелания: %s",
		draft.Date, draft.Time, draft.Location, draft.Performer, draft.Program, draft.Amount, draft.Details,
	)
}

func orderSummary(order *database.Order) string {
	return fmt.Sprintf(
		"Заказ #%d\n👤 Заказчик: %s (@%s)\n📅 Дата: %s\n🕒 Время: %s\n📍 Место: %s\n🎭 Исполнитель: %s\n🎪 Программа: %s\n💰 Сумма: %s\n📝 Пожелания: %s",
		order.ID, order.UserName, order.Username, order.Date, order.Time, order.Location,
		order.Performers, order.Program, order.Amount, order.Details,
	)
}
