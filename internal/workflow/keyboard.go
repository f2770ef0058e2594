package workflow

import (
	"fmt"
	"strconv"
	"time"
)

// Токены кнопок. Составные токены несут полезную нагрузку после
// префикса, разделитель - подчеркивание.
const (
	BtnIgnore = "ignore"
	BtnBack   = "back"

	BtnNewOrder = "new_order"
	BtnSupport  = "support"

	// календарь выбора даты
	BtnPrevMonth = "CPM"
	BtnNextMonth = "CNM"
	PrefixDay    = "CSD_"

	PrefixTime       = "time_"
	PrefixPerformer  = "performer_"
	PrefixCategory   = "category_"
	PrefixProgram    = "program_"
	BtnSkipDetails   = "skip_details"
	BtnConfirmOrder  = "confirm_order"
	BtnCancelOrder   = "cancel_order"
	BtnAttachPhoto   = "attach_photo"
	BtnNoPhoto       = "no_photo"
	PrefixConfirm    = "confirm_"
	PrefixReject     = "reject_"
	PrefixReschedule = "reschedule_"
	PrefixNewTime    = "rtime_"
)

var monthNames = [...]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

// MainMenuKeyboard - стартовое меню бота.
func MainMenuKeyboard() [][]Button {
	return [][]Button{
		{{Label: "🎉 Оформить заказ", Data: BtnNewOrder}},
		{{Label: "🛠 Поддержка", Data: BtnSupport}},
	}
}

// calendarKeyboard строит помесячную сетку выбора даты. Прошедшие дни
// показываются, но нажатие на них игнорируется на стороне сценария.
func calendarKeyboard(year, month int) [][]Button {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)

	keyboard := [][]Button{
		{{Label: fmt.Sprintf("%s %d", monthNames[month-1], year), Data: BtnIgnore}},
		{
			{Label: "Пн", Data: BtnIgnore}, {Label: "Вт", Data: BtnIgnore},
			{Label: "Ср", Data: BtnIgnore}, {Label: "Чт", Data: BtnIgnore},
			{Label: "Пт", Data: BtnIgnore}, {Label: "Сб", Data: BtnIgnore},
			{Label: "Вс", Data: BtnIgnore},
		},
	}

	// сдвиг первого дня месяца относительно понедельника
	shift := (int(first.Weekday()) + 6) % 7
	daysIn := first.AddDate(0, 1, -1).Day()

	row := make([]Button, 0, 7)
	for i := 0; i < shift; i++ {
		row = append(row, Button{Label: " ", Data: BtnIgnore})
	}
	for day := 1; day <= daysIn; day++ {
		row = append(row, Button{
			Label: strconv.Itoa(day),
			Data:  fmt.Sprintf("%s%d_%d_%d", PrefixDay, year, month, day),
		})
		if len(row) == 7 {
			keyboard = append(keyboard, row)
			row = make([]Button, 0, 7)
		}
	}
	if len(row) > 0 {
		for len(row) < 7 {
			row = append(row, Button{Label: " ", Data: BtnIgnore})
		}
		keyboard = append(keyboard, row)
	}

	keyboard = append(keyboard, []Button{
		{Label: "<", Data: BtnPrevMonth},
		{Label: ">", Data: BtnNextMonth},
	})

	return keyboard
}

// inlineKeyboard раскладывает элементы каталога по columns кнопок в ряд,
// токен каждой кнопки - prefix плюс сам элемент.
func inlineKeyboard(items []string, prefix string, columns int, withBack bool) [][]Button {
	var keyboard [][]Button

	row := make([]Button, 0, columns)
	for _, item := range items {
		row = append(row, Button{Label: item, Data: prefix + item})
		if len(row) == columns {
			keyboard = append(keyboard, row)
			row = make([]Button, 0, columns)
		}
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}

	if withBack {
		keyboard = append(keyboard, []Button{{Label: "« Назад", Data: BtnBack}})
	}

	return keyboard
}

func timeKeyboard(slots []string) [][]Button {
	return inlineKeyboard(slots, PrefixTime, 3, true)
}

// rescheduleKeyboard - сетка слотов для переноса заказа исполнителем,
// токены несут и номер заказа, и новый слот.
func rescheduleKeyboard(orderID int64, slots []string) [][]Button {
	var keyboard [][]Button

	row := make([]Button, 0, 3)
	for _, slot := range slots {
		row = append(row, Button{
			Label: slot,
			Data:  fmt.Sprintf("%s%d_%s", PrefixNewTime, orderID, slot),
		})
		if len(row) == 3 {
			keyboard = append(keyboard, row)
			row = make([]Button, 0, 3)
		}
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}

	return keyboard
}

// performerRequestKeyboard - кнопки под запросом подтверждения заказа.
func performerRequestKeyboard(orderID int64) [][]Button {
	id := strconv.FormatInt(orderID, 10)
	return [][]Button{
		{
			{Label: "✅ Принять", Data: PrefixConfirm + id},
			{Label: "❌ Отказаться", Data: PrefixReject + id},
		},
		{{Label: "🕒 Предложить другое время", Data: PrefixReschedule + id}},
	}
}

func detailsKeyboard() [][]Button {
	return [][]Button{{{Label: "Пропустить", Data: BtnSkipDetails}}}
}

func reviewKeyboard() [][]Button {
	return [][]Button{
		{
			{Label: "✅ Подтвердить", Data: BtnConfirmOrder},
			{Label: "❌ Отменить", Data: BtnCancelOrder},
		},
	}
}

func attachPhotoKeyboard() [][]Button {
	return [][]Button{
		{
			{Label: "📷 Приложить фото", Data: BtnAttachPhoto},
			{Label: "Без фото", Data: BtnNoPhoto},
		},
	}
}
