// Package workflow содержит диалоговые сценарии бота: многошаговая
// форма заказа, ответы исполнителя и обращения в поддержку. Сценарий
// получает действие пользователя и текущую сессию, мутирует сессию и
// возвращает ответные сообщения; доставку выполняет внешняя оболочка.
package workflow

import (
	"context"

	"eventbot/internal/database"
)

type (
	// Action - входящее действие пользователя: свободный текст,
	// выбор кнопки или фотография.
	Action struct {
		// текст сообщения, уже без краевых пробелов
		Text string
		// токен нажатой кнопки, пусто для текстовых сообщений
		Data string
		// идентификатор файла фотографии, если она приложена
		PhotoFileID string
	}

	// User - личность автора действия, нужна при фиксации заказа
	// и создании обращения.
	User struct {
		ID       int64
		FullName string
		Username string
	}

	Button struct {
		Label string
		Data  string
	}

	// Reply - сообщение для отправки автору действия.
	Reply struct {
		Text     string
		Keyboard [][]Button
	}
)

func text(s string) Reply { return Reply{Text: s} }

// Store - операции хранилища, нужные сценариям. Отсутствие записи
// возвращается ошибкой database.Err*NotFound.
type Store interface {
	SaveOrder(ctx context.Context, o *database.Order) (int64, error)
	GetOrder(ctx context.Context, id int64) (*database.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status database.OrderStatus) error
	UpdateOrderTime(ctx context.Context, id int64, newTime string) error
	GetPerformer(ctx context.Context, name string) (*database.Performer, error)
	IsPerformerAvailable(ctx context.Context, name, date, timeSlot string) (bool, error)
	CreateSupportTicket(ctx context.Context, userID int64, message, userName, username string) (int64, error)
	GetSupportTicket(ctx context.Context, id int64) (*database.SupportTicket, error)
	SetTicketPhoto(ctx context.Context, id int64, photoPath string) error
}

// Notifier - многоканальная доставка с повторами и лимитами.
type Notifier interface {
	Send(ctx context.Context, recipient int64, message string, channels []string) bool
}

// Messenger - прямая отправка в чат конкретному человеку, с клавиатурой
// и фотографиями. Используется для рассылок админам, операторам и
// запросов подтверждения исполнителю.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, message string, keyboard [][]Button) error
	SendPhoto(ctx context.Context, chatID int64, photoPath, caption string) error
}

// CalendarSync - односторонняя синхронизация заказа с внешним
// календарем: без результата, сбои остаются на ее стороне.
type CalendarSync interface {
	SyncOrder(ctx context.Context, orderID int64)
}

// AttachmentSaver сохраняет присланную фотографию и возвращает путь.
type AttachmentSaver interface {
	SavePhoto(ctx context.Context, fileID string, ticketID int64) (string, error)
}
