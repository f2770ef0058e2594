package database

import "time"

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusRejected  OrderStatus = "rejected"
	StatusCancelled OrderStatus = "cancelled"
)

// занятость исполнителя определяют только активные заказы
var ActiveStatuses = []OrderStatus{StatusPending, StatusConfirmed}

// AnyPerformer - вариант "любой свободный" в списке исполнителей.
// Заказ с ним не закрепляется за конкретным человеком.
const AnyPerformer = "Любой свободный"

type (
	Order struct {
		ID         int64       `json:"id"`
		UserID     int64       `json:"user_id"`
		UserName   string      `json:"user_name"`
		Username   string      `json:"username"`
		Date       string      `json:"order_date"`
		Time       string      `json:"order_time"`
		Location   string      `json:"order_location"`
		Performers string      `json:"order_performers"`
		Program    string      `json:"order_program"`
		Amount     string      `json:"order_amount"`
		Details    string      `json:"order_details"`
		Status     OrderStatus `json:"status"`
		CreatedAt  time.Time   `json:"created_at"`
		// ссылка на событие во внешнем календаре, пусто пока не
		// синхронизировано
		CalendarEventID string `json:"calendar_event_id"`
	}

	Performer struct {
		ID             int64  `json:"id"`
		Name           string `json:"performer_name"`
		TelegramUserID int64  `json:"telegram_user_id"`
		// сериализованные OAuth токены календаря, пусто если не подключен
		GoogleTokens string `json:"google_tokens"`
	}

	SupportTicket struct {
		ID        int64     `json:"id"`
		UserID    int64     `json:"user_id"`
		UserName  string    `json:"user_name"`
		Username  string    `json:"username"`
		Message   string    `json:"message"`
		CreatedAt time.Time `json:"created_at"`
		Resolved  bool      `json:"resolved"`
		PhotoPath string    `json:"photo_path"`
	}
)
