package database

import "errors"

// Отсутствие записи - обычный результат, а не исключение: вызывающий
// обязан обработать его явно.
var (
	ErrOrderNotFound     = errors.New("заказ не найден")
	ErrPerformerNotFound = errors.New("исполнитель не найден")
	ErrTicketNotFound    = errors.New("обращение не найдено")
)
