// Package notify рассылает уведомления по нескольким каналам с
// ограничением частоты и повторными попытками.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"eventbot/internal/logger"
)

// Имена каналов доставки.
const (
	ChannelTelegram = "telegram"
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
)

// ChannelSender - одна операция отправки в конкретный канал. Канал
// непрозрачен для диспетчера и может быть медленным или недоступным.
type ChannelSender interface {
	Send(ctx context.Context, recipient int64, message string) error
}

// Dispatcher доставляет сообщение по набору каналов раундами: раунд
// успешен, только если успешны все запрошенные каналы разом.
type Dispatcher struct {
	senders map[string]ChannelSender
	limiter *RateLimiter

	// количество повторных раундов после первого
	maxRetries int
	baseDelay  time.Duration
}

func NewDispatcher(senders map[string]ChannelSender, limiter *RateLimiter, maxRetries int, baseDelay time.Duration) *Dispatcher {
	return &Dispatcher{
		senders:    senders,
		limiter:    limiter,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// Send пытается доставить сообщение по всем каналам. Неудачный раунд
// повторяется с экспоненциальной задержкой baseDelay * 2^(attempt-1).
// Частичный успех не засчитывается и не маскируется.
func (d *Dispatcher) Send(ctx context.Context, recipient int64, message string, channels []string) bool {
	for attempt := 1; attempt <= d.maxRetries+1; attempt++ {
		if d.sendRound(ctx, recipient, message, channels) {
			return true
		}

		if attempt > d.maxRetries {
			break
		}

		delay := d.baseDelay * time.Duration(1<<(attempt-1))
		logger.Warning(fmt.Sprintf("Повтор отправки %d/%d через %s", attempt, d.maxRetries, delay))

		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
	}

	logger.Warning("Не удалось доставить уведомление получателю", recipient)
	return false
}

// sendRound отправляет во все каналы независимо: сбой одного канала не
// мешает попыткам остальных, результат раунда - логическое И.
func (d *Dispatcher) sendRound(ctx context.Context, recipient int64, message string, channels []string) bool {
	success := true

	for _, channel := range channels {
		sender, ok := d.senders[channel]
		if !ok {
			logger.Warning("Неизвестный канал уведомлений:", channel)
			success = false
			continue
		}

		if !d.limiter.Allow(channel, strconv.FormatInt(recipient, 10)) {
			logger.Warning("Превышен лимит отправок:", channel, recipient)
			success = false
			continue
		}

		if err := sender.Send(ctx, recipient, message); err != nil {
			logger.Warning("Ошибка канала", channel, ":", err)
			success = false
		}
	}

	return success
}
