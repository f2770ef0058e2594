package bot

import (
	"eventbot/internal/logger"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const hookPath = "/telegram/receive/"

// InitHooks вешает обработчик вебхука и регистрирует его в телеграме.
func InitHooks(app *gin.Engine, b *Bot) {
	logger.Info("Init receiving endpoint...")

	app.POST(hookPath, b.Receive)

	logger.Info("Setup webhook on Telegram...")

	webhook, err := tgbotapi.NewWebhook(b.cnf.Server.Host + hookPath)
	if err != nil {
		logger.Crit("Error while build webhook:", err)
	}

	if _, err = b.api.Request(webhook); err != nil {
		logger.Crit("Error while setup webhook:", err)
	}
}

// DestroyHooks снимает вебхук при остановке.
func DestroyHooks(b *Bot) {
	logger.Info("Destroy webhook on Telegram...")

	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logger.Warning("Error while delete webhook:", err)
	}
}
