package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"eventbot/internal/logger"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

// GetConfig читает yaml конфигурацию, накладывает секреты из окружения
// и проверяет результат. Любая ошибка фатальна.
func GetConfig(configPath string, cnf *Conf) {
	logger.Debug("Loading configuration")

	input, err := os.Open(configPath)
	if err != nil {
		logger.Crit("Error while reading config!", err)
	}
	defer input.Close()

	decoder := yaml.NewDecoder(input)
	err = decoder.Decode(cnf)
	if err != nil {
		logger.Crit("Error while decoding config!", err)
	}

	applyDefaults(cnf)
	applyEnv(cnf)

	if err = validator.New().Struct(cnf); err != nil {
		logger.Crit("Error while validating config!", err)
	}

	if cnf.Twilio.Token == "" {
		logger.Warning("TWILIO_TOKEN не задан, каналы sms и whatsapp отключены")
	}
	if cnf.SMTP.Password == "" {
		logger.Warning("SMTP_PASSWORD не задан, канал email отключен")
	}
}

func applyDefaults(cnf *Conf) {
	if cnf.Notify.MaxRetries == 0 {
		cnf.Notify.MaxRetries = 2
	}
	if cnf.Notify.BaseDelay == 0 {
		cnf.Notify.BaseDelay = time.Second
	}
	if cnf.Notify.RateLimit == 0 {
		cnf.Notify.RateLimit = 5
	}
	if cnf.Notify.RateWindow == 0 {
		cnf.Notify.RateWindow = time.Hour
	}
	if cnf.SMTP.Port == 0 {
		cnf.SMTP.Port = 587
	}
	if cnf.FilesDir == "" {
		cnf.FilesDir = "./files"
	}
}

// секреты не храним в yaml, только в окружении (.env)
func applyEnv(cnf *Conf) {
	cnf.Telegram.Token = os.Getenv("BOT_TOKEN")

	cnf.Twilio.SID = os.Getenv("TWILIO_SID")
	cnf.Twilio.Token = os.Getenv("TWILIO_TOKEN")
	cnf.Twilio.Number = os.Getenv("TWILIO_NUMBER")

	cnf.SMTP.User = os.Getenv("SMTP_USER")
	cnf.SMTP.Password = os.Getenv("SMTP_PASSWORD")

	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		cnf.Database.DSN = dsn
	}

	if admins := parseIntList(os.Getenv("ADMIN_IDS")); len(admins) != 0 {
		cnf.AdminIDs = admins
	}
	if operators := parseIntList(os.Getenv("SUPPORT_OPERATORS")); len(operators) != 0 {
		cnf.SupportOperators = operators
	}
}

func parseIntList(value string) []int64 {
	if value == "" {
		return nil
	}

	var result []int64
	for _, part := range strings.Split(value, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			logger.Warning("Не корректный идентификатор в списке:", part)
			continue
		}
		result = append(result, id)
	}
	return result
}
