package config

import (
	"time"
)

type (
	// Conf содержит настройки приложения
	Conf struct {
		Server Server `yaml:"server"`

		Telegram Telegram `yaml:"telegram"`
		Twilio   Twilio   `yaml:"twilio"`
		SMTP     SMTP     `yaml:"smtp"`

		Database Database `yaml:"database"`
		Notify   Notify   `yaml:"notify"`

		// папка для вложений обращений в поддержку
		FilesDir string `yaml:"files_dir" validate:"required"`
		// папка для логов (пусто - не сохранять)
		LogDir string `yaml:"log_dir"`
		// путь к каталогу услуг (исполнители, программы, слоты)
		CatalogConfig string `yaml:"catalog_config" validate:"required"`

		// получатели уведомлений о новых заказах
		AdminIDs []int64 `yaml:"admin_ids" validate:"required,min=1"`
		// операторы поддержки
		SupportOperators []int64 `yaml:"support_operators"`

		RunInDebug bool `yaml:"-"`
	}

	Server struct {
		// внешний адрес, на который телеграм шлет вебхуки
		Host   string `yaml:"host" validate:"required"`
		Listen string `yaml:"listen" validate:"required"`
	}

	Telegram struct {
		// BOT_TOKEN из окружения
		Token string `yaml:"-" validate:"required"`
	}

	Twilio struct {
		// TWILIO_SID, TWILIO_TOKEN, TWILIO_NUMBER из окружения
		SID    string `yaml:"-"`
		Token  string `yaml:"-"`
		Number string `yaml:"-"`
	}

	SMTP struct {
		Server string `yaml:"server"`
		Port   int    `yaml:"port"`
		From   string `yaml:"from"`
		// SMTP_USER, SMTP_PASSWORD из окружения
		User     string `yaml:"-"`
		Password string `yaml:"-"`
	}

	Database struct {
		// DATABASE_DSN из окружения имеет приоритет
		DSN string `yaml:"dsn" validate:"required"`
	}

	Notify struct {
		MaxRetries int           `yaml:"max_retries" validate:"min=0"`
		BaseDelay  time.Duration `yaml:"base_delay"`
		// лимит отправок на пару (канал, получатель) в скользящем окне
		RateLimit  int           `yaml:"rate_limit"`
		RateWindow time.Duration `yaml:"rate_window"`
	}
)
