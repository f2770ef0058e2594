package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventbot/internal/bot"
	"eventbot/internal/cache"
	"eventbot/internal/calendar"
	"eventbot/internal/config"
	"eventbot/internal/database"
	"eventbot/internal/logger"
	"eventbot/internal/notify"
	"eventbot/internal/workflow"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"gopkg.in/fsnotify.v1"
)

func main() {
	var (
		cnf = &config.Conf{}

		configFile = flag.String("config", "./config/config.yml", "Usage: -config=<config_file>")
		envFile    = flag.String("env", "./.env", "Usage: -env=<env_file>")
		debug      = flag.Bool("debug", false, "Print debug information on stderr")
	)

	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Println("Файл окружения не загружен:", err)
	}

	config.GetConfig(*configFile, cnf)
	cnf.RunInDebug = *debug

	logFile := logger.InitLogger(*debug, cnf.LogDir)
	if logFile != nil {
		defer logFile.Close()
	}
	logger.Info("Application starting...")

	if *debug {
		logger.Debug("Config:", cnf)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	catalog := config.InitCatalog(cnf.CatalogConfig)
	sessions := cache.NewSessions()

	if err := database.Migrate(cnf.Database.DSN); err != nil {
		logger.Crit("Error while migrate database:", err)
	}

	ctx := context.Background()

	store, err := database.NewStore(ctx, cnf.Database.DSN)
	if err != nil {
		logger.Crit("Error while connect database:", err)
	}
	defer store.Close()

	api, err := tgbotapi.NewBotAPI(cnf.Telegram.Token)
	if err != nil {
		logger.Crit("Error while connect Telegram:", err)
	}
	api.Debug = *debug
	logger.Info("Authorized on Telegram as", api.Self.UserName)

	twilio := notify.NewTwilioClient(cnf.Twilio.SID, cnf.Twilio.Token, cnf.Twilio.Number)
	dispatcher := notify.NewDispatcher(
		map[string]notify.ChannelSender{
			notify.ChannelTelegram: notify.NewTelegramSender(api),
			notify.ChannelSMS:      notify.NewSMSSender(twilio),
			notify.ChannelWhatsApp: notify.NewWhatsAppSender(twilio),
			notify.ChannelEmail:    notify.NewEmailSender(cnf.SMTP),
		},
		notify.NewRateLimiter(cnf.Notify.RateLimit, cnf.Notify.RateWindow),
		cnf.Notify.MaxRetries,
		cnf.Notify.BaseDelay,
	)

	syncer := calendar.NewSyncer(store)

	tgBot := bot.NewBot(api, cnf, sessions)
	tgBot.BindWorkflows(
		workflow.NewOrderWorkflow(store, tgBot, syncer, catalog, cnf.AdminIDs),
		workflow.NewSupportWorkflow(store, tgBot, tgBot, cnf.SupportOperators),
		workflow.NewPerformerHandler(store, dispatcher, catalog, cnf.AdminIDs[0]),
	)

	app := gin.Default()

	bot.InitHooks(app, tgBot)

	srv := &http.Server{
		Addr:    cnf.Server.Listen,
		Handler: app,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Listen: %s\n", err)
		}
	}()

	// Следим за изменениями каталога услуг.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Crit(err)
	}
	defer watcher.Close()
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				logger.Debug("Catalog event:", event)
				if event.Op&fsnotify.Create == fsnotify.Create || event.Op&fsnotify.Rename == fsnotify.Rename {
					if event.Name != "" {
						if err := watcher.Add(event.Name); err != nil {
							logger.Warning("Не удалось найти:", event.Name)
							watcher.Remove(event.Name)
						}
					}
				}
				if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
					if err := catalog.Update(cnf.CatalogConfig); err != nil {
						logger.Warning("Не корректный каталог услуг!", err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warning("Catalog watcher error:", err)
			}
		}
	}()

	if err := watcher.Add(cnf.CatalogConfig); err != nil {
		logger.Crit(err)
	}

	logger.Info("Application started")

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT)

	quit := make(chan int)

	go func() {
		for {
			sig := <-signals
			switch sig {
			// kill -SIGHUP XXXX
			// kill -SIGINT XXXX or Ctrl+c
			case syscall.SIGHUP, syscall.SIGINT:
				logger.Info("Catch OS signal! Exiting...")

				bot.DestroyHooks(tgBot)

				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				if err := srv.Shutdown(ctx); err != nil {
					log.Fatal("App forced to shutdown:", err)
				}

				logger.Info("Application stopped correctly!")

				quit <- 0
			default:
				logger.Warning("Unknown signal")
			}
		}
	}()

	code := <-quit

	os.Exit(code)
}
