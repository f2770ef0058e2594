// Package bot - оболочка телеграм-бота: принимает вебхуки, разбирает
// команды и кнопки, передает действия сценариям и отправляет их ответы.
package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"eventbot/internal/cache"
	"eventbot/internal/config"
	"eventbot/internal/logger"
	"eventbot/internal/workflow"

	"github.com/allegro/bigcache/v3"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

var rePerformerAction = regexp.MustCompile(`^(confirm|reject|reschedule)_\d+$`)

type Bot struct {
	api *tgbotapi.BotAPI
	cnf *config.Conf

	sessions *bigcache.BigCache

	order     *workflow.OrderWorkflow
	support   *workflow.SupportWorkflow
	performer *workflow.PerformerHandler

	dl *http.Client
}

func NewBot(api *tgbotapi.BotAPI, cnf *config.Conf, sessions *bigcache.BigCache) *Bot {
	return &Bot{
		api: api,
		cnf: cnf,

		sessions: sessions,

		dl: &http.Client{Timeout: 30 * time.Second},
	}
}

// BindWorkflows подключает сценарии. Отдельно от конструктора, потому
// что сценариям нужен сам бот как транспорт сообщений.
func (b *Bot) BindWorkflows(order *workflow.OrderWorkflow, support *workflow.SupportWorkflow, performer *workflow.PerformerHandler) {
	b.order = order
	b.support = support
	b.performer = performer
}

// Receive принимает вебхук телеграма. Отвечаем сразу, обработка идет
// в фоне, иначе телеграм начнет повторять доставку.
func (b *Bot) Receive(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.BindJSON(&update); err != nil {
		logger.Warning("Error while receive update", err)

		c.Status(http.StatusBadRequest)
		return
	}

	logger.Debug("Receive update:", update.UpdateID)

	go b.process(update)

	c.Status(http.StatusOK)
}

func (b *Bot) process(update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var (
		chatID int64
		user   workflow.User
		act    workflow.Action
	)

	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		chatID = update.CallbackQuery.Message.Chat.ID
		user = identity(update.CallbackQuery.From)
		act.Data = update.CallbackQuery.Data

		// без ответа кнопка остается в состоянии загрузки
		if _, err := b.api.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, "")); err != nil {
			logger.Warning("Error while answer callback", err)
		}

	case update.Message != nil:
		chatID = update.Message.Chat.ID
		user = identity(update.Message.From)
		act.Text = strings.TrimSpace(update.Message.Text)
		if len(update.Message.Photo) > 0 {
			// последний размер - самый крупный
			act.PhotoFileID = update.Message.Photo[len(update.Message.Photo)-1].FileID
		}

	default:
		return
	}

	chatState := cache.GetState(b.sessions, chatID)

	var replies []workflow.Reply
	if update.Message != nil && update.Message.IsCommand() {
		replies = b.handleCommand(&chatState, update.Message.Command())
	} else {
		replies = b.dispatch(ctx, &chatState, user, act)
	}

	b.persist(&chatState, chatID)

	for _, reply := range replies {
		if err := b.send(chatID, reply); err != nil {
			logger.Warning("Error while send reply to", chatID, err)
		}
	}
}

func (b *Bot) handleCommand(chatState *cache.Chat, command string) []workflow.Reply {
	switch command {
	case "start", "help":
		chatState.Reset()
		return []workflow.Reply{{
			Text: "Привет! Я помогу оформить заказ на мероприятие или связаться с поддержкой.\n\n" +
				"/order - оформить заказ\n/support - написать в поддержку\n/status - текущий диалог\n/cancel - отменить диалог",
			Keyboard: workflow.MainMenuKeyboard(),
		}}

	case "order":
		return b.order.Start(chatState)

	case "support":
		return b.support.Start(chatState)

	case "cancel":
		if chatState.Kind == cache.KindNone {
			return []workflow.Reply{{Text: "Сейчас нет активного диалога", Keyboard: workflow.MainMenuKeyboard()}}
		}
		chatState.Reset()
		return []workflow.Reply{{Text: "Диалог отменен", Keyboard: workflow.MainMenuKeyboard()}}

	case "status":
		switch chatState.Kind {
		case cache.KindOrder:
			return []workflow.Reply{{Text: "Вы оформляете заказ. Отменить - /cancel"}}
		case cache.KindSupport:
			return []workflow.Reply{{Text: "Вы пишете обращение в поддержку. Отменить - /cancel"}}
		case cache.KindReschedule:
			return []workflow.Reply{{Text: "Вы выбираете новое время заказа. Отменить - /cancel"}}
		}
		return []workflow.Reply{{Text: "Сейчас нет активного диалога", Keyboard: workflow.MainMenuKeyboard()}}
	}

	return []workflow.Reply{{Text: "Не знаю такой команды. Список команд - /help"}}
}

func (b *Bot) dispatch(ctx context.Context, chatState *cache.Chat, user workflow.User, act workflow.Action) []workflow.Reply {
	// кнопки, живущие вне сессии: меню и ответы исполнителя приходят
	// в любой момент, в том числе посреди другого диалога
	switch {
	case act.Data == workflow.BtnNewOrder:
		return b.order.Start(chatState)
	case act.Data == workflow.BtnSupport:
		return b.support.Start(chatState)
	case rePerformerAction.MatchString(act.Data):
		return b.performer.Handle(ctx, chatState, act)
	case strings.HasPrefix(act.Data, workflow.PrefixNewTime):
		return b.performer.HandleRescheduleTime(ctx, chatState, act)
	}

	switch chatState.Kind {
	case cache.KindOrder:
		return b.order.Handle(ctx, chatState, user, act)
	case cache.KindSupport:
		return b.support.Handle(ctx, chatState, user, act)
	case cache.KindReschedule:
		return b.performer.HandleRescheduleTime(ctx, chatState, act)
	}

	if act.Data == workflow.BtnIgnore {
		return nil
	}
	return []workflow.Reply{{
		Text:     "Выберите, что нужно сделать:",
		Keyboard: workflow.MainMenuKeyboard(),
	}}
}

// persist сохраняет живую сессию и выбрасывает завершенную.
func (b *Bot) persist(chatState *cache.Chat, chatID int64) {
	if chatState.Kind == cache.KindNone && chatState.CurrentState == cache.StateNone {
		if err := chatState.Drop(b.sessions, chatID); err != nil {
			logger.Warning("Error while drop session", chatID, err)
		}
		return
	}
	if err := chatState.Save(b.sessions, chatID); err != nil {
		logger.Warning("Error while save session", chatID, err)
	}
}

func (b *Bot) send(chatID int64, reply workflow.Reply) error {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if len(reply.Keyboard) > 0 {
		msg.ReplyMarkup = toInlineKeyboard(reply.Keyboard)
	}

	_, err := b.api.Send(msg)
	return err
}

// SendMessage реализует workflow.Messenger.
func (b *Bot) SendMessage(_ context.Context, chatID int64, message string, keyboard [][]workflow.Button) error {
	msg := tgbotapi.NewMessage(chatID, message)
	if len(keyboard) > 0 {
		msg.ReplyMarkup = toInlineKeyboard(keyboard)
	}

	_, err := b.api.Send(msg)
	return err
}

// SendPhoto реализует workflow.Messenger.
func (b *Bot) SendPhoto(_ context.Context, chatID int64, photoPath, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(photoPath))
	photo.Caption = caption

	_, err := b.api.Send(photo)
	return err
}

// SavePhoto реализует workflow.AttachmentSaver: скачивает файл из
// телеграма в папку вложений под случайным именем.
func (b *Bot) SavePhoto(ctx context.Context, fileID string, ticketID int64) (string, error) {
	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("ссылка на файл: %w", err)
	}

	dir := filepath.Join(b.cnf.FilesDir, "support")
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("%d_%s.jpg", ticketID, uuid.New().String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := b.dl.Do(req)
	if err != nil {
		return "", fmt.Errorf("скачивание файла: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("скачивание файла: код ответа %d", resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err = io.Copy(out, resp.Body); err != nil {
		os.Remove(path)
		return "", err
	}

	logger.Debug("Фото обращения", ticketID, "сохранено в", path)
	return path, nil
}

func toInlineKeyboard(keyboard [][]workflow.Button) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Data))
		}
		rows = append(rows, btns)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func identity(from *tgbotapi.User) workflow.User {
	if from == nil {
		return workflow.User{}
	}
	return workflow.User{
		ID:       from.ID,
		FullName: strings.TrimSpace(from.FirstName + " " + from.LastName),
		Username: from.UserName,
	}
}
