// Package calendar синхронизирует подтвержденные данные заказа с
// Google Calendar исполнителя. Синхронизация выполняется по мере
// возможности: любая ошибка логируется и не влияет на судьбу заказа.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"eventbot/internal/database"
	"eventbot/internal/logger"
	"eventbot/internal/validate"
)

const (
	googleCalendarAPI = "https://www.googleapis.com/calendar/v3"

	orderDateTimeLayout = "02.01.2006 15:04"
	eventDuration       = 2 * time.Hour
	eventTimeZone       = "Europe/Moscow"
)

type (
	// Store - операции хранилища, нужные синхронизации.
	Store interface {
		GetOrder(ctx context.Context, id int64) (*database.Order, error)
		GetPerformer(ctx context.Context, name string) (*database.Performer, error)
		ClearPerformerTokens(ctx context.Context, performerName string) error
		SetCalendarEventID(ctx context.Context, orderID int64, eventID string) error
	}

	// Syncer создает события календаря по заказам. Токены исполнителей
	// кэшируются в памяти до первого отказа в авторизации.
	Syncer struct {
		store Store

		serverAddr string

		cl *http.Client

		mu     sync.Mutex
		tokens map[string]string
	}

	eventTime struct {
		DateTime string `json:"dateTime"`
		TimeZone string `json:"timeZone"`
	}

	eventBody struct {
		Summary     string    `json:"summary"`
		Description string    `json:"description"`
		Location    string    `json:"location,omitempty"`
		Start       eventTime `json:"start"`
		End         eventTime `json:"end"`
	}

	tokenData struct {
		AccessToken string `json:"access_token"`
	}
)

func NewSyncer(store Store) *Syncer {
	return &Syncer{
		store: store,

		serverAddr: googleCalendarAPI,

		cl: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				IdleConnTimeout:     30 * time.Second,
				DisableKeepAlives:   false,
				MaxIdleConnsPerHost: 5,
			},
		},

		tokens: make(map[string]string),
	}
}

// SyncOrder создает событие в календаре исполнителя заказа и сохраняет
// ссылку на него. Заказ без конкретного исполнителя, исполнитель без
// подключенного календаря и некорректная дата просто пропускаются.
func (s *Syncer) SyncOrder(ctx context.Context, orderID int64) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		logger.Warning("Календарь: заказ", orderID, "не найден:", err)
		return
	}

	if order.Performers == database.AnyPerformer {
		return
	}

	token, err := s.performerToken(ctx, order.Performers)
	if err != nil {
		logger.Warning("Календарь: исполнитель", order.Performers, "недоступен:", err)
		return
	}
	if token == "" {
		logger.Debug("Календарь не подключен у исполнителя", order.Performers)
		return
	}

	if !validate.DateTimeFormat(order.Date+" "+order.Time, orderDateTimeLayout) {
		logger.Warning("Календарь: у заказа", orderID, "некорректные дата или время")
		return
	}
	start, _ := time.Parse(orderDateTimeLayout, order.Date+" "+order.Time)

	eventID, err := s.createEvent(ctx, token, order, start)
	if err != nil {
		var httpErr *HttpError
		if errors.As(err, &httpErr) && httpErr.Code == http.StatusUnauthorized {
			// токен протух, чистим учетные данные, чтобы исполнитель
			// подключил календарь заново
			s.evictToken(order.Performers)
			if clearErr := s.store.ClearPerformerTokens(ctx, order.Performers); clearErr != nil {
				logger.Warning("Календарь: не удалось сбросить токены", order.Performers, clearErr)
			}
			logger.Warning("Календарь: авторизация исполнителя", order.Performers, "отозвана")
			return
		}
		logger.Warning("Календарь: событие для заказа", orderID, "не создано:", err)
		return
	}

	if err = s.store.SetCalendarEventID(ctx, orderID, eventID); err != nil {
		logger.Warning("Календарь: ссылка на событие заказа", orderID, "не сохранена:", err)
		return
	}

	logger.Event("Заказ", orderID, "добавлен в календарь исполнителя", order.Performers)
}

func (s *Syncer) performerToken(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	token, ok := s.tokens[name]
	s.mu.Unlock()
	if ok {
		return token, nil
	}

	performer, err := s.store.GetPerformer(ctx, name)
	if err != nil {
		return "", err
	}
	if performer.GoogleTokens == "" {
		return "", nil
	}

	var data tokenData
	if err = json.Unmarshal([]byte(performer.GoogleTokens), &data); err != nil {
		return "", fmt.Errorf("разбор токенов: %w", err)
	}

	s.mu.Lock()
	s.tokens[name] = data.AccessToken
	s.mu.Unlock()

	return data.AccessToken, nil
}

func (s *Syncer) evictToken(name string) {
	s.mu.Lock()
	delete(s.tokens, name)
	s.mu.Unlock()
}

func (s *Syncer) createEvent(ctx context.Context, token string, order *database.Order, start time.Time) (string, error) {
	body := eventBody{
		Summary:     fmt.Sprintf("Заказ #%d: %s", order.ID, order.Program),
		Description: fmt.Sprintf("Заказчик: %s\nСумма: %s\n%s", order.UserName, order.Amount, order.Details),
		Location:    order.Location,
		Start: eventTime{
			DateTime: start.Format("2006-01-02T15:04:05"),
			TimeZone: eventTimeZone,
		},
		End: eventTime{
			DateTime: start.Add(eventDuration).Format("2006-01-02T15:04:05"),
			TimeZone: eventTimeZone,
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	reqUrl := s.serverAddr + "/calendars/primary/events"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqUrl, bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	logger.Debug("---> request", req.Method, reqUrl)

	resp, err := s.cl.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warning("Error while read response body", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &HttpError{
			Url:     req.URL.String(),
			Code:    resp.StatusCode,
			Message: string(bodyBytes),
		}
	}

	var created struct {
		ID string `json:"id"`
	}
	if err = json.Unmarshal(bodyBytes, &created); err != nil {
		return "", fmt.Errorf("разбор ответа календаря: %w", err)
	}
	if strings.TrimSpace(created.ID) == "" {
		return "", fmt.Errorf("календарь вернул событие без идентификатора")
	}

	return created.ID, nil
}

type HttpError struct {
	Url     string
	Code    int
	Message string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("Http request failed for %s with code %d and message:\n%s", e.Url, e.Code, e.Message)
}
