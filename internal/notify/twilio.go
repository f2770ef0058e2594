package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"eventbot/internal/logger"
)

const twilioAPI = "https://api.twilio.com/2010-04-01"

type (
	// TwilioClient - клиент REST API Twilio для sms и whatsapp.
	TwilioClient struct {
		accountSID string
		token      string
		from       string

		serverAddr string

		cl *http.Client
	}

	HttpError struct {
		Url     string
		Code    int
		Message string
	}
)

func NewTwilioClient(accountSID, token, from string) *TwilioClient {
	return &TwilioClient{
		accountSID: accountSID,
		token:      token,
		from:       from,

		serverAddr: twilioAPI,

		cl: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				IdleConnTimeout:     30 * time.Second,
				DisableKeepAlives:   false,
				MaxIdleConnsPerHost: 5,
			},
		},
	}
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("Http request failed for %s with code %d and message:\n%s", e.Url, e.Code, e.Message)
}

// Configured сообщает, заданы ли учетные данные. Без них отправки
// сразу завершаются ошибкой, не доходя до сети.
func (c *TwilioClient) Configured() bool {
	return c.accountSID != "" && c.token != ""
}

// SendMessage отправляет сообщение через Twilio. Для whatsapp номера
// отправителя и получателя получают префикс "whatsapp:".
func (c *TwilioClient) SendMessage(ctx context.Context, to, body string) error {
	if !c.Configured() {
		return fmt.Errorf("twilio клиент не настроен")
	}

	form := url.Values{
		"From": {c.from},
		"To":   {to},
		"Body": {body},
	}
	if strings.HasPrefix(to, "whatsapp:") {
		form.Set("From", "whatsapp:"+c.from)
	}

	reqUrl := c.serverAddr + "/Accounts/" + c.accountSID + "/Messages.json"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqUrl, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}

	req.SetBasicAuth(c.accountSID, c.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	logger.Debug("---> request", req.Method, reqUrl)

	resp, err := c.cl.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warning("Error while read response body", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		return &HttpError{
			Url:     req.URL.String(),
			Code:    resp.StatusCode,
			Message: string(bodyBytes),
		}
	}

	return nil
}

// SMSSender доставляет сообщение по sms.
type SMSSender struct {
	tw *TwilioClient
}

func NewSMSSender(tw *TwilioClient) *SMSSender {
	return &SMSSender{tw: tw}
}

func (s *SMSSender) Send(ctx context.Context, recipient int64, message string) error {
	// TODO: брать номер телефона из профиля получателя
	return s.tw.SendMessage(ctx, strconv.FormatInt(recipient, 10), message)
}

// WhatsAppSender доставляет сообщение в whatsapp.
type WhatsAppSender struct {
	tw *TwilioClient
}

func NewWhatsAppSender(tw *TwilioClient) *WhatsAppSender {
	return &WhatsAppSender{tw: tw}
}

func (s *WhatsAppSender) Send(ctx context.Context, recipient int64, message string) error {
	return s.tw.SendMessage(ctx, "whatsapp:"+strconv.FormatInt(recipient, 10), message)
}
