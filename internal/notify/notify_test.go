package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSender ошибается первые failures вызовов, затем отвечает успехом.
type fakeSender struct {
	mu       sync.Mutex
	calls    int
	failures int
}

func (f *fakeSender) Send(_ context.Context, _ int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("channel down")
	}
	return nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestDispatcher(maxRetries int, baseDelay time.Duration, senders map[string]ChannelSender) *Dispatcher {
	return NewDispatcher(senders, NewRateLimiter(5, time.Hour), maxRetries, baseDelay)
}

func TestSendFirstRoundSuccess(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(2, time.Millisecond, map[string]ChannelSender{ChannelTelegram: sender})

	ok := d.Send(context.Background(), 100, "привет", []string{ChannelTelegram})

	assert.True(t, ok)
	assert.Equal(t, 1, sender.callCount())
}

func TestSendRetriesWithBackoff(t *testing.T) {
	// канал падает два раза и отвечает на третьем раунде: задержки
	// перед повторами base и base*2
	sender := &fakeSender{failures: 2}
	base := 20 * time.Millisecond
	d := newTestDispatcher(2, base, map[string]ChannelSender{ChannelTelegram: sender})

	start := time.Now()
	ok := d.Send(context.Background(), 100, "привет", []string{ChannelTelegram})
	elapsed := time.Since(start)

	assert.True(t, ok)
	assert.Equal(t, 3, sender.callCount())
	assert.GreaterOrEqual(t, elapsed, 3*base)
	assert.Less(t, elapsed, 10*base)
}

func TestSendGivesUpAfterMaxRetries(t *testing.T) {
	sender := &fakeSender{failures: 100}
	d := newTestDispatcher(2, time.Millisecond, map[string]ChannelSender{ChannelSMS: sender})

	ok := d.Send(context.Background(), 100, "привет", []string{ChannelSMS})

	assert.False(t, ok)
	// первый раунд плюс два повтора
	assert.Equal(t, 3, sender.callCount())
}

func TestSendAllChannelsAttemptedInRound(t *testing.T) {
	// сбой одного канала не мешает попыткам остальных в том же раунде
	broken := &fakeSender{failures: 100}
	healthy := &fakeSender{}
	d := newTestDispatcher(0, time.Millisecond, map[string]ChannelSender{
		ChannelTelegram: broken,
		ChannelEmail:    healthy,
	})

	ok := d.Send(context.Background(), 100, "привет", []string{ChannelTelegram, ChannelEmail})

	assert.False(t, ok, "частичный успех не засчитывается")
	assert.Equal(t, 1, broken.callCount())
	assert.Equal(t, 1, healthy.callCount())
}

func TestSendUnknownChannelFails(t *testing.T) {
	d := newTestDispatcher(0, time.Millisecond, map[string]ChannelSender{})

	assert.False(t, d.Send(context.Background(), 100, "привет", []string{"pigeon"}))
}

func TestSendRateLimitRejectsBeforeProvider(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(0, time.Millisecond, map[string]ChannelSender{ChannelTelegram: sender})

	for i := 0; i < 5; i++ {
		require.True(t, d.Send(context.Background(), 100, "привет", []string{ChannelTelegram}))
	}

	// шестая отправка в том же окне отклоняется до обращения к каналу
	assert.False(t, d.Send(context.Background(), 100, "привет", []string{ChannelTelegram}))
	assert.Equal(t, 5, sender.callCount())

	// лимит считается на пару (канал, получатель)
	assert.True(t, d.Send(context.Background(), 200, "привет", []string{ChannelTelegram}))
}
